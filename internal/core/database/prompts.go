package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/markdave123-py/outreach/internal/core"
	"github.com/markdave123-py/outreach/internal/models"
)

type promptTemplateDoc struct {
	ID          bson.ObjectID  `bson:"_id,omitempty"`
	Name        string         `bson:"name"`
	Agent       string         `bson:"agent"`
	Prompt      string         `bson:"prompt"`
	AttachFile  bool           `bson:"attachFile"`
	AttachEmail bool           `bson:"attachEmail"`
	File        *attachmentDoc `bson:"file,omitempty"`
	CreatedAt   time.Time      `bson:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt"`
}

func (d *promptTemplateDoc) toModel() *models.AIPromptTemplate {
	return &models.AIPromptTemplate{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Agent:       d.Agent,
		Prompt:      d.Prompt,
		AttachFile:  d.AttachFile,
		AttachEmail: d.AttachEmail,
		Attachment:  d.File.toModel(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

var _ core.PromptTemplateRepository = (*PromptTemplateRepository)(nil)

type PromptTemplateRepository struct {
	prompts collection[promptTemplateDoc]
}

func NewPromptTemplateRepository(db *mongo.Database) *PromptTemplateRepository {
	return &PromptTemplateRepository{prompts: newCollection[promptTemplateDoc](db, promptTemplatesCollection)}
}

func (r *PromptTemplateRepository) Create(ctx context.Context, p *models.AIPromptTemplate) error {
	at := now()
	doc := &promptTemplateDoc{
		Name:        p.Name,
		Agent:       p.Agent,
		Prompt:      p.Prompt,
		AttachFile:  p.AttachFile,
		AttachEmail: p.AttachEmail,
		File:        toAttachmentDoc(p.Attachment),
		CreatedAt:   at,
		UpdatedAt:   at,
	}

	id, err := r.prompts.insert(ctx, doc)
	if err != nil {
		return err
	}

	p.ID = id.Hex()
	p.CreatedAt = at
	p.UpdatedAt = at
	return nil
}

func (r *PromptTemplateRepository) GetByID(ctx context.Context, id string) (*models.AIPromptTemplate, error) {
	doc, err := r.prompts.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *PromptTemplateRepository) GetByName(ctx context.Context, name string) (*models.AIPromptTemplate, error) {
	doc, err := r.prompts.findOne(ctx, bson.M{"name": name})
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *PromptTemplateRepository) List(ctx context.Context) ([]models.AIPromptTemplate, error) {
	docs, err := r.prompts.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}

	out := make([]models.AIPromptTemplate, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}

func (r *PromptTemplateRepository) Names(ctx context.Context) ([]models.NameRef, error) {
	return r.prompts.names(ctx, true)
}

func (r *PromptTemplateRepository) Update(ctx context.Context, id string, patch models.PromptTemplatePatch, attachment *models.Attachment) (*models.AIPromptTemplate, error) {
	set := bson.M{"updatedAt": now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Agent != nil {
		set["agent"] = *patch.Agent
	}
	if patch.Prompt != nil {
		set["prompt"] = *patch.Prompt
	}
	if patch.AttachFile != nil {
		set["attachFile"] = *patch.AttachFile
	}
	if patch.AttachEmail != nil {
		set["attachEmail"] = *patch.AttachEmail
	}
	if attachment != nil {
		set["file"] = toAttachmentDoc(attachment)
	}

	doc, err := r.prompts.updateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *PromptTemplateRepository) UpsertByName(ctx context.Context, p *models.AIPromptTemplate) (*models.AIPromptTemplate, error) {
	at := now()
	set := bson.M{
		"agent":       p.Agent,
		"prompt":      p.Prompt,
		"attachFile":  p.AttachFile,
		"attachEmail": p.AttachEmail,
		"updatedAt":   at,
	}
	if p.Attachment != nil {
		set["file"] = toAttachmentDoc(p.Attachment)
	}
	update := bson.M{"$set": set, "$setOnInsert": bson.M{"createdAt": at}}

	doc, err := r.prompts.upsert(ctx, bson.M{"name": p.Name}, update)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *PromptTemplateRepository) Delete(ctx context.Context, id string) error {
	return r.prompts.deleteByID(ctx, id)
}

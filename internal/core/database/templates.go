package db

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/outreach/internal/core"
	"github.com/markdave123-py/outreach/internal/models"
)

const recentActivityLimit = 5

type templateDoc struct {
	ID         bson.ObjectID  `bson:"_id,omitempty"`
	Name       string         `bson:"name"`
	Subject    string         `bson:"subject"`
	Content    string         `bson:"content"`
	Attachment *attachmentDoc `bson:"attachment,omitempty"`
	CreatedAt  time.Time      `bson:"createdAt"`
	UpdatedAt  time.Time      `bson:"updatedAt"`
}

func (d *templateDoc) toModel() *models.Template {
	return &models.Template{
		ID:         d.ID.Hex(),
		Name:       d.Name,
		Subject:    d.Subject,
		Content:    d.Content,
		Attachment: d.Attachment.toModel(),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

var _ core.TemplateRepository = (*TemplateRepository)(nil)

type TemplateRepository struct {
	templates collection[templateDoc]
}

func NewTemplateRepository(db *mongo.Database) *TemplateRepository {
	return &TemplateRepository{templates: newCollection[templateDoc](db, templatesCollection)}
}

func (r *TemplateRepository) Create(ctx context.Context, t *models.Template) error {
	at := now()
	doc := &templateDoc{
		Name:       t.Name,
		Subject:    t.Subject,
		Content:    t.Content,
		Attachment: toAttachmentDoc(t.Attachment),
		CreatedAt:  at,
		UpdatedAt:  at,
	}

	id, err := r.templates.insert(ctx, doc)
	if err != nil {
		return err
	}

	t.ID = id.Hex()
	t.CreatedAt = at
	t.UpdatedAt = at
	return nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	doc, err := r.templates.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]models.Template, error) {
	docs, err := r.templates.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return templateModels(docs), nil
}

func (r *TemplateRepository) Names(ctx context.Context) ([]models.NameRef, error) {
	return r.templates.names(ctx, false)
}

func (r *TemplateRepository) Update(ctx context.Context, id string, patch models.TemplatePatch, attachment *models.Attachment) (*models.Template, error) {
	set := bson.M{"updatedAt": now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Subject != nil {
		set["subject"] = *patch.Subject
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if attachment != nil {
		set["attachment"] = toAttachmentDoc(attachment)
	}

	doc, err := r.templates.updateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	return r.templates.deleteByID(ctx, id)
}

// templateSearchFilter ANDs every supplied predicate. Text filters are
// case-insensitive substring matches on the literal input.
func templateSearchFilter(q models.TemplateQuery) bson.M {
	filter := bson.M{}

	text := map[string]string{"name": q.Name, "subject": q.Subject, "content": q.Content}
	for field, v := range text {
		if v == "" {
			continue
		}
		filter[field] = bson.M{"$regex": regexp.QuoteMeta(v), "$options": "i"}
	}

	if q.StartDate != nil || q.EndDate != nil {
		createdAt := bson.M{}
		if q.StartDate != nil {
			createdAt["$gte"] = *q.StartDate
		}
		if q.EndDate != nil {
			createdAt["$lte"] = *q.EndDate
		}
		filter["createdAt"] = createdAt
	}

	return filter
}

// templateSearchSort sorts by the requested field, then by _id so pages
// never overlap when the field has ties.
func templateSearchSort(q models.TemplateQuery) bson.D {
	return bson.D{
		{Key: q.SortBy, Value: int(q.SortOrder)},
		{Key: "_id", Value: int(q.SortOrder)},
	}
}

func (r *TemplateRepository) Search(ctx context.Context, q models.TemplateQuery) ([]models.Template, int64, error) {
	filter := templateSearchFilter(q)

	var (
		docs  []templateDoc
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.templates.coll.CountDocuments(gctx, filter)
		if err != nil {
			return fmt.Errorf("failed to count templates: %w", err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		opts := options.Find().
			SetSort(templateSearchSort(q)).
			SetSkip(int64(q.Skip())).
			SetLimit(int64(q.Limit))
		found, err := r.templates.find(gctx, filter, opts)
		if err != nil {
			return err
		}
		docs = found
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	return templateModels(docs), total, nil
}

func (r *TemplateRepository) Stats(ctx context.Context) (*models.TemplateStats, error) {
	stats := &models.TemplateStats{RecentActivity: []models.TemplateActivity{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.templates.coll.CountDocuments(gctx, bson.M{})
		if err != nil {
			return fmt.Errorf("failed to count templates: %w", err)
		}
		stats.TotalTemplates = n
		return nil
	})
	g.Go(func() error {
		n, err := r.templates.coll.CountDocuments(gctx, bson.M{"attachment": bson.M{"$ne": nil}})
		if err != nil {
			return fmt.Errorf("failed to count templates with attachments: %w", err)
		}
		stats.TemplatesWithAttachments = n
		return nil
	})
	g.Go(func() error {
		avg, err := r.averageContentLength(gctx)
		if err != nil {
			return err
		}
		stats.AverageContentLength = avg
		return nil
	})
	g.Go(func() error {
		opts := options.Find().
			SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
			SetLimit(recentActivityLimit).
			SetProjection(bson.M{"name": 1, "updatedAt": 1})
		docs, err := r.templates.find(gctx, bson.M{}, opts)
		if err != nil {
			return err
		}
		for _, d := range docs {
			stats.RecentActivity = append(stats.RecentActivity, models.TemplateActivity{
				ID:        d.ID.Hex(),
				Name:      d.Name,
				UpdatedAt: d.UpdatedAt,
			})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *TemplateRepository) averageContentLength(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: bson.D{
				{Key: "$strLenCP", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$content", ""}}}},
			}}}},
		}}},
	}

	cursor, err := r.templates.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate content length: %w", err)
	}
	var rows []struct {
		Avg float64 `bson:"avg"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("failed to decode content length: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return int64(math.Round(rows[0].Avg)), nil
}

func templateModels(docs []templateDoc) []models.Template {
	out := make([]models.Template, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out
}

package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/markdave123-py/outreach/internal/core"
	"github.com/markdave123-py/outreach/internal/models"
)

type contactDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	FirstName   string        `bson:"firstName"`
	LastName    string        `bson:"lastName"`
	Email       string        `bson:"email"`
	PhoneNumber string        `bson:"phoneNumber,omitempty"`
	Note        string        `bson:"note,omitempty"`
	CompanyName string        `bson:"companyName,omitempty"`
	WebSite     string        `bson:"webSite,omitempty"`
	Type        string        `bson:"type"`
	IsActive    bool          `bson:"isActive"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

func (d *contactDoc) toModel() *models.Contact {
	return &models.Contact{
		ID:          d.ID.Hex(),
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		Email:       d.Email,
		PhoneNumber: d.PhoneNumber,
		Note:        d.Note,
		CompanyName: d.CompanyName,
		WebSite:     d.WebSite,
		Type:        models.ContactType(d.Type),
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

var _ core.ContactRepository = (*ContactRepository)(nil)

type ContactRepository struct {
	contacts collection[contactDoc]
}

func NewContactRepository(db *mongo.Database) *ContactRepository {
	return &ContactRepository{contacts: newCollection[contactDoc](db, contactsCollection)}
}

// contactUpsertUpdate builds the update for an upsert keyed by email.
// Blank names and nil optional fields leave the stored values untouched;
// type and isActive fall back to their defaults on insert only.
func contactUpsertUpdate(in models.ContactInput, at time.Time) bson.M {
	set := bson.M{
		"email":     in.Email,
		"updatedAt": at,
	}
	setOnInsert := bson.M{"createdAt": at}

	if in.FirstName != "" {
		set["firstName"] = in.FirstName
	}
	if in.LastName != "" {
		set["lastName"] = in.LastName
	}

	optional := map[string]*string{
		"phoneNumber": in.PhoneNumber,
		"note":        in.Note,
		"companyName": in.CompanyName,
		"webSite":     in.WebSite,
	}
	for field, v := range optional {
		if v != nil {
			set[field] = *v
		}
	}

	if in.Type != nil {
		set["type"] = string(*in.Type)
	} else {
		setOnInsert["type"] = string(models.ContactTypeOther)
	}
	if in.IsActive != nil {
		set["isActive"] = *in.IsActive
	} else {
		setOnInsert["isActive"] = true
	}

	return bson.M{"$set": set, "$setOnInsert": setOnInsert}
}

func (r *ContactRepository) UpsertByEmail(ctx context.Context, in models.ContactInput) (*models.Contact, error) {
	doc, err := r.contacts.upsert(ctx, bson.M{"email": in.Email}, contactUpsertUpdate(in, now()))
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *ContactRepository) BulkUpsert(ctx context.Context, in []models.ContactInput) (models.BulkResult, error) {
	if len(in) == 0 {
		return models.BulkResult{}, nil
	}

	at := now()
	writes := make([]mongo.WriteModel, 0, len(in))
	for _, c := range in {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"email": c.Email}).
			SetUpdate(contactUpsertUpdate(c, at)).
			SetUpsert(true))
	}

	res, err := r.contacts.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return models.BulkResult{}, translateWriteError("bulk upsert", err)
	}

	return models.BulkResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
		Upserted: res.UpsertedCount,
	}, nil
}

func (r *ContactRepository) ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	found := make(map[string]bool, len(emails))
	if len(emails) == 0 {
		return found, nil
	}

	docs, err := r.contacts.find(ctx, bson.M{"email": bson.M{"$in": emails}},
		options.Find().SetProjection(bson.M{"email": 1}))
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		found[d.Email] = true
	}
	return found, nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	doc, err := r.contacts.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *ContactRepository) ListActive(ctx context.Context) ([]models.Contact, error) {
	docs, err := r.contacts.find(ctx, bson.M{"isActive": true},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}

	out := make([]models.Contact, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toModel())
	}
	return out, nil
}

func (r *ContactRepository) ExportActive(ctx context.Context) ([]models.ContactExport, error) {
	projection := bson.M{"_id": 0, "isActive": 0, "createdAt": 0, "updatedAt": 0}
	docs, err := r.contacts.find(ctx, bson.M{"isActive": true},
		options.Find().SetSort(bson.D{{Key: "lastName", Value: 1}, {Key: "firstName", Value: 1}}).SetProjection(projection))
	if err != nil {
		return nil, err
	}

	out := make([]models.ContactExport, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.ContactExport{
			FirstName:   d.FirstName,
			LastName:    d.LastName,
			Email:       d.Email,
			PhoneNumber: d.PhoneNumber,
			Note:        d.Note,
			CompanyName: d.CompanyName,
			WebSite:     d.WebSite,
			Type:        models.ContactType(d.Type),
		})
	}
	return out, nil
}

func (r *ContactRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.contacts.updateByID(ctx, id, bson.M{"$set": bson.M{"isActive": false, "updatedAt": now()}})
	if err != nil {
		return fmt.Errorf("deactivate contact: %w", err)
	}
	return nil
}

func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	return r.contacts.deleteByID(ctx, id)
}

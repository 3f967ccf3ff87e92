package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/markdave123-py/outreach/internal/models"
)

// collection wraps a mongo collection decoding into document type D. Every
// repository builds on it so lookups, error translation and id parsing
// behave the same for all resources.
type collection[D any] struct {
	coll *mongo.Collection
}

func newCollection[D any](db *mongo.Database, name string) collection[D] {
	return collection[D]{coll: db.Collection(name)}
}

func (c collection[D]) insert(ctx context.Context, doc *D) (bson.ObjectID, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return bson.NilObjectID, translateWriteError("insert", err)
	}
	id, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return bson.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

func (c collection[D]) findByID(ctx context.Context, id string) (*D, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	return c.findOne(ctx, bson.M{"_id": oid})
}

func (c collection[D]) findOne(ctx context.Context, filter any) (*D, error) {
	var doc D
	if err := c.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find document: %w", err)
	}
	return &doc, nil
}

func (c collection[D]) find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) ([]D, error) {
	cursor, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}
	docs := []D{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// updateByID applies update and returns the document as stored afterwards.
func (c collection[D]) updateByID(ctx context.Context, id string, update any) (*D, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc D
	if err := c.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, translateWriteError("update", err)
	}
	return &doc, nil
}

// upsert atomically creates or updates the single document matching filter.
func (c collection[D]) upsert(ctx context.Context, filter, update any) (*D, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc D
	if err := c.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, translateWriteError("upsert", err)
	}
	return &doc, nil
}

func (c collection[D]) deleteByID(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// names lists {_id, name[, agent]} sorted by name.
func (c collection[D]) names(ctx context.Context, withAgent bool) ([]models.NameRef, error) {
	projection := bson.M{"name": 1}
	if withAgent {
		projection["agent"] = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetProjection(projection)

	cursor, err := c.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list names: %w", err)
	}
	var docs []struct {
		ID    bson.ObjectID `bson:"_id"`
		Name  string        `bson:"name"`
		Agent string        `bson:"agent"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode names: %w", err)
	}

	out := make([]models.NameRef, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.NameRef{ID: d.ID.Hex(), Name: d.Name, Agent: d.Agent})
	}
	return out, nil
}

func parseObjectID(id string) (bson.ObjectID, error) {
	if !models.ValidID(id) {
		return bson.NilObjectID, models.NewValidationError("invalid id format")
	}
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, models.NewValidationError("invalid id format")
	}
	return oid, nil
}

func translateWriteError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", models.ErrDuplicateKey, err)
	}
	return fmt.Errorf("failed to %s document: %w", op, err)
}

// now is truncated to the millisecond precision BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

type attachmentDoc struct {
	Filename string `bson:"filename"`
	Path     string `bson:"path"`
	Mimetype string `bson:"mimetype"`
}

func toAttachmentDoc(a *models.Attachment) *attachmentDoc {
	if a == nil {
		return nil
	}
	return &attachmentDoc{Filename: a.Filename, Path: a.Path, Mimetype: a.Mimetype}
}

func (d *attachmentDoc) toModel() *models.Attachment {
	if d == nil || d.Path == "" {
		return nil
	}
	return &models.Attachment{Filename: d.Filename, Path: d.Path, Mimetype: d.Mimetype}
}

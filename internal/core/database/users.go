package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/markdave123-py/outreach/internal/core"
	"github.com/markdave123-py/outreach/internal/models"
)

type userDoc struct {
	ID           bson.ObjectID  `bson:"_id,omitempty"`
	Name         string         `bson:"name"`
	Email        string         `bson:"email"`
	Password     string         `bson:"password"`
	ProfileImage *attachmentDoc `bson:"profileImage,omitempty"`
	CreatedAt    time.Time      `bson:"createdAt"`
	UpdatedAt    time.Time      `bson:"updatedAt"`
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		ProfileImage: d.ProfileImage.toModel(),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

var _ core.UserRepository = (*UserRepository)(nil)

type UserRepository struct {
	users collection[userDoc]
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{users: newCollection[userDoc](db, usersCollection)}
}

// Create stores u as given; the password must already be hashed.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	at := now()
	doc := &userDoc{
		Name:         u.Name,
		Email:        u.Email,
		Password:     u.PasswordHash,
		ProfileImage: toAttachmentDoc(u.ProfileImage),
		CreatedAt:    at,
		UpdatedAt:    at,
	}

	id, err := r.users.insert(ctx, doc)
	if err != nil {
		return err
	}

	u.ID = id.Hex()
	u.CreatedAt = at
	u.UpdatedAt = at
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	doc, err := r.users.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	doc, err := r.users.findOne(ctx, bson.M{"email": email})
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *UserRepository) SetProfileImage(ctx context.Context, id string, image *models.Attachment) (*models.User, error) {
	update := bson.M{"$set": bson.M{"profileImage": toAttachmentDoc(image), "updatedAt": now()}}
	doc, err := r.users.updateByID(ctx, id, update)
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

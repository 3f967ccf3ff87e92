package core

import (
	"context"
	"io"

	"github.com/markdave123-py/outreach/internal/models"
)

// ContactRepository persists contacts keyed by email.
type ContactRepository interface {
	UpsertByEmail(ctx context.Context, in models.ContactInput) (*models.Contact, error)
	BulkUpsert(ctx context.Context, in []models.ContactInput) (models.BulkResult, error)
	// ExistingEmails reports which of emails belong to a stored contact.
	ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error)
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	ListActive(ctx context.Context) ([]models.Contact, error)
	ExportActive(ctx context.Context) ([]models.ContactExport, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// AttachedRepository is the persistence contract of a resource keyed by a
// unique name that owns an optional attachment. R is the record type and P
// its partial update.
//
// Update leaves the stored attachment untouched when attachment is nil.
type AttachedRepository[R any, P any] interface {
	Create(ctx context.Context, rec *R) error
	GetByID(ctx context.Context, id string) (*R, error)
	List(ctx context.Context) ([]R, error)
	Names(ctx context.Context) ([]models.NameRef, error)
	Update(ctx context.Context, id string, patch P, attachment *models.Attachment) (*R, error)
	Delete(ctx context.Context, id string) error
}

type TemplateRepository interface {
	AttachedRepository[models.Template, models.TemplatePatch]
	Search(ctx context.Context, q models.TemplateQuery) ([]models.Template, int64, error)
	Stats(ctx context.Context) (*models.TemplateStats, error)
}

type PromptTemplateRepository interface {
	AttachedRepository[models.AIPromptTemplate, models.PromptTemplatePatch]
	GetByName(ctx context.Context, name string) (*models.AIPromptTemplate, error)
	// UpsertByName creates or replaces the template named rec.Name. A nil
	// rec.Attachment keeps the stored one.
	UpsertByName(ctx context.Context, rec *models.AIPromptTemplate) (*models.AIPromptTemplate, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetProfileImage(ctx context.Context, id string, image *models.Attachment) (*models.User, error)
}

// AttachmentStore defines interactions with the attachment backend: local
// disk, S3 or MinIO. Locations are opaque keys produced by Save.
type AttachmentStore interface {
	Save(ctx context.Context, data io.Reader, originalName, mimetype string) (*models.Attachment, error)
	Delete(ctx context.Context, location string) error
	GetFile(ctx context.Context, location string) ([]byte, error)
	GetObjectReader(ctx context.Context, location string) (io.ReadCloser, error)
}

// TokenManager issues and verifies session tokens.
type TokenManager interface {
	Issue(userID string) (string, error)
	Parse(token string) (string, error)
}

// RateLimiter reports whether key is still within its quota.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

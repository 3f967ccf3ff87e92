package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/markdave123-py/outreach/internal/core"
	objectclient "github.com/markdave123-py/outreach/internal/core/object-client"
	"github.com/markdave123-py/outreach/internal/logger"
	"github.com/markdave123-py/outreach/internal/models"
)

const msgFileTooLarge = "File too large. Maximum size is 5MB."

// Upload is a file received together with a request.
type Upload struct {
	Filename string
	Mimetype string
	Size     int64
	Body     io.Reader
}

type attached interface {
	GetAttachment() *models.Attachment
}

// resourceMessages are the client-facing messages of one resource.
type resourceMessages struct {
	invalidID string
	notFound  string
	duplicate string
}

// attachedService implements the lifecycle shared by every resource that
// is keyed by name and owns an optional attachment. A new file is stored
// before the record is written and removed again when that write fails.
// A replaced file is removed only after the record points at its successor.
type attachedService[R attached, P any] struct {
	repo   core.AttachedRepository[R, P]
	store  core.AttachmentStore
	logger *logger.Logger
	name   string
	msgs   resourceMessages
}

func (s *attachedService[R, P]) translate(op string, err error) error {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return err
	case errors.Is(err, models.ErrDuplicateKey):
		return models.NewConflictError(s.msgs.duplicate)
	case errors.Is(err, models.ErrNotFound):
		return models.NewNotFoundError(s.msgs.notFound)
	}
	s.logger.Error(s.name+": failed to "+op, "error", err.Error())
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (s *attachedService[R, P]) checkID(id string) error {
	if !models.ValidID(id) {
		return models.NewValidationError(s.msgs.invalidID)
	}
	return nil
}

// storeUpload saves up and returns its attachment, or nil when up is nil.
func (s *attachedService[R, P]) storeUpload(ctx context.Context, up *Upload) (*models.Attachment, error) {
	return saveUpload(ctx, s.store, s.logger, s.name, up)
}

// discard removes a stored file. Failures are logged and never returned.
func (s *attachedService[R, P]) discard(ctx context.Context, att *models.Attachment) {
	discardAttachment(ctx, s.store, s.logger, s.name, att)
}

func (s *attachedService[R, P]) get(ctx context.Context, id string) (*R, error) {
	if err := s.checkID(id); err != nil {
		return nil, err
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate("get record", err)
	}
	return rec, nil
}

func (s *attachedService[R, P]) list(ctx context.Context) ([]R, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.translate("list records", err)
	}
	return recs, nil
}

func (s *attachedService[R, P]) names(ctx context.Context) ([]models.NameRef, error) {
	refs, err := s.repo.Names(ctx)
	if err != nil {
		return nil, s.translate("list names", err)
	}
	return refs, nil
}

// create stores up, then writes the record produced by build.
func (s *attachedService[R, P]) create(ctx context.Context, up *Upload, build func(*models.Attachment) *R) (*R, error) {
	att, err := s.storeUpload(ctx, up)
	if err != nil {
		return nil, err
	}

	rec := build(att)
	if err := s.repo.Create(ctx, rec); err != nil {
		s.discard(ctx, att)
		return nil, s.translate("create record", err)
	}
	return rec, nil
}

// update applies patch to the record id. A new upload replaces the
// previous attachment, which is removed only once the new metadata is
// committed.
func (s *attachedService[R, P]) update(ctx context.Context, id string, patch P, up *Upload) (*R, error) {
	existing, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	att, err := s.storeUpload(ctx, up)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.Update(ctx, id, patch, att)
	if err != nil {
		s.discard(ctx, att)
		return nil, s.translate("update record", err)
	}
	if att != nil {
		s.discard(ctx, (*existing).GetAttachment())
	}
	return rec, nil
}

func (s *attachedService[R, P]) delete(ctx context.Context, id string) error {
	existing, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translate("delete record", err)
	}
	s.discard(ctx, (*existing).GetAttachment())
	return nil
}

// download opens the attachment of record id. The caller closes the reader.
func (s *attachedService[R, P]) download(ctx context.Context, id string) (*models.Attachment, io.ReadCloser, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return openAttachment(ctx, s.store, s.logger, s.name, (*rec).GetAttachment(), "Attachment not found")
}

func saveUpload(ctx context.Context, store core.AttachmentStore, log *logger.Logger, name string, up *Upload) (*models.Attachment, error) {
	if up == nil {
		return nil, nil
	}
	if up.Size > objectclient.MaxUploadBytes {
		return nil, models.NewValidationError(msgFileTooLarge)
	}

	att, err := store.Save(ctx, up.Body, up.Filename, up.Mimetype)
	if err != nil {
		if errors.Is(err, objectclient.ErrTooLarge) {
			return nil, models.NewValidationError(msgFileTooLarge)
		}
		log.Error(name+": failed to store attachment", "filename", up.Filename, "error", err.Error())
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}
	return att, nil
}

func discardAttachment(ctx context.Context, store core.AttachmentStore, log *logger.Logger, name string, att *models.Attachment) {
	if att == nil || att.Path == "" {
		return
	}
	if err := store.Delete(ctx, att.Path); err != nil {
		log.Warn(name+": failed to delete attachment", "path", att.Path, "error", err.Error())
	}
}

func openAttachment(ctx context.Context, store core.AttachmentStore, log *logger.Logger, name string, att *models.Attachment, notFound string) (*models.Attachment, io.ReadCloser, error) {
	if att == nil || att.Path == "" {
		return nil, nil, models.NewNotFoundError(notFound)
	}
	body, err := store.GetObjectReader(ctx, att.Path)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, models.NewNotFoundError(notFound)
		}
		log.Error(name+": failed to open attachment", "path", att.Path, "error", err.Error())
		return nil, nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	return att, body, nil
}

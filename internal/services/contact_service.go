package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/markdave123-py/outreach/internal/core"
	"github.com/markdave123-py/outreach/internal/logger"
	"github.com/markdave123-py/outreach/internal/models"
)

const (
	msgInvalidContactID = "Invalid contact ID format"
	msgContactNotFound  = "Contact not found"
	msgDuplicateEmail   = "Duplicate email address"
	msgInvalidType      = "Invalid contact type. Must be one of: agent, client, vendor, other"
)

type ContactService struct {
	repo   core.ContactRepository
	logger *logger.Logger
}

func NewContactService(repo core.ContactRepository, logger *logger.Logger) *ContactService {
	return &ContactService{repo: repo, logger: logger}
}

func (s *ContactService) translate(op string, err error) error {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return err
	case errors.Is(err, models.ErrNotFound):
		return models.NewNotFoundError(msgContactNotFound)
	case errors.Is(err, models.ErrDuplicateKey):
		return models.NewConflictError(msgDuplicateEmail)
	}
	s.logger.Error("ContactService: failed to "+op, "error", err.Error())
	return fmt.Errorf("failed to %s: %w", op, err)
}

func normalizeContact(in *models.ContactInput) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func validContactType(t *models.ContactType) bool {
	return t == nil || t.Valid()
}

func (s *ContactService) List(ctx context.Context) ([]models.Contact, error) {
	contacts, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, s.translate("list contacts", err)
	}
	return contacts, nil
}

func (s *ContactService) Get(ctx context.Context, id string) (*models.Contact, error) {
	if !models.ValidID(id) {
		return nil, models.NewValidationError(msgInvalidContactID)
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate("get contact", err)
	}
	return c, nil
}

// Upsert creates the contact identified by in.Email or updates it in place.
// A concurrent insert of the same email makes the first attempt lose the
// unique index race; the retry then finds and updates that record.
func (s *ContactService) Upsert(ctx context.Context, in models.ContactInput) (*models.Contact, error) {
	normalizeContact(&in)
	if in.FirstName == "" || in.LastName == "" || in.Email == "" {
		return nil, models.NewValidationError("First name, last name and email are required fields")
	}
	if !validContactType(in.Type) {
		return nil, models.NewValidationError(msgInvalidType)
	}

	c, err := s.repo.UpsertByEmail(ctx, in)
	if errors.Is(err, models.ErrDuplicateKey) {
		c, err = s.repo.UpsertByEmail(ctx, in)
	}
	if err != nil {
		return nil, s.translate("upsert contact", err)
	}
	return c, nil
}

// BulkUpsert upserts every contact by email. Entries that share an email
// after normalisation are merged in order, later values winning. A new
// contact needs both names; an existing one keeps the names an entry
// leaves blank. The whole batch is rejected when an entry is invalid.
func (s *ContactService) BulkUpsert(ctx context.Context, in []models.ContactInput) (models.BulkResult, error) {
	for i := range in {
		normalizeContact(&in[i])
		if in[i].Email == "" {
			return models.BulkResult{}, models.NewValidationError(fmt.Sprintf("Contact at index %d is missing an email", i))
		}
		if !validContactType(in[i].Type) {
			return models.BulkResult{}, models.NewValidationError(fmt.Sprintf("Contact at index %d: %s", i, msgInvalidType))
		}
	}

	merged, indexes := mergeByEmail(in)
	if len(merged) == 0 {
		return models.BulkResult{}, nil
	}
	if err := s.checkNewContactNames(ctx, merged, indexes); err != nil {
		return models.BulkResult{}, err
	}

	res, err := s.repo.BulkUpsert(ctx, merged)
	if err != nil {
		return models.BulkResult{}, s.translate("bulk upsert contacts", err)
	}
	s.logger.Info("ContactService: bulk upsert finished",
		"matched", res.Matched, "modified", res.Modified, "upserted", res.Upserted)
	return res, nil
}

// mergeByEmail folds entries with the same email into the first one and
// returns the merged entries with the input index each one started at.
func mergeByEmail(in []models.ContactInput) ([]models.ContactInput, []int) {
	pos := make(map[string]int, len(in))
	merged := make([]models.ContactInput, 0, len(in))
	indexes := make([]int, 0, len(in))

	for i, c := range in {
		j, ok := pos[c.Email]
		if !ok {
			pos[c.Email] = len(merged)
			merged = append(merged, c)
			indexes = append(indexes, i)
			continue
		}
		overlayContact(&merged[j], c)
	}
	return merged, indexes
}

func overlayContact(dst *models.ContactInput, src models.ContactInput) {
	if src.FirstName != "" {
		dst.FirstName = src.FirstName
	}
	if src.LastName != "" {
		dst.LastName = src.LastName
	}
	if src.PhoneNumber != nil {
		dst.PhoneNumber = src.PhoneNumber
	}
	if src.Note != nil {
		dst.Note = src.Note
	}
	if src.CompanyName != nil {
		dst.CompanyName = src.CompanyName
	}
	if src.WebSite != nil {
		dst.WebSite = src.WebSite
	}
	if src.Type != nil {
		dst.Type = src.Type
	}
	if src.IsActive != nil {
		dst.IsActive = src.IsActive
	}
}

// checkNewContactNames rejects entries without both names whose email is
// not stored yet.
func (s *ContactService) checkNewContactNames(ctx context.Context, merged []models.ContactInput, indexes []int) error {
	var unnamed []string
	for _, c := range merged {
		if c.FirstName == "" || c.LastName == "" {
			unnamed = append(unnamed, c.Email)
		}
	}
	if len(unnamed) == 0 {
		return nil
	}

	existing, err := s.repo.ExistingEmails(ctx, unnamed)
	if err != nil {
		return s.translate("look up contacts", err)
	}
	for k, c := range merged {
		if (c.FirstName == "" || c.LastName == "") && !existing[c.Email] {
			return models.NewValidationError(fmt.Sprintf(
				"Contact at index %d: First name and last name are required for new contacts", indexes[k]))
		}
	}
	return nil
}

func (s *ContactService) Export(ctx context.Context) ([]models.ContactExport, error) {
	out, err := s.repo.ExportActive(ctx)
	if err != nil {
		return nil, s.translate("export contacts", err)
	}
	return out, nil
}

// Delete deactivates the contact, or removes it when permanent is set.
func (s *ContactService) Delete(ctx context.Context, id string, permanent bool) error {
	if !models.ValidID(id) {
		return models.NewValidationError(msgInvalidContactID)
	}

	var err error
	if permanent {
		err = s.repo.Delete(ctx, id)
	} else {
		err = s.repo.Deactivate(ctx, id)
	}
	if err != nil {
		return s.translate("delete contact", err)
	}
	return nil
}

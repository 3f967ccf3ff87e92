package services

import (
	"context"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/markdave123-py/outreach/internal/core"
	"github.com/markdave123-py/outreach/internal/logger"
	"github.com/markdave123-py/outreach/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	// maxPage keeps (page-1)*limit well inside int64
	maxPage = math.MaxInt32
)

var templateSortFields = map[string]bool{
	"name":      true,
	"subject":   true,
	"createdAt": true,
	"updatedAt": true,
}

// TemplateInput carries the fields of a new template.
type TemplateInput struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// SearchParams are the raw query parameters of a template search.
type SearchParams struct {
	Name      string
	Subject   string
	Content   string
	StartDate string
	EndDate   string
	SortBy    string
	SortOrder string
	Page      string
	Limit     string
}

type TemplateService struct {
	base   attachedService[models.Template, models.TemplatePatch]
	repo   core.TemplateRepository
	logger *logger.Logger
}

func NewTemplateService(repo core.TemplateRepository, store core.AttachmentStore, logger *logger.Logger) *TemplateService {
	return &TemplateService{
		base: attachedService[models.Template, models.TemplatePatch]{
			repo:   repo,
			store:  store,
			logger: logger,
			name:   "TemplateService",
			msgs: resourceMessages{
				invalidID: "Invalid template ID format",
				notFound:  "Template not found",
				duplicate: "Template with this name already exists",
			},
		},
		repo:   repo,
		logger: logger,
	}
}

func (s *TemplateService) List(ctx context.Context) ([]models.Template, error) {
	return s.base.list(ctx)
}

func (s *TemplateService) Names(ctx context.Context) ([]models.NameRef, error) {
	return s.base.names(ctx)
}

func (s *TemplateService) Get(ctx context.Context, id string) (*models.Template, error) {
	return s.base.get(ctx, id)
}

// Create validates in and stores the template together with an optional
// attachment.
func (s *TemplateService) Create(ctx context.Context, in TemplateInput, up *Upload) (*models.Template, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Subject = strings.TrimSpace(in.Subject)
	if in.Name == "" || in.Subject == "" || strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("Name, subject and content are required fields")
	}

	return s.base.create(ctx, up, func(att *models.Attachment) *models.Template {
		return &models.Template{Name: in.Name, Subject: in.Subject, Content: in.Content, Attachment: att}
	})
}

// Update applies the fields present in patch. A new upload replaces the
// current attachment.
func (s *TemplateService) Update(ctx context.Context, id string, patch models.TemplatePatch, up *Upload) (*models.Template, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if patch.Subject != nil {
		subject := strings.TrimSpace(*patch.Subject)
		patch.Subject = &subject
	}
	if blank(patch.Name) || blank(patch.Subject) || blank(patch.Content) {
		return nil, models.NewValidationError("Name, subject and content cannot be empty")
	}
	return s.base.update(ctx, id, patch, up)
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	return s.base.delete(ctx, id)
}

// Download opens the attachment of template id.
func (s *TemplateService) Download(ctx context.Context, id string) (*models.Attachment, io.ReadCloser, error) {
	return s.base.download(ctx, id)
}

// Search returns one page of templates matching p.
func (s *TemplateService) Search(ctx context.Context, p SearchParams) (*models.TemplatePage, error) {
	q, err := ParseTemplateQuery(p)
	if err != nil {
		return nil, err
	}

	templates, total, err := s.repo.Search(ctx, q)
	if err != nil {
		s.logger.Error("TemplateService: failed to search templates", "error", err.Error())
		return nil, err
	}
	return &models.TemplatePage{
		Templates:  templates,
		Pagination: models.NewPagination(total, q.Page, q.Limit, len(templates)),
	}, nil
}

func (s *TemplateService) Stats(ctx context.Context) (*models.TemplateStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		s.logger.Error("TemplateService: failed to compute stats", "error", err.Error())
		return nil, err
	}
	return stats, nil
}

// ParseTemplateQuery validates raw search parameters and applies defaults:
// page 1, limit 10, newest first.
func ParseTemplateQuery(p SearchParams) (models.TemplateQuery, error) {
	q := models.TemplateQuery{
		Name:      strings.TrimSpace(p.Name),
		Subject:   strings.TrimSpace(p.Subject),
		Content:   strings.TrimSpace(p.Content),
		SortBy:    "createdAt",
		SortOrder: models.SortDesc,
		Page:      1,
		Limit:     defaultPageLimit,
	}

	if templateSortFields[p.SortBy] {
		q.SortBy = p.SortBy
	}

	switch strings.ToLower(strings.TrimSpace(p.SortOrder)) {
	case "", "desc":
	case "asc":
		q.SortOrder = models.SortAsc
	default:
		return q, models.NewValidationError("sortOrder must be asc or desc")
	}

	if p.Page != "" {
		page, err := strconv.Atoi(p.Page)
		if err != nil || page < 1 {
			return q, models.NewValidationError("page must be a positive integer")
		}
		if page > maxPage {
			return q, models.NewValidationError("page must not exceed 2147483647")
		}
		q.Page = page
	}
	if p.Limit != "" {
		limit, err := strconv.Atoi(p.Limit)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return q, models.NewValidationError("limit must be between 1 and 100")
		}
		q.Limit = limit
	}

	if p.StartDate != "" {
		start, _, err := parseDate(p.StartDate)
		if err != nil {
			return q, models.NewValidationError("Invalid startDate")
		}
		q.StartDate = &start
	}
	if p.EndDate != "" {
		end, dayOnly, err := parseDate(p.EndDate)
		if err != nil {
			return q, models.NewValidationError("Invalid endDate")
		}
		if dayOnly {
			end = end.Add(24*time.Hour - time.Millisecond)
		}
		q.EndDate = &end
	}
	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(*q.EndDate) {
		return q, models.NewValidationError("startDate must not be after endDate")
	}

	return q, nil
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD days.
func parseDate(v string) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t.UTC(), true, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC(), false, nil
}

func blank(v *string) bool {
	return v != nil && strings.TrimSpace(*v) == ""
}

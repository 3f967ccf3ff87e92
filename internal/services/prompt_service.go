package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/markdave123-py/outreach/internal/core"
	"github.com/markdave123-py/outreach/internal/logger"
	"github.com/markdave123-py/outreach/internal/models"
)

const msgPromptRequired = "Name, agent and prompt are required fields"

// PromptInput carries the fields of a created or upserted AI prompt template.
type PromptInput struct {
	Name        string `json:"name"`
	Agent       string `json:"agent"`
	Prompt      string `json:"prompt"`
	AttachFile  bool   `json:"attachFile"`
	AttachEmail bool   `json:"attachEmail"`
}

func (in *PromptInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Agent = strings.TrimSpace(in.Agent)
	if in.Name == "" || in.Agent == "" || strings.TrimSpace(in.Prompt) == "" {
		return models.NewValidationError(msgPromptRequired)
	}
	return nil
}

type PromptService struct {
	base attachedService[models.AIPromptTemplate, models.PromptTemplatePatch]
	repo core.PromptTemplateRepository
}

func NewPromptService(repo core.PromptTemplateRepository, store core.AttachmentStore, logger *logger.Logger) *PromptService {
	return &PromptService{
		base: attachedService[models.AIPromptTemplate, models.PromptTemplatePatch]{
			repo:   repo,
			store:  store,
			logger: logger,
			name:   "PromptService",
			msgs: resourceMessages{
				invalidID: "Invalid template ID format",
				notFound:  "Template not found",
				duplicate: "AI prompt template with this name already exists",
			},
		},
		repo: repo,
	}
}

func (s *PromptService) List(ctx context.Context) ([]models.AIPromptTemplate, error) {
	return s.base.list(ctx)
}

func (s *PromptService) Names(ctx context.Context) ([]models.NameRef, error) {
	return s.base.names(ctx)
}

func (s *PromptService) Get(ctx context.Context, id string) (*models.AIPromptTemplate, error) {
	return s.base.get(ctx, id)
}

func (s *PromptService) Create(ctx context.Context, in PromptInput, up *Upload) (*models.AIPromptTemplate, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	return s.base.create(ctx, up, func(att *models.Attachment) *models.AIPromptTemplate {
		return &models.AIPromptTemplate{
			Name:        in.Name,
			Agent:       in.Agent,
			Prompt:      in.Prompt,
			AttachFile:  in.AttachFile,
			AttachEmail: in.AttachEmail,
			Attachment:  att,
		}
	})
}

func (s *PromptService) Update(ctx context.Context, id string, patch models.PromptTemplatePatch, up *Upload) (*models.AIPromptTemplate, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if patch.Agent != nil {
		agent := strings.TrimSpace(*patch.Agent)
		patch.Agent = &agent
	}
	if blank(patch.Name) || blank(patch.Agent) || blank(patch.Prompt) {
		return nil, models.NewValidationError("Name, agent and prompt cannot be empty")
	}
	return s.base.update(ctx, id, patch, up)
}

// Upsert creates the template named in.Name or replaces its fields. When a
// file is uploaded the previous one is removed once the existing record has
// been found.
func (s *PromptService) Upsert(ctx context.Context, in PromptInput, up *Upload) (*models.AIPromptTemplate, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, in.Name)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, s.base.translate("find template by name", err)
	}

	att, err := s.base.storeUpload(ctx, up)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.UpsertByName(ctx, &models.AIPromptTemplate{
		Name:        in.Name,
		Agent:       in.Agent,
		Prompt:      in.Prompt,
		AttachFile:  in.AttachFile,
		AttachEmail: in.AttachEmail,
		Attachment:  att,
	})
	if err != nil {
		s.base.discard(ctx, att)
		return nil, s.base.translate("upsert template", err)
	}
	if att != nil && existing != nil {
		s.base.discard(ctx, existing.Attachment)
	}
	return rec, nil
}

func (s *PromptService) Delete(ctx context.Context, id string) error {
	return s.base.delete(ctx, id)
}

func (s *PromptService) Download(ctx context.Context, id string) (*models.Attachment, io.ReadCloser, error) {
	return s.base.download(ctx, id)
}

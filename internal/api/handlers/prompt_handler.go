package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/outreach/internal/api/response"
	"github.com/markdave123-py/outreach/internal/logger"
	"github.com/markdave123-py/outreach/internal/models"
	"github.com/markdave123-py/outreach/internal/services"
)

type promptRequest struct {
	Name        *string `json:"name"`
	Agent       *string `json:"agent"`
	Prompt      *string `json:"prompt"`
	AttachFile  *bool   `json:"attachFile"`
	AttachEmail *bool   `json:"attachEmail"`
}

func (p *promptRequest) fromForm(values map[string][]string) error {
	var err error
	p.Name = formString(values, "name")
	p.Agent = formString(values, "agent")
	p.Prompt = formString(values, "prompt")
	if p.AttachFile, err = formBool(values, "attachFile"); err != nil {
		return err
	}
	if p.AttachEmail, err = formBool(values, "attachEmail"); err != nil {
		return err
	}
	return nil
}

func (p *promptRequest) input() services.PromptInput {
	in := services.PromptInput{Name: deref(p.Name), Agent: deref(p.Agent), Prompt: deref(p.Prompt)}
	if p.AttachFile != nil {
		in.AttachFile = *p.AttachFile
	}
	if p.AttachEmail != nil {
		in.AttachEmail = *p.AttachEmail
	}
	return in
}

type PromptHandler struct {
	prompts *services.PromptService
	logger  *logger.Logger
}

func NewPromptHandler(prompts *services.PromptService, logger *logger.Logger) *PromptHandler {
	return &PromptHandler{prompts: prompts, logger: logger}
}

func (h *PromptHandler) List(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.prompts.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, prompts)
}

func (h *PromptHandler) Names(w http.ResponseWriter, r *http.Request) {
	names, err := h.prompts.Names(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, names)
}

func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.prompts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, p)
}

func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	up, cleanup, err := readRequest(w, r, promptUpload, &req)
	defer cleanup()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	p, err := h.prompts.Create(r.Context(), req.input(), up)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusCreated, p)
}

// Upsert handles POST /upsert and its /file alias.
func (h *PromptHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	up, cleanup, err := readRequest(w, r, promptUpload, &req)
	defer cleanup()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	p, err := h.prompts.Upsert(r.Context(), req.input(), up)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, p)
}

func (h *PromptHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	up, cleanup, err := readRequest(w, r, promptUpload, &req)
	defer cleanup()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	p, err := h.prompts.Update(r.Context(), chi.URLParam(r, "id"), models.PromptTemplatePatch{
		Name:        req.Name,
		Agent:       req.Agent,
		Prompt:      req.Prompt,
		AttachFile:  req.AttachFile,
		AttachEmail: req.AttachEmail,
	}, up)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, p)
}

func (h *PromptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.prompts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Message(w, http.StatusOK, "Template deleted successfully")
}

func (h *PromptHandler) Download(w http.ResponseWriter, r *http.Request) {
	att, body, err := h.prompts.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	serveAttachment(w, att, body, "attachment")
}

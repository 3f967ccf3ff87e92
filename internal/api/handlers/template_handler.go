package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/outreach/internal/api/response"
	"github.com/markdave123-py/outreach/internal/logger"
	"github.com/markdave123-py/outreach/internal/models"
	"github.com/markdave123-py/outreach/internal/services"
)

type templateRequest struct {
	Name    *string `json:"name"`
	Subject *string `json:"subject"`
	Content *string `json:"content"`
}

func (t *templateRequest) fromForm(values map[string][]string) error {
	t.Name = formString(values, "name")
	t.Subject = formString(values, "subject")
	t.Content = formString(values, "content")
	return nil
}

type TemplateHandler struct {
	templates *services.TemplateService
	logger    *logger.Logger
}

func NewTemplateHandler(templates *services.TemplateService, logger *logger.Logger) *TemplateHandler {
	return &TemplateHandler{templates: templates, logger: logger}
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, templates)
}

func (h *TemplateHandler) Names(w http.ResponseWriter, r *http.Request) {
	names, err := h.templates.Names(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, names)
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, tpl)
}

// Search handles GET /templates/search/templates.
func (h *TemplateHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.templates.Search(r.Context(), services.SearchParams{
		Name:      q.Get("name"),
		Subject:   q.Get("subject"),
		Content:   q.Get("content"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      q.Get("page"),
		Limit:     q.Get("limit"),
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, page)
}

func (h *TemplateHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.templates.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, stats)
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	up, cleanup, err := readRequest(w, r, templateUpload, &req)
	defer cleanup()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	tpl, err := h.templates.Create(r.Context(), services.TemplateInput{
		Name:    deref(req.Name),
		Subject: deref(req.Subject),
		Content: deref(req.Content),
	}, up)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusCreated, tpl)
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	up, cleanup, err := readRequest(w, r, templateUpload, &req)
	defer cleanup()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	tpl, err := h.templates.Update(r.Context(), chi.URLParam(r, "id"), models.TemplatePatch{
		Name:    req.Name,
		Subject: req.Subject,
		Content: req.Content,
	}, up)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, tpl)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.templates.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Message(w, http.StatusOK, "Template deleted successfully")
}

func (h *TemplateHandler) Download(w http.ResponseWriter, r *http.Request) {
	att, body, err := h.templates.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	serveAttachment(w, att, body, "attachment")
}

package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/outreach/internal/api/response"
	"github.com/markdave123-py/outreach/internal/logger"
	"github.com/markdave123-py/outreach/internal/models"
	"github.com/markdave123-py/outreach/internal/services"
)

const maxBulkBytes = 10 << 20

type ContactHandler struct {
	contacts *services.ContactService
	logger   *logger.Logger
}

func NewContactHandler(contacts *services.ContactService, logger *logger.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: logger}
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contacts.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, contacts)
}

func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.contacts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, c)
}

func (h *ContactHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in models.ContactInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	c, err := h.contacts.Upsert(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusCreated, c)
}

// Upload upserts a JSON array of contacts.
func (h *ContactHandler) Upload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBulkBytes))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid input format")
		return
	}

	var in []models.ContactInput
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' || json.Unmarshal(trimmed, &in) != nil {
		response.Error(w, http.StatusBadRequest, "Invalid input format")
		return
	}

	res, err := h.contacts.BulkUpsert(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, res)
}

func (h *ContactHandler) Export(w http.ResponseWriter, r *http.Request) {
	out, err := h.contacts.Export(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, out)
}

// Delete deactivates a contact; ?permanent=true removes it.
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	permanent, _ := strconv.ParseBool(r.URL.Query().Get("permanent"))

	if err := h.contacts.Delete(r.Context(), chi.URLParam(r, "id"), permanent); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if permanent {
		response.Message(w, http.StatusOK, "Contact deleted successfully")
		return
	}
	response.Message(w, http.StatusOK, "Contact deactivated successfully")
}

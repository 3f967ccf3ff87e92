package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/markdave123-py/outreach/internal/api/response"
	"github.com/markdave123-py/outreach/internal/logger"
	"github.com/markdave123-py/outreach/internal/models"
)

const msgInternal = "Internal server error"

// writeServiceError maps a service error onto a status and envelope.
// Unexpected errors are logged and never shown to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	var (
		verr     *models.ValidationError
		notFound *models.NotFoundError
		conflict *models.ConflictError
	)

	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, verr.Message)
	case errors.As(err, &conflict):
		response.Error(w, http.StatusBadRequest, conflict.Message)
	case errors.Is(err, models.ErrDuplicateKey):
		response.Error(w, http.StatusBadRequest, "Duplicate key")
	case errors.As(err, &notFound):
		response.Error(w, http.StatusNotFound, notFound.Message)
	case errors.Is(err, models.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Not found")
	case errors.Is(err, models.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, models.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, models.ErrForbidden):
		response.Error(w, http.StatusForbidden, "Forbidden")
	default:
		log.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error())
		response.Error(w, http.StatusInternalServerError, msgInternal)
	}
}

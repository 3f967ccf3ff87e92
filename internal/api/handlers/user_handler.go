package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/markdave123-py/outreach/internal/api/middlewares"
	"github.com/markdave123-py/outreach/internal/api/response"
	"github.com/markdave123-py/outreach/internal/logger"
	"github.com/markdave123-py/outreach/internal/models"
	"github.com/markdave123-py/outreach/internal/services"
)

type registerRequest struct {
	services.RegisterInput
}

func (r *registerRequest) fromForm(values map[string][]string) error {
	r.Name = deref(formString(values, "name"))
	r.Email = deref(formString(values, "email"))
	r.Password = deref(formString(values, "password"))
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// imageOnly accepts a multipart body whose only relevant part is the file.
type imageOnly struct{}

func (imageOnly) fromForm(map[string][]string) error { return nil }

type UserHandler struct {
	users  *services.UserService
	logger *logger.Logger
}

func NewUserHandler(users *services.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	up, cleanup, err := readRequest(w, r, profileUpload, &req)
	defer cleanup()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	res, err := h.users.Register(r.Context(), req.RegisterInput, up)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusCreated, res)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	res, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, res)
}

// Me returns the authenticated user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, h.logger, models.ErrUnauthorized)
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Success(w, http.StatusOK, user)
}

// UpdateProfileImage replaces the profile image of {userId}. Authenticated
// callers may only change their own image.
func (h *UserHandler) UpdateProfileImage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if caller, ok := middleware.UserIDFromContext(r.Context()); ok && caller != userID {
		writeServiceError(w, r, h.logger, models.ErrForbidden)
		return
	}

	up, cleanup, err := readRequest(w, r, profileUpload, &imageOnly{})
	defer cleanup()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	user, err := h.users.UpdateProfileImage(r.Context(), userID, up)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Payload{
		Success: true,
		Message: "Profile image updated successfully",
		Data:    user,
	})
}

func (h *UserHandler) GetProfileImage(w http.ResponseWriter, r *http.Request) {
	att, body, err := h.users.ProfileImage(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	serveAttachment(w, att, body, "")
}

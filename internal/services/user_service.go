package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/outreach/internal/core"
	"github.com/markdave123-py/outreach/internal/logger"
	"github.com/markdave123-py/outreach/internal/models"
)

const (
	minPasswordLength  = 6
	msgInvalidUserID   = "Invalid user ID format"
	msgUserNotFound    = "User not found"
	msgNoProfileImage  = "User or profile image not found"
	msgDuplicateUser   = "Email already exists"
	msgProfileRequired = "Profile image is required"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type UserService struct {
	repo       core.UserRepository
	store      core.AttachmentStore
	tokens     core.TokenManager
	logger     *logger.Logger
	bcryptCost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewUserService(repo core.UserRepository, store core.AttachmentStore, tokens core.TokenManager, bcryptCost int, logger *logger.Logger) *UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, store: store, tokens: tokens, logger: logger, bcryptCost: bcryptCost}
}

func (s *UserService) translate(op, notFound string, err error) error {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return err
	case errors.Is(err, models.ErrNotFound):
		return models.NewNotFoundError(notFound)
	case errors.Is(err, models.ErrDuplicateKey):
		return models.NewConflictError(msgDuplicateUser)
	}
	s.logger.Error("UserService: failed to "+op, "error", err.Error())
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (s *UserService) issue(u *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		s.logger.Error("UserService: failed to issue token", "user_id", u.ID, "error", err.Error())
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{User: u, Token: token}, nil
}

// Register creates an account with an optional profile image and signs the
// user in.
func (s *UserService) Register(ctx context.Context, in RegisterInput, up *Upload) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("Name, email and password are required fields")
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, models.NewValidationError("Invalid email format")
	}
	if len(in.Password) < minPasswordLength {
		return nil, models.NewValidationError("Password must be at least 6 characters long")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, models.NewValidationError("Password must be at most 72 bytes long")
		}
		s.logger.Error("UserService: failed to hash password", "error", err.Error())
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	image, err := saveUpload(ctx, s.store, s.logger, "UserService", up)
	if err != nil {
		return nil, err
	}

	user := &models.User{Name: in.Name, Email: in.Email, PasswordHash: string(hash), ProfileImage: image}
	if err := s.repo.Create(ctx, user); err != nil {
		discardAttachment(ctx, s.store, s.logger, "UserService", image)
		return nil, s.translate("create user", msgUserNotFound, err)
	}

	s.logger.Info("UserService: user registered", "user_id", user.ID)
	return s.issue(user)
}

// dummy returns a hash compared against when the email is unknown, so
// both login failures cost the same.
func (s *UserService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("outreach-placeholder"), s.bcryptCost)
	})
	return s.dummyHash
}

// Login verifies the credentials and issues a new token. Unknown emails and
// wrong passwords fail with the same ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, s.translate("find user", msgUserNotFound, err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return nil, models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if !models.ValidID(id) {
		return nil, models.NewValidationError(msgInvalidUserID)
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.translate("get user", msgUserNotFound, err)
	}
	return user, nil
}

// UpdateProfileImage replaces the profile image of user id. The previous
// image is removed once the user is known.
func (s *UserService) UpdateProfileImage(ctx context.Context, id string, up *Upload) (*models.User, error) {
	if !models.ValidID(id) {
		return nil, models.NewValidationError(msgInvalidUserID)
	}
	if up == nil {
		return nil, models.NewValidationError(msgProfileRequired)
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	image, err := saveUpload(ctx, s.store, s.logger, "UserService", up)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.SetProfileImage(ctx, id, image)
	if err != nil {
		discardAttachment(ctx, s.store, s.logger, "UserService", image)
		return nil, s.translate("update profile image", msgUserNotFound, err)
	}
	discardAttachment(ctx, s.store, s.logger, "UserService", user.ProfileImage)
	return updated, nil
}

// ProfileImage opens the stored profile image of user id.
func (s *UserService) ProfileImage(ctx context.Context, id string) (*models.Attachment, io.ReadCloser, error) {
	if !models.ValidID(id) {
		return nil, nil, models.NewValidationError(msgInvalidUserID)
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, s.translate("get user", msgNoProfileImage, err)
	}
	return openAttachment(ctx, s.store, s.logger, "UserService", user.ProfileImage, msgNoProfileImage)
}

// Package accounts implements registration, login and profile management.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"lms/internal/apperr"
	"lms/internal/auth"
	"lms/internal/constants"
	"lms/internal/db"
	"lms/internal/media"
	"lms/internal/models"
	"lms/internal/sanitize"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

type Session struct {
	Token     string
	ExpiresAt time.Time
}

type RegisterInput struct {
	FullName string
	Email    string
	Password string
	Avatar   *media.Upload
}

type UpdateProfileInput struct {
	FullName *string
	Avatar   *media.Upload
}

type Service struct {
	users            UserStore
	sessions         *auth.JWTService
	media            *media.Coordinator
	folder           string
	defaultAvatarURL string
	logger           *slog.Logger
}

func NewService(users UserStore, sessions *auth.JWTService, coordinator *media.Coordinator, folder, defaultAvatarURL string) *Service {
	return &Service{
		users:            users,
		sessions:         sessions,
		media:            coordinator,
		folder:           folder,
		defaultAvatarURL: defaultAvatarURL,
		logger:           slog.Default().With("component", "accounts"),
	}
}

// Register creates the account with the default avatar, then attaches the
// uploaded avatar if one was sent. A failed avatar upload is reported but the
// account stays registered.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, *Session, error) {
	fullName := sanitize.Text(in.FullName)
	email := normalizeEmail(in.Email)
	if fullName == "" || email == "" || in.Password == "" {
		return nil, nil, apperr.Validation("All fields are required")
	}
	if err := validateFullName(fullName); err != nil {
		return nil, nil, err
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, apperr.Validation("Invalid email format")
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, nil, err
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, nil, apperr.Conflict("Email already exists")
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, nil, apperr.Persistence("", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, nil, apperr.Internal("", err)
	}

	user := &models.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Avatar:       models.MediaRef{URL: s.defaultAvatarURL},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, nil, apperr.Conflict("Email already exists")
		}
		return nil, nil, persistenceError(err)
	}

	if in.Avatar != nil {
		if _, err := s.media.Attach(ctx, &user.Avatar, in.Avatar, media.AvatarOptions(s.folder)); err != nil {
			return nil, nil, err
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, nil, persistenceError(err)
		}
	}

	session, err := s.issueSession(user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, session, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*models.User, *Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, apperr.Validation("All fields are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil, apperr.Auth("Email or password does not match")
	}
	if err != nil {
		return nil, nil, apperr.Persistence("", err)
	}
	if !auth.ComparePassword(user.PasswordHash, password) {
		return nil, nil, apperr.Auth("Email or password does not match")
	}

	session, err := s.issueSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("User does not exist")
	}
	if err != nil {
		return nil, apperr.Persistence("", err)
	}
	return user, nil
}

// UpdateProfile applies the fields that are set. A new avatar replaces the
// current one; the default avatar owns no remote asset and is never destroyed.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*models.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FullName != nil {
		fullName := sanitize.Text(*in.FullName)
		if err := validateFullName(fullName); err != nil {
			return nil, err
		}
		user.FullName = fullName
	}

	if in.Avatar != nil {
		if _, err := s.media.Replace(ctx, &user.Avatar, in.Avatar, media.AvatarOptions(s.folder)); err != nil {
			return nil, err
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, persistenceError(err)
	}
	return user, nil
}

func (s *Service) issueSession(userID string) (*Session, error) {
	token, expiresAt, err := s.sessions.IssueSessionToken(userID)
	if err != nil {
		return nil, apperr.Internal("", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

func validateFullName(name string) error {
	n := len([]rune(name))
	if n < constants.FullNameMinLength || n > constants.FullNameMaxLength {
		return apperr.Validation(fmt.Sprintf("Full name must be between %d and %d characters",
			constants.FullNameMinLength, constants.FullNameMaxLength))
	}
	return nil
}

// persistenceError keeps record validation failures client visible.
func persistenceError(err error) error {
	var validationErr *db.ValidationError
	if errors.As(err, &validationErr) {
		return apperr.New(apperr.KindValidation, validationErr.Error(), err)
	}
	return apperr.Persistence("", err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

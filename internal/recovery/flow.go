// Package recovery implements forgot-password, reset-password and
// change-password on top of the user store and the recovery token service.
package recovery

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"lms/internal/apperr"
	"lms/internal/auth"
	"lms/internal/db"
	"lms/internal/models"
)

var ErrInvalidOrExpiredToken = apperr.Auth("Token is invalid or expired, please try again")

type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByValidRecoveryToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type Flow struct {
	users       UserStore
	tokens      *auth.RecoveryTokenService
	mailer      Mailer
	frontendURL string
	logger      *slog.Logger
}

func NewFlow(users UserStore, tokens *auth.RecoveryTokenService, mailer Mailer, frontendURL string) *Flow {
	return &Flow{
		users:       users,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      slog.Default().With("component", "recovery"),
	}
}

// ForgotPassword issues a recovery token for the account behind email and
// mails the reset link. If the mail cannot be delivered the token is cleared
// again so no live token exists that the user never received.
func (f *Flow) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperr.Validation("Email is required")
	}

	user, err := f.users.FindByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("Email is not registered")
	}
	if err != nil {
		return apperr.Persistence("", err)
	}

	plain, err := f.tokens.IssueRecoveryToken(user)
	if err != nil {
		return apperr.Internal("", err)
	}
	if err := f.users.Update(ctx, user); err != nil {
		return apperr.Persistence("", err)
	}

	subject, body, err := renderResetMessage(f.ResetURL(plain), f.tokens.Window())
	if err == nil {
		err = f.mailer.Send(ctx, user.Email, subject, body)
	}
	if err != nil {
		f.logger.Error("error sending recovery mail", "user_id", user.ID, "error", err)

		user.ClearRecovery()
		if clearErr := f.users.Update(context.WithoutCancel(ctx), user); clearErr != nil {
			f.logger.Error("error clearing undelivered recovery token", "user_id", user.ID, "error", clearErr)
		}
		return apperr.Internal("Error sending reset email, please try again", err)
	}

	f.logger.Info("recovery token issued", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a recovery token. Unknown and expired tokens fail
// with the same error.
func (f *Flow) ResetPassword(ctx context.Context, plainToken, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}
	if plainToken == "" {
		return ErrInvalidOrExpiredToken
	}

	user, err := f.users.FindByValidRecoveryToken(ctx, auth.HashRecoveryToken(plainToken), f.tokens.Now())
	if errors.Is(err, db.ErrNotFound) {
		return ErrInvalidOrExpiredToken
	}
	if err != nil {
		return apperr.Persistence("", err)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal("", err)
	}
	user.PasswordHash = hash
	user.ClearRecovery()

	if err := f.users.Update(ctx, user); err != nil {
		return apperr.Persistence("", err)
	}

	f.logger.Info("password reset", "user_id", user.ID)
	return nil
}

func (f *Flow) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperr.Validation("All fields are mandatory")
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := f.users.FindByID(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("User does not exist")
	}
	if err != nil {
		return apperr.Persistence("", err)
	}

	if !auth.ComparePassword(user.PasswordHash, oldPassword) {
		return apperr.Auth("Invalid old password")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal("", err)
	}
	user.PasswordHash = hash

	if err := f.users.Update(ctx, user); err != nil {
		return apperr.Persistence("", err)
	}
	return nil
}

func (f *Flow) ResetURL(plainToken string) string {
	return f.frontendURL + "/reset-password/" + plainToken
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

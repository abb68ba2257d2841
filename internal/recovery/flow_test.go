package recovery

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms/internal/apperr"
	"lms/internal/auth"
	"lms/internal/db"
	"lms/internal/models"
)

var resetLink = regexp.MustCompile(`/reset-password/([0-9a-f]+)`)

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (m *fakeMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

func (m *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	match := resetLink.FindStringSubmatch(m.sent[len(m.sent)-1].body)
	require.Len(t, match, 2)
	return match[1]
}

type fixture struct {
	users  *db.UserRepository
	tokens *auth.RecoveryTokenService
	mailer *fakeMailer
	flow   *Flow
	user   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "lms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	users := db.NewUserRepository(database)
	hash, err := auth.HashPassword("old-password")
	require.NoError(t, err)
	user := &models.User{FullName: "Ada Lovelace", Email: "a@x.com", PasswordHash: hash}
	require.NoError(t, users.Create(context.Background(), user))

	tokens := auth.NewRecoveryTokenService(15*time.Minute, 20)
	mailer := &fakeMailer{}
	return &fixture{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		flow:   NewFlow(users, tokens, mailer, "https://learn.example.com/"),
		user:   user,
	}
}

func TestForgotThenResetThenReuseFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.ForgotPassword(ctx, "A@X.com "))
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "a@x.com", f.mailer.sent[0].to)
	assert.Contains(t, f.mailer.sent[0].body, "https://learn.example.com/reset-password/")

	token := f.mailer.lastToken(t)
	stored, err := f.users.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	require.True(t, stored.HasRecovery())
	assert.NotEqual(t, token, *stored.RecoveryTokenHash)

	require.NoError(t, f.flow.ResetPassword(ctx, token, "brand-new-password"))

	stored, err = f.users.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasRecovery())
	assert.True(t, auth.ComparePassword(stored.PasswordHash, "brand-new-password"))
	assert.False(t, f.tokens.VerifyRecoveryToken(token, stored))

	err = f.flow.ResetPassword(ctx, token, "another-password")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)

	err := f.flow.ForgotPassword(context.Background(), "nobody@x.com")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, f.mailer.sent)
}

func TestForgotPasswordMailFailureClearsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var captured string
	f.flow.mailer = mailerFunc(func(_ context.Context, _, _, body string) error {
		match := resetLink.FindStringSubmatch(body)
		require.Len(t, match, 2)
		captured = match[1]
		return errors.New("smtp down")
	})

	err := f.flow.ForgotPassword(ctx, "a@x.com")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	stored, err := f.users.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasRecovery())
	assert.Nil(t, stored.RecoveryTokenHash)
	assert.Nil(t, stored.RecoveryTokenExpiry)

	assert.ErrorIs(t, f.flow.ResetPassword(ctx, captured, "brand-new-password"), ErrInvalidOrExpiredToken)
}

func TestSecondForgotInvalidatesFirstToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.ForgotPassword(ctx, "a@x.com"))
	first := f.mailer.lastToken(t)
	require.NoError(t, f.flow.ForgotPassword(ctx, "a@x.com"))
	second := f.mailer.lastToken(t)
	require.NotEqual(t, first, second)

	assert.ErrorIs(t, f.flow.ResetPassword(ctx, first, "brand-new-password"), ErrInvalidOrExpiredToken)
	assert.NoError(t, f.flow.ResetPassword(ctx, second, "brand-new-password"))
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.flow.ForgotPassword(ctx, "a@x.com"))
	token := f.mailer.lastToken(t)

	f.flow.tokens = f.tokens.WithClock(func() time.Time { return time.Now().Add(16 * time.Minute) })
	assert.ErrorIs(t, f.flow.ResetPassword(ctx, token, "brand-new-password"), ErrInvalidOrExpiredToken)

	stored, err := f.users.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, auth.ComparePassword(stored.PasswordHash, "old-password"))
}

func TestResetPasswordValidatesNewPassword(t *testing.T) {
	f := newFixture(t)

	err := f.flow.ResetPassword(context.Background(), "deadbeef", "short")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.flow.ChangePassword(ctx, f.user.ID, "wrong-password", "brand-new-password")
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
	assert.Equal(t, "Invalid old password", apperr.MessageOf(err))

	err = f.flow.ChangePassword(ctx, "usr_missing", "old-password", "brand-new-password")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	require.NoError(t, f.flow.ChangePassword(ctx, f.user.ID, "old-password", "brand-new-password"))
	stored, err := f.users.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, auth.ComparePassword(stored.PasswordHash, "brand-new-password"))
}

func TestResetMessageEscapesURL(t *testing.T) {
	subject, body, err := renderResetMessage(`https://x.test/reset-password/"><script>`, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "Reset Password", subject)
	assert.False(t, strings.Contains(body, "<script>"))
	assert.Contains(t, body, "15 minutes")
}

type mailerFunc func(ctx context.Context, to, subject, htmlBody string) error

func (f mailerFunc) Send(ctx context.Context, to, subject, htmlBody string) error {
	return f(ctx, to, subject, htmlBody)
}

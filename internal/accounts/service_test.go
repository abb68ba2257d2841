package accounts

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms/internal/apperr"
	"lms/internal/auth"
	"lms/internal/db"
	"lms/internal/media"
	"lms/internal/models"
)

const defaultAvatar = "http://localhost:8080/static/default-avatar.png"

type stubStore struct {
	uploadErr error
	uploaded  int
	destroyed []string
}

func (s *stubStore) Upload(_ context.Context, _ string, opts media.UploadOptions) (models.MediaRef, error) {
	if s.uploadErr != nil {
		return models.MediaRef{}, s.uploadErr
	}
	s.uploaded++
	id := opts.Folder + "/avatar-" + string(rune('a'+s.uploaded-1))
	return models.MediaRef{ID: id, URL: "https://cdn.example.com/" + id}, nil
}

func (s *stubStore) Destroy(_ context.Context, publicID string, _ media.DestroyOptions) error {
	s.destroyed = append(s.destroyed, publicID)
	return nil
}

type fixture struct {
	svc   *Service
	store *stubStore
	coord *media.Coordinator
	jwt   *auth.JWTService
	area  *media.TempArea
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "lms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	area, err := media.NewTempArea(t.TempDir())
	require.NoError(t, err)

	store := &stubStore{}
	coord := media.NewCoordinator(store)
	t.Cleanup(coord.Wait)
	jwt := auth.NewJWTService(strings.Repeat("s", 32), time.Hour)

	return &fixture{
		svc:   NewService(db.NewUserRepository(database), jwt, coord, "lms", defaultAvatar),
		store: store,
		coord: coord,
		jwt:   jwt,
		area:  area,
	}
}

func (f *fixture) upload(t *testing.T) *media.Upload {
	t.Helper()

	scope, err := f.area.NewScope()
	require.NoError(t, err)
	upload, err := scope.Save("avatar.png", strings.NewReader("png"), 0)
	require.NoError(t, err)
	return upload
}

func TestRegisterWithoutAvatarUsesDefault(t *testing.T) {
	f := newFixture(t)

	user, session, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "<b>Ada</b> Lovelace",
		Email:    " A@X.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", user.FullName)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, models.MediaRef{URL: defaultAvatar}, user.Avatar)
	assert.Zero(t, f.store.uploaded)

	userID, err := f.jwt.VerifySessionToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestRegisterWithAvatarAttaches(t *testing.T) {
	f := newFixture(t)

	user, _, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "Ada Lovelace",
		Email:    "a@x.com",
		Password: "correct-horse",
		Avatar:   f.upload(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "lms/avatar-a", user.Avatar.ID)

	stored, err := f.svc.Profile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Avatar, stored.Avatar)
}

func TestRegisterAvatarFailureKeepsDefault(t *testing.T) {
	f := newFixture(t)
	f.store.uploadErr = errors.New("store down")

	_, _, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "Ada Lovelace",
		Email:    "a@x.com",
		Password: "correct-horse",
		Avatar:   f.upload(t),
	})
	require.ErrorIs(t, err, media.ErrUploadFailed)

	user, _, err := f.svc.Login(context.Background(), "a@x.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, models.MediaRef{URL: defaultAvatar}, user.Avatar)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	in := RegisterInput{FullName: "Ada Lovelace", Email: "a@x.com", Password: "correct-horse"}

	_, _, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)

	_, _, err = f.svc.Register(context.Background(), in)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Email already exists", apperr.MessageOf(err))
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "missing fields", in: RegisterInput{Email: "a@x.com"}},
		{name: "short name", in: RegisterInput{FullName: "Al", Email: "a@x.com", Password: "correct-horse"}},
		{name: "bad email", in: RegisterInput{FullName: "Ada Lovelace", Email: "nope", Password: "correct-horse"}},
		{name: "short password", in: RegisterInput{FullName: "Ada Lovelace", Email: "a@x.com", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Register(context.Background(), tt.in)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Register(context.Background(), RegisterInput{FullName: "Ada Lovelace", Email: "a@x.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, _, err = f.svc.Login(context.Background(), "a@x.com", "wrong-horse")
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))

	_, _, err = f.svc.Login(context.Background(), "b@x.com", "correct-horse")
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
	assert.Equal(t, "Email or password does not match", apperr.MessageOf(err))
}

func TestUpdateProfileReplacesAvatar(t *testing.T) {
	f := newFixture(t)
	user, _, err := f.svc.Register(context.Background(), RegisterInput{
		FullName: "Ada Lovelace",
		Email:    "a@x.com",
		Password: "correct-horse",
		Avatar:   f.upload(t),
	})
	require.NoError(t, err)

	name := "Augusta Ada King"
	updated, err := f.svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		FullName: &name,
		Avatar:   f.upload(t),
	})
	require.NoError(t, err)

	assert.Equal(t, "Augusta Ada King", updated.FullName)
	assert.Equal(t, "lms/avatar-b", updated.Avatar.ID)
	assert.Equal(t, []string{"lms/avatar-a"}, f.store.destroyed)
}

func TestUpdateProfileDoesNotDestroyDefaultAvatar(t *testing.T) {
	f := newFixture(t)
	user, _, err := f.svc.Register(context.Background(), RegisterInput{FullName: "Ada Lovelace", Email: "a@x.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = f.svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Avatar: f.upload(t)})
	require.NoError(t, err)
	assert.Empty(t, f.store.destroyed)
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateProfile(context.Background(), "usr_missing", UpdateProfileInput{})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lms/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := Open(filepath.Join(t.TempDir(), "lms.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}

func createTestUser(t *testing.T, repo *UserRepository, email string) *models.User {
	t.Helper()

	user := &models.User{
		FullName:     "Ada Lovelace",
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Avatar:       models.MediaRef{URL: "http://localhost/static/default-avatar.png"},
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return user
}

func TestUserCreateAndFind(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	user := createTestUser(t, repo, "ada@example.com")

	if user.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}

	byID, err := repo.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if byID.Email != "ada@example.com" {
		t.Fatalf("email = %q, want %q", byID.Email, "ada@example.com")
	}
	if byID.Avatar.URL != user.Avatar.URL || byID.Avatar.ID != "" {
		t.Fatalf("avatar = %+v, want %+v", byID.Avatar, user.Avatar)
	}
	if byID.HasRecovery() {
		t.Fatal("new user should not carry a recovery token")
	}

	byEmail, err := repo.FindByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("id = %q, want %q", byEmail.ID, user.ID)
	}
}

func TestUserCreateRejectsDuplicateEmail(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	createTestUser(t, repo, "ada@example.com")

	dup := &models.User{FullName: "Someone Else", Email: "ada@example.com", PasswordHash: "hash"}
	if err := repo.Create(context.Background(), dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Create() error = %v, want ErrDuplicate", err)
	}
}

func TestUserCreateRunsValidators(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))

	err := repo.Create(context.Background(), &models.User{FullName: "Al", Email: "al@example.com", PasswordHash: "hash"})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Create() error = %v, want *ValidationError", err)
	}
	if validationErr.Error() != "invalid fullname (min)" {
		t.Fatalf("message = %q", validationErr.Error())
	}
}

func TestUserFindMissing(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))

	if _, err := repo.FindByID(context.Background(), "usr_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindByID() error = %v, want ErrNotFound", err)
	}
	if _, err := repo.FindByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestFindByValidRecoveryToken(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	user := createTestUser(t, repo, "ada@example.com")
	now := time.Now().UTC()

	user.SetRecovery("hash-1", now.Add(15*time.Minute))
	if err := repo.Update(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	found, err := repo.FindByValidRecoveryToken(context.Background(), "hash-1", now)
	if err != nil {
		t.Fatalf("FindByValidRecoveryToken() error = %v", err)
	}
	if found.ID != user.ID {
		t.Fatalf("id = %q, want %q", found.ID, user.ID)
	}
	if !found.HasRecovery() || *found.RecoveryTokenHash != "hash-1" {
		t.Fatalf("recovery hash not persisted: %+v", found.RecoveryTokenHash)
	}

	if _, err := repo.FindByValidRecoveryToken(context.Background(), "hash-2", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong hash error = %v, want ErrNotFound", err)
	}
	if _, err := repo.FindByValidRecoveryToken(context.Background(), "hash-1", now.Add(16*time.Minute)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired token error = %v, want ErrNotFound", err)
	}
}

func TestUpdateClearsRecovery(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	user := createTestUser(t, repo, "ada@example.com")

	user.SetRecovery("hash-1", time.Now().UTC().Add(time.Minute))
	if err := repo.Update(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	user.ClearRecovery()
	user.PasswordHash = "new-hash"
	if err := repo.Update(context.Background(), user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stored, err := repo.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.HasRecovery() || stored.RecoveryTokenHash != nil || stored.RecoveryTokenExpiry != nil {
		t.Fatal("recovery fields should both be cleared")
	}
	if stored.PasswordHash != "new-hash" {
		t.Fatalf("password hash = %q, want %q", stored.PasswordHash, "new-hash")
	}
	if stored.UpdatedAt == nil {
		t.Fatal("updated_at should be set")
	}
}

func TestUpdateRejectsHalfSetRecovery(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))
	user := createTestUser(t, repo, "ada@example.com")

	hash := "hash-only"
	user.RecoveryTokenHash = &hash
	if err := repo.Update(context.Background(), user); err == nil {
		t.Fatal("Update() error = nil, want error for hash without expiry")
	}
}

func TestUpdateMissingUser(t *testing.T) {
	repo := NewUserRepository(openTestDB(t))

	user := &models.User{ID: "usr_missing", FullName: "Nobody Here", Email: "x@example.com", PasswordHash: "hash"}
	if err := repo.Update(context.Background(), user); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
}

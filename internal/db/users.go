package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lms/internal/models"
)

const userColumns = `id, full_name, email, password_hash, avatar_public_id, avatar_url,
	recovery_token_hash, recovery_token_expiry, created_at, updated_at`

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u, assigning its ID and CreatedAt. A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if err := validateRecord(u); err != nil {
		return err
	}

	id, err := GenerateID("usr")
	if err != nil {
		return fmt.Errorf("generating user ID: %w", err)
	}
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, full_name, email, password_hash, avatar_public_id, avatar_url,
			recovery_token_hash, recovery_token_expiry, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, u.FullName, u.Email, u.PasswordHash, u.Avatar.ID, u.Avatar.URL,
		stringPtrToNull(u.RecoveryTokenHash), timePtrToNull(u.RecoveryTokenExpiry), now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("creating user: %w", err)
	}

	u.ID = id
	u.CreatedAt = now
	u.UpdatedAt = nil
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// FindByValidRecoveryToken matches hash and a future expiry in one predicate,
// so a miss does not reveal which half failed.
func (r *UserRepository) FindByValidRecoveryToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return r.findOne(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE recovery_token_hash = ?
		   AND recovery_token_expiry > ?`,
		tokenHash, now.UTC(),
	)
}

// Update writes every mutable field of u after running its validators.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	if err := validateRecord(u); err != nil {
		return err
	}
	if (u.RecoveryTokenHash == nil) != (u.RecoveryTokenExpiry == nil) {
		return fmt.Errorf("updating user: recovery token hash and expiry must be set together")
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		    SET full_name = ?,
		        email = ?,
		        password_hash = ?,
		        avatar_public_id = ?,
		        avatar_url = ?,
		        recovery_token_hash = ?,
		        recovery_token_expiry = ?,
		        updated_at = ?
		  WHERE id = ?`,
		u.FullName, u.Email, u.PasswordHash, u.Avatar.ID, u.Avatar.URL,
		stringPtrToNull(u.RecoveryTokenHash), timePtrToNull(u.RecoveryTokenExpiry), now,
		u.ID,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("updating user: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return err
	}

	u.UpdatedAt = &now
	return nil
}

// ClearExpiredRecovery drops recovery pairs whose window closed before now.
func (r *UserRepository) ClearExpiredRecovery(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		    SET recovery_token_hash = NULL,
		        recovery_token_expiry = NULL
		  WHERE recovery_token_expiry IS NOT NULL
		    AND recovery_token_expiry <= ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("clearing expired recovery tokens: %w", err)
	}
	return result.RowsAffected()
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	var recoveryHash sql.NullString
	var recoveryExpiry, updatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.PasswordHash,
		&u.Avatar.ID,
		&u.Avatar.URL,
		&recoveryHash,
		&recoveryExpiry,
		&u.CreatedAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.RecoveryTokenHash = nullStringToPtr(recoveryHash)
	u.RecoveryTokenExpiry = nullTimeToPtr(recoveryExpiry)
	u.UpdatedAt = nullTimeToPtr(updatedAt)

	return &u, nil
}

package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	sqlite3 "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

// ValidationError reports a record that failed its field validators.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	var fieldErrs validator.ValidationErrors
	if errors.As(e.Err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return fmt.Sprintf("invalid %s (%s)", strings.ToLower(first.Field()), first.Tag())
	}
	return "invalid record: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func IsUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	if sqliteErr.Code != sqlite3.ErrConstraint {
		return false
	}

	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

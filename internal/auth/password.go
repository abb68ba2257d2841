package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"lms/internal/apperr"
	"lms/internal/constants"
)

// ValidatePassword enforces the length limits for any password about to be
// hashed. The upper bound is bcrypt's input limit.
func ValidatePassword(password string) error {
	if password == "" {
		return apperr.Validation("Password is required")
	}
	if len(password) < constants.PasswordMinLength {
		return apperr.Validation(fmt.Sprintf("Password must be at least %d characters", constants.PasswordMinLength))
	}
	if len(password) > constants.PasswordMaxLength {
		return apperr.Validation(fmt.Sprintf("Password must be at most %d characters", constants.PasswordMaxLength))
	}
	return nil
}

func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hashed), nil
}

// ComparePassword reports whether plain matches hash. Malformed hashes count
// as a mismatch.
func ComparePassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

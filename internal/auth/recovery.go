package auth

import (
	"crypto/subtle"
	"fmt"
	"time"

	"lms/internal/models"
)

const (
	DefaultRecoveryWindow       = 15 * time.Minute
	DefaultRecoveryEntropyBytes = 20
	minRecoveryEntropyBytes     = 16
)

// RecoveryTokenService issues and checks one-time password recovery tokens.
// Only the sha256 digest of a token is ever written to the user record.
type RecoveryTokenService struct {
	window       time.Duration
	entropyBytes int
	now          func() time.Time
}

func NewRecoveryTokenService(window time.Duration, entropyBytes int) *RecoveryTokenService {
	if window <= 0 {
		window = DefaultRecoveryWindow
	}
	if entropyBytes < minRecoveryEntropyBytes {
		entropyBytes = DefaultRecoveryEntropyBytes
	}
	return &RecoveryTokenService{
		window:       window,
		entropyBytes: entropyBytes,
		now:          time.Now,
	}
}

func (s *RecoveryTokenService) Window() time.Duration {
	return s.window
}

// IssueRecoveryToken stores a fresh {hash, expiry} pair on user, replacing any
// earlier pair, and returns the plaintext. The caller persists the user.
func (s *RecoveryTokenService) IssueRecoveryToken(user *models.User) (string, error) {
	plain, err := generateSecureToken(s.entropyBytes)
	if err != nil {
		return "", fmt.Errorf("generating recovery token: %w", err)
	}

	user.SetRecovery(HashRecoveryToken(plain), s.now().Add(s.window).UTC())
	return plain, nil
}

// VerifyRecoveryToken reports whether plain matches the stored hash and the
// stored expiry is still in the future. Both must hold.
func (s *RecoveryTokenService) VerifyRecoveryToken(plain string, user *models.User) bool {
	if user == nil || !user.HasRecovery() || plain == "" {
		return false
	}

	hashMatches := subtle.ConstantTimeCompare([]byte(HashRecoveryToken(plain)), []byte(*user.RecoveryTokenHash)) == 1
	notExpired := s.now().Before(*user.RecoveryTokenExpiry)

	return hashMatches && notExpired
}

// WithClock returns a copy of s that reads the current time from now.
func (s *RecoveryTokenService) WithClock(now func() time.Time) *RecoveryTokenService {
	c := *s
	c.now = now
	return &c
}

// Now is the clock used for expiry, exposed so lookups share it.
func (s *RecoveryTokenService) Now() time.Time {
	return s.now()
}

func HashRecoveryToken(plain string) string {
	return hashToken(plain)
}

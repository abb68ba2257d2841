package models

import "time"

// MediaRef identifies one asset held by the media store. The coordinator
// stores it and hands it back for destroy calls without interpreting it.
type MediaRef struct {
	ID  string `json:"publicId"`
	URL string `json:"secureUrl"`
}

// IsZero reports whether the reference points at no remote asset. A
// reference with only a URL (the default avatar) owns nothing to destroy.
func (m MediaRef) IsZero() bool {
	return m.ID == ""
}

type User struct {
	ID                  string     `json:"id"`
	FullName            string     `json:"fullName" validate:"required,min=3,max=50"`
	Email               string     `json:"email" validate:"required,email,max=254"`
	PasswordHash        string     `json:"-" validate:"required"`
	Avatar              MediaRef   `json:"avatar"`
	RecoveryTokenHash   *string    `json:"-"`
	RecoveryTokenExpiry *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           *time.Time `json:"updatedAt,omitempty"`
}

func (u *User) SetRecovery(hash string, expiry time.Time) {
	u.RecoveryTokenHash = &hash
	u.RecoveryTokenExpiry = &expiry
}

func (u *User) ClearRecovery() {
	u.RecoveryTokenHash = nil
	u.RecoveryTokenExpiry = nil
}

func (u *User) HasRecovery() bool {
	return u.RecoveryTokenHash != nil && u.RecoveryTokenExpiry != nil
}

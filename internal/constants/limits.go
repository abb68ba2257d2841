package constants

import "time"

const (
	// IDRandomBytes is the entropy of generated record identifiers.
	IDRandomBytes = 12

	MaxJSONBodyBytes = 1 << 20

	PasswordMinLength = 8
	PasswordMaxLength = 72 // bcrypt input limit

	FullNameMinLength = 3
	FullNameMaxLength = 50

	CourseTitleMaxLength       = 100
	CourseDescriptionMaxLength = 2000
	CourseCategoryMaxLength    = 50

	// LectureVideoChunkSize is the chunk size requested for lecture video uploads.
	LectureVideoChunkSize = 50_000_000

	AvatarEdge = 250

	// DefaultAvatarPath is where the server serves its bundled avatar.
	DefaultAvatarPath = "/static/default-avatar.png"

	DefaultRecoveryTokenWindow = 15 * time.Minute
	DefaultSessionTTL          = 7 * 24 * time.Hour
)

package constants

const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeAuthFailed        = "AUTH_FAILED"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeMediaUpload       = "MEDIA_UPLOAD_FAILED"
	ErrCodePersistence       = "PERSISTENCE_ERROR"
	ErrCodeAttachmentInvalid = "ATTACHMENT_INVALID"
)

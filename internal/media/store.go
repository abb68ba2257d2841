// Package media keeps externally stored assets consistent with the records
// that reference them.
package media

import (
	"context"

	"lms/internal/models"
)

// Store is the external media service. Upload reads the file at localPath
// and returns the reference of the stored asset; Destroy removes the asset
// addressed by publicID.
type Store interface {
	Upload(ctx context.Context, localPath string, opts UploadOptions) (models.MediaRef, error)
	Destroy(ctx context.Context, publicID string, opts DestroyOptions) error
}

package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"lms/internal/apperr"
	"lms/internal/models"
)

var ErrUploadFailed = errors.New("media upload failed")

// Coordinator attaches, replaces and releases assets held by a Store and
// owns the lifecycle of the staged files that feed it.
type Coordinator struct {
	store    Store
	logger   *slog.Logger
	cleanups sync.WaitGroup
}

func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{
		store:  store,
		logger: slog.Default().With("component", "media"),
	}
}

// Attach uploads upload and stores the resulting reference in slot. A nil
// upload leaves slot untouched. On failure slot keeps its value and every
// file staged by the same request is removed before returning.
func (c *Coordinator) Attach(ctx context.Context, slot *models.MediaRef, upload *Upload, opts UploadOptions) (models.MediaRef, error) {
	if slot == nil {
		return models.MediaRef{}, apperr.Internal("media slot is required", nil)
	}
	if upload == nil {
		return *slot, nil
	}

	ref, err := c.store.Upload(ctx, upload.Path, opts)
	if err != nil {
		c.purge(upload)
		return *slot, apperr.UpstreamMedia("Error uploading media, please try again", fmt.Errorf("%w: %w", ErrUploadFailed, err))
	}

	*slot = ref
	c.removeDetached(upload.Path)
	return ref, nil
}

// Replace destroys the asset currently held by slot and attaches upload in
// its place. A nil upload is a no-op. A failed destroy is logged and does not
// stop the new upload.
func (c *Coordinator) Replace(ctx context.Context, slot *models.MediaRef, upload *Upload, opts UploadOptions) (models.MediaRef, error) {
	if slot == nil {
		return models.MediaRef{}, apperr.Internal("media slot is required", nil)
	}
	if upload == nil {
		return *slot, nil
	}

	if !slot.IsZero() {
		if err := c.store.Destroy(ctx, slot.ID, DestroyOptionsFor(opts)); err != nil {
			c.logger.Warn("error destroying replaced media", "public_id", slot.ID, "error", err)
		}
	}

	return c.Attach(ctx, slot, upload, opts)
}

// Release destroys the asset behind ref. Failures are logged only; the
// caller's metadata change goes ahead regardless.
func (c *Coordinator) Release(ctx context.Context, ref models.MediaRef, opts DestroyOptions) {
	if ref.IsZero() {
		return
	}
	if err := c.store.Destroy(ctx, ref.ID, opts); err != nil {
		c.logger.Warn("error releasing media", "public_id", ref.ID, "error", err)
	}
}

// Discard schedules removal of an upload that will not be attached.
func (c *Coordinator) Discard(upload *Upload) {
	if upload == nil {
		return
	}
	c.removeDetached(upload.Path)
}

// DiscardScope schedules removal of a request's scope once the request is done.
func (c *Coordinator) DiscardScope(scope *Scope) {
	if scope == nil {
		return
	}
	c.cleanups.Add(1)
	go func() {
		defer c.cleanups.Done()
		if err := scope.Purge(); err != nil {
			c.logger.Warn("error removing upload scope", "dir", scope.Dir(), "error", err)
		}
	}()
}

// Wait blocks until every scheduled removal has finished.
func (c *Coordinator) Wait() {
	c.cleanups.Wait()
}

func (c *Coordinator) purge(upload *Upload) {
	if upload.scope == nil {
		if err := removeFile(upload.Path); err != nil {
			c.logger.Warn("error removing failed upload", "path", upload.Path, "error", err)
		}
		return
	}
	if err := upload.scope.Purge(); err != nil {
		c.logger.Warn("error purging upload scope", "dir", upload.scope.Dir(), "error", err)
	}
}

func (c *Coordinator) removeDetached(path string) {
	c.cleanups.Add(1)
	go func() {
		defer c.cleanups.Done()
		if err := removeFile(path); err != nil {
			c.logger.Warn("error removing temporary upload", "path", path, "error", err)
		}
	}()
}

func removeFile(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

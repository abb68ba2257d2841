package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"lms/internal/blob"
	"lms/internal/mediaurl"
)

// MediaHandler serves assets held by the local media backend.
type MediaHandler struct {
	blobs *blob.Service
}

func NewMediaHandler(blobs *blob.Service) *MediaHandler {
	return &MediaHandler{blobs: blobs}
}

// GET /media/*
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	publicID, ok := mediaurl.ParsePublicID(mediaurl.PathPrefix + chi.URLParam(r, "*"))
	if !ok {
		notFound(w, "Media not found")
		return
	}

	file, err := h.blobs.Open(publicID)
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, blob.ErrInvalidPath) {
		notFound(w, "Media not found")
		return
	}
	if err != nil {
		slog.Error("error opening media", "public_id", publicID, "error", err)
		internalError(w)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		notFound(w, "Media not found")
		return
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		slog.Error("error detecting media type", "public_id", publicID, "error", err)
		internalError(w)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		internalError(w)
		return
	}
	mimeType := mtype.String()

	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("ETag", fmt.Sprintf("\"%s\"", path.Base(publicID)))
	w.Header().Set("Content-Type", mimeType)

	fileName := sanitizeDispositionFilename(path.Base(publicID))
	if !shouldForceDownload(r) && shouldRenderInline(mimeType) {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", fileName))
	} else {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", fileName))
	}

	http.ServeContent(w, r, fileName, info.ModTime(), file)
}

func sanitizeDispositionFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "download"
	}
	name = strings.ReplaceAll(name, "\\", "")
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\n", "")
	if name == "" {
		return "download"
	}
	return name
}

func shouldRenderInline(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(mimeType, "image/") || strings.HasPrefix(mimeType, "video/")
}

func shouldForceDownload(r *http.Request) bool {
	download := strings.TrimSpace(r.URL.Query().Get("download"))
	if download == "" {
		return false
	}

	force, err := strconv.ParseBool(download)
	if err != nil {
		return false
	}

	return force
}

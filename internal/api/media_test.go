package api

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"lms/internal/blob"
)

func newMediaRouter(t *testing.T) (http.Handler, *blob.Service) {
	t.Helper()

	blobs, err := blob.NewService(t.TempDir(), "http://lms.test", 1<<20)
	if err != nil {
		t.Fatalf("blob.NewService() error = %v", err)
	}

	r := chi.NewRouter()
	r.Get("/media/*", NewMediaHandler(blobs).Get)
	return r, blobs
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestMediaHandlerServesStoredAsset(t *testing.T) {
	router, blobs := newMediaRouter(t)
	data := pngBytes(t)
	if _, err := blobs.Write(context.Background(), "lms/ab/asset.png", bytes.NewReader(data)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/media/lms/ab/asset.png", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("Content-Type = %q, want image/png", got)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `inline; filename="asset.png"` {
		t.Fatalf("Content-Disposition = %q", got)
	}
	if !bytes.Equal(rr.Body.Bytes(), data) {
		t.Fatal("served body differs from stored asset")
	}
}

func TestMediaHandlerForcesDownload(t *testing.T) {
	router, blobs := newMediaRouter(t)
	if _, err := blobs.Write(context.Background(), "lms/asset.png", bytes.NewReader(pngBytes(t))); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/media/lms/asset.png?download=true", nil))

	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="asset.png"` {
		t.Fatalf("Content-Disposition = %q", got)
	}
}

func TestMediaHandlerNotFound(t *testing.T) {
	router, _ := newMediaRouter(t)

	for _, target := range []string{
		"/media/lms/missing.png",
		"/media/lms/../secret.png",
		"/media/lms/",
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d, want %d", target, rr.Code, http.StatusNotFound)
		}
	}
}

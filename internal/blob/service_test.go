package blob

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lms/internal/media"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	return encodePNG(t, img)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	svc, err := NewService(t.TempDir(), "http://localhost:8080", 1024*1024)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestUploadRejectsExecutableSignature(t *testing.T) {
	svc := newTestService(t)
	path := writeTempFile(t, "payload.png", []byte("MZ\x90\x00\x03\x00"))

	_, err := svc.Upload(context.Background(), path, media.ThumbnailOptions("lms"))
	if !errors.Is(err, ErrExecutableFile) {
		t.Fatalf("Upload() error = %v, want ErrExecutableFile", err)
	}
}

func TestUploadRejectsNonImageBytesWithPngExtension(t *testing.T) {
	svc := newTestService(t)
	path := writeTempFile(t, "avatar.png", []byte{0x00, 0x01, 0x02, 0x03})

	_, err := svc.Upload(context.Background(), path, media.AvatarOptions("lms"))
	if !errors.Is(err, ErrDisallowedType) {
		t.Fatalf("Upload() error = %v, want ErrDisallowedType", err)
	}
}

func TestUploadRejectsImageForVideoResource(t *testing.T) {
	svc := newTestService(t)
	path := writeTempFile(t, "lecture.mp4", pngBytes(t, 4, 4))

	_, err := svc.Upload(context.Background(), path, media.LectureVideoOptions("lms"))
	if !errors.Is(err, ErrDisallowedType) {
		t.Fatalf("Upload() error = %v, want ErrDisallowedType", err)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc, err := NewService(t.TempDir(), "", 16)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	path := writeTempFile(t, "thumb.png", pngBytes(t, 8, 8))

	_, err = svc.Upload(context.Background(), path, media.ThumbnailOptions("lms"))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("Upload() error = %v, want ErrFileTooLarge", err)
	}
}

func TestUploadAvatarIsCroppedAndServable(t *testing.T) {
	svc := newTestService(t)
	path := writeTempFile(t, "avatar.png", pngBytes(t, 600, 300))

	ref, err := svc.Upload(context.Background(), path, media.AvatarOptions("lms"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(ref.ID, "lms/") || !strings.HasSuffix(ref.ID, ".jpg") {
		t.Fatalf("ref.ID = %q, want lms/...jpg", ref.ID)
	}
	if ref.URL != "http://localhost:8080/media/"+ref.ID {
		t.Fatalf("ref.URL = %q", ref.URL)
	}

	f, err := svc.Open(ref.ID)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("image.Decode() error = %v", err)
	}
	if decoded.Bounds().Dx() != 250 || decoded.Bounds().Dy() != 250 {
		t.Fatalf("stored dimensions = %dx%d, want 250x250", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestUploadThumbnailKeepsOriginalBytes(t *testing.T) {
	svc := newTestService(t)
	original := pngBytes(t, 3, 2)
	path := writeTempFile(t, "thumb.png", original)

	ref, err := svc.Upload(context.Background(), path, media.ThumbnailOptions("lms"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasSuffix(ref.ID, ".png") {
		t.Fatalf("ref.ID = %q, want .png suffix", ref.ID)
	}

	f, err := svc.Open(ref.ID)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	stored, _ := io.ReadAll(f)
	if !bytes.Equal(stored, original) {
		t.Fatal("stored bytes differ from upload")
	}
}

func TestDestroyRemovesAssetAndIgnoresMissing(t *testing.T) {
	svc := newTestService(t)
	path := writeTempFile(t, "thumb.png", pngBytes(t, 2, 2))

	ref, err := svc.Upload(context.Background(), path, media.ThumbnailOptions("lms"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if err := svc.Destroy(context.Background(), ref.ID, media.DestroyOptions{}); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if _, err := svc.Open(ref.ID); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Open() error = %v, want not exist", err)
	}
	if err := svc.Destroy(context.Background(), ref.ID, media.DestroyOptions{}); err != nil {
		t.Fatalf("second Destroy() error = %v", err)
	}
}

func TestResolveStoragePathRejectsTraversal(t *testing.T) {
	svc := newTestService(t)

	for _, id := range []string{"../etc/passwd", "/abs/path", "."} {
		if _, err := svc.Open(id); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("Open(%q) error = %v, want ErrInvalidPath", id, err)
		}
	}
}

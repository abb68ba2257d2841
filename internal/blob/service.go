package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"lms/internal/db"
	"lms/internal/media"
	"lms/internal/mediaurl"
	"lms/internal/models"
)

var (
	ErrFileTooLarge   = errors.New("media file too large")
	ErrDisallowedType = errors.New("disallowed media type")
	ErrExecutableFile = errors.New("executable files are not allowed")
	ErrInvalidPath    = errors.New("invalid media path")
)

// Service is a media.Store that keeps assets on the local filesystem and
// serves them under /media/.
type Service struct {
	rootDir        string
	baseURL        string
	maxUploadBytes int64
}

func NewService(rootDir, baseURL string, maxUploadBytes int64) (*Service, error) {
	if strings.TrimSpace(rootDir) == "" {
		return nil, fmt.Errorf("media root directory is required")
	}
	if maxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be > 0")
	}

	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media root directory: %w", err)
	}

	return &Service{
		rootDir:        rootDir,
		baseURL:        baseURL,
		maxUploadBytes: maxUploadBytes,
	}, nil
}

func (s *Service) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

func (s *Service) Upload(ctx context.Context, localPath string, opts media.UploadOptions) (models.MediaRef, error) {
	prepared, err := Prepare(localPath, opts, s.maxUploadBytes)
	if err != nil {
		return models.MediaRef{}, err
	}

	assetID, err := db.GenerateID("med")
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("generating asset id: %w", err)
	}
	publicID := assetPublicID(opts.Folder, assetID, prepared.Extension)

	src, err := prepared.Open()
	if err != nil {
		return models.MediaRef{}, err
	}
	defer src.Close()

	if _, err := s.Write(ctx, publicID, src); err != nil {
		return models.MediaRef{}, err
	}

	return models.MediaRef{
		ID:  publicID,
		URL: mediaurl.Asset(s.baseURL, publicID),
	}, nil
}

func (s *Service) Destroy(_ context.Context, publicID string, _ media.DestroyOptions) error {
	return s.Delete(publicID)
}

func (s *Service) Open(publicID string) (*os.File, error) {
	absPath, err := s.resolveStoragePath(publicID)
	if err != nil {
		return nil, err
	}
	return os.Open(absPath)
}

func (s *Service) Write(ctx context.Context, publicID string, src io.Reader) (int64, error) {
	absPath, err := s.resolveStoragePath(publicID)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating media directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(absPath), "media-write-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temporary media file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	written, err := io.Copy(tmpFile, &contextReader{ctx: ctx, r: src})
	if err != nil {
		return 0, fmt.Errorf("writing media file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return 0, fmt.Errorf("closing temporary media file: %w", err)
	}

	if err := os.Rename(tmpPath, absPath); err != nil {
		return 0, fmt.Errorf("finalizing media file: %w", err)
	}

	return written, nil
}

func (s *Service) Delete(publicID string) error {
	absPath, err := s.resolveStoragePath(publicID)
	if err != nil {
		return err
	}

	err = os.Remove(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting media file: %w", err)
	}

	return nil
}

func (s *Service) resolveStoragePath(publicID string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(publicID))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", ErrInvalidPath
	}

	return filepath.Join(s.rootDir, clean), nil
}

func assetPublicID(folder, assetID, ext string) string {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	return path.Join(folder, assetPathPrefix(assetID), assetID+ext)
}

func assetPathPrefix(assetID string) string {
	randomPart := strings.TrimPrefix(assetID, "med_")
	if len(randomPart) < 2 {
		return "xx"
	}
	return randomPart[:2]
}

// Prepared is an upload that passed type checks, ready to be stored.
type Prepared struct {
	MimeType  string
	Extension string
	Size      int64

	data []byte
	path string
}

func (p *Prepared) Open() (io.ReadCloser, error) {
	if p.data != nil {
		return io.NopCloser(bytes.NewReader(p.data)), nil
	}
	f, err := os.Open(p.path)
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	return f, nil
}

// Prepare sniffs the file at localPath, rejects types the resource kind does
// not allow and applies the image transform described by opts.
func Prepare(localPath string, opts media.UploadOptions, maxBytes int64) (*Prepared, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, ErrFileTooLarge
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	sniff := make([]byte, 512)
	n, err := io.ReadFull(f, sniff)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	sniff = sniff[:n]

	if isExecutableSignature(sniff) {
		return nil, ErrExecutableFile
	}

	mime, err := mimetype.DetectFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("detecting media type: %w", err)
	}
	mimeType := trimMimeParams(mime.String())
	if !isAllowedMimeType(opts.ResourceType, mimeType) {
		return nil, ErrDisallowedType
	}

	prepared := &Prepared{
		MimeType:  mimeType,
		Extension: mime.Extension(),
		Size:      info.Size(),
		path:      localPath,
	}

	if opts.Crop == media.CropFill && opts.Width > 0 && opts.Height > 0 {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewinding upload: %w", err)
		}
		out, err := FillImage(f, opts.Width, opts.Height, opts.Gravity, DefaultJPEGQuality)
		if err != nil {
			return nil, err
		}
		prepared.data = out.Data
		prepared.MimeType = out.MimeType
		prepared.Size = int64(len(out.Data))
		prepared.Extension = extensionFor(out.MimeType)
	}

	return prepared, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	}
	if m := mimetype.Lookup(mimeType); m != nil {
		return m.Extension()
	}
	return ""
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func isExecutableSignature(sniff []byte) bool {
	if len(sniff) < 2 {
		return false
	}

	if sniff[0] == 'M' && sniff[1] == 'Z' {
		return true // PE/COFF (Windows)
	}
	if len(sniff) >= 4 {
		if bytes.Equal(sniff[:4], []byte{0x7f, 'E', 'L', 'F'}) {
			return true // ELF
		}

		machoMagics := [][]byte{
			{0xfe, 0xed, 0xfa, 0xce},
			{0xce, 0xfa, 0xed, 0xfe},
			{0xfe, 0xed, 0xfa, 0xcf},
			{0xcf, 0xfa, 0xed, 0xfe},
			{0xca, 0xfe, 0xba, 0xbe},
			{0xbe, 0xba, 0xfe, 0xca},
		}
		for _, magic := range machoMagics {
			if bytes.Equal(sniff[:4], magic) {
				return true
			}
		}
	}

	if sniff[0] == '#' && sniff[1] == '!' {
		return true // shebang scripts
	}

	return false
}

func trimMimeParams(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		return strings.TrimSpace(contentType[:idx])
	}
	return strings.TrimSpace(contentType)
}

func isAllowedMimeType(resource media.ResourceType, mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		return false
	}

	switch mimeType {
	case "image/svg+xml", "text/html", "application/xhtml+xml",
		"application/javascript", "text/javascript", "application/x-sh":
		return false
	}

	switch resource {
	case media.ResourceVideo:
		return strings.HasPrefix(mimeType, "video/")
	case media.ResourceImage, "":
		return strings.HasPrefix(mimeType, "image/")
	default:
		return false
	}
}

package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrUploadTooLarge = errors.New("upload exceeds size limit")

// TempArea is the directory under which request uploads are staged before
// they are handed to the store.
type TempArea struct {
	root string
}

func NewTempArea(root string) (*TempArea, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	return &TempArea{root: root}, nil
}

func (a *TempArea) Root() string {
	return a.root
}

// NewScope creates a private directory for the uploads of one request.
func (a *TempArea) NewScope() (*Scope, error) {
	dir := filepath.Join(a.root, uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating upload scope: %w", err)
	}
	return &Scope{dir: dir}, nil
}

// Scope groups the temporary files written while handling one request.
type Scope struct {
	dir string
}

func (s *Scope) Dir() string {
	return s.dir
}

// Save copies src into the scope. It fails with ErrUploadTooLarge when more
// than maxBytes are read; maxBytes <= 0 disables the limit.
func (s *Scope) Save(filename string, src io.Reader, maxBytes int64) (*Upload, error) {
	name := sanitizeFilename(filename)
	f, err := os.CreateTemp(s.dir, "upload-*"+filepath.Ext(name))
	if err != nil {
		return nil, fmt.Errorf("creating temporary upload: %w", err)
	}
	path := f.Name()

	reader := src
	if maxBytes > 0 {
		reader = io.LimitReader(src, maxBytes+1)
	}
	written, err := io.Copy(f, reader)
	closeErr := f.Close()
	if err == nil && maxBytes > 0 && written > maxBytes {
		err = ErrUploadTooLarge
	}
	if err == nil && closeErr != nil {
		err = fmt.Errorf("closing temporary upload: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrUploadTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("writing temporary upload: %w", err)
	}

	return &Upload{Path: path, Filename: name, Size: written, scope: s}, nil
}

// Purge removes every file of the scope, including the directory itself.
func (s *Scope) Purge() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("purging upload scope: %w", err)
	}
	return nil
}

// Upload is a file received with a request and staged on local disk.
type Upload struct {
	Path     string
	Filename string
	Size     int64

	scope *Scope
}

func (u *Upload) Scope() *Scope {
	return u.scope
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "upload.bin"
	}
	if len(name) > 255 {
		return name[:255]
	}
	return name
}

package api

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"lms/internal/media"
)

const multipartMemoryBytes = 1 << 20

// uploadStager moves multipart files into a per-request scope of the
// temporary upload area.
type uploadStager struct {
	area        *media.TempArea
	coordinator *media.Coordinator
	maxBytes    int64
}

// begin parses the request form and opens the request's upload scope. The
// returned cleanup must run when the handler is done.
func (u *uploadStager) begin(w http.ResponseWriter, r *http.Request) (*media.Scope, func(), bool) {
	if u.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, u.maxBytes+multipartMemoryBytes)
	}

	err := r.ParseMultipartForm(multipartMemoryBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		if isBodyTooLargeError(err) {
			payloadTooLarge(w, "File exceeds maximum upload size")
		} else {
			badRequest(w, "Invalid form body")
		}
		return nil, func() {}, false
	}

	scope, err := u.area.NewScope()
	if err != nil {
		slog.Error("error creating upload scope", "error", err)
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
		internalError(w)
		return nil, func() {}, false
	}

	cleanup := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
		u.coordinator.DiscardScope(scope)
	}
	return scope, cleanup, true
}

// stage copies the named form file into scope. A missing or empty file
// yields a nil upload.
func (u *uploadStager) stage(r *http.Request, scope *media.Scope, field string) (*media.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	upload, err := scope.Save(uploadName(header), file, u.maxBytes)
	if err != nil {
		return nil, err
	}
	if upload.Size == 0 {
		u.coordinator.Discard(upload)
		return nil, nil
	}
	return upload, nil
}

func uploadName(header *multipart.FileHeader) string {
	if header == nil || strings.TrimSpace(header.Filename) == "" {
		return "upload.bin"
	}
	return header.Filename
}

func isBodyTooLargeError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

// formValue returns a pointer to the trimmed form value, or nil when the
// field was not sent.
func formValue(r *http.Request, key string) *string {
	if _, ok := r.Form[key]; !ok {
		return nil
	}
	v := strings.TrimSpace(r.FormValue(key))
	return &v
}

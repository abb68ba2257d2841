package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"lms/internal/apperr"
	"lms/internal/blob"
	"lms/internal/constants"
	"lms/internal/media"
	"lms/internal/models"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type UserResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *models.User `json:"user"`
	Token   string       `json:"token,omitempty"`
}

type CourseResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Course  *models.Course `json:"course"`
}

type CoursesResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Courses []models.Course `json:"courses"`
}

type LecturesResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Lectures []models.Lecture `json:"lectures"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Success: true, Message: message})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Message: message,
		Code:    code,
	})
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, constants.ErrCodeInvalidRequest, message)
}

func unauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, constants.ErrCodeUnauthorized, message)
}

func notFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, constants.ErrCodeNotFound, message)
}

func payloadTooLarge(w http.ResponseWriter, message string) {
	writeError(w, http.StatusRequestEntityTooLarge, constants.ErrCodePayloadTooLarge, message)
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, constants.ErrCodeInternal, "An internal error occurred")
}

// writeAppError renders a service error. Rejected attachments are reported
// as client errors even though they surface through the media store.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, blob.ErrFileTooLarge), errors.Is(err, media.ErrUploadTooLarge):
		payloadTooLarge(w, "File exceeds maximum upload size")
		return
	case errors.Is(err, blob.ErrDisallowedType):
		writeError(w, http.StatusBadRequest, constants.ErrCodeAttachmentInvalid, "Unsupported file type")
		return
	case errors.Is(err, blob.ErrExecutableFile):
		writeError(w, http.StatusBadRequest, constants.ErrCodeAttachmentInvalid, "Executable files are not allowed")
		return
	case errors.Is(err, blob.ErrInvalidImage):
		writeError(w, http.StatusBadRequest, constants.ErrCodeAttachmentInvalid, "Invalid image file")
		return
	}

	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", kind.String(),
			"error", err,
		)
	}

	writeError(w, status, apperr.Code(kind), apperr.MessageOf(err))
}

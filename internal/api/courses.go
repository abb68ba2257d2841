package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"lms/internal/accounts"
	"lms/internal/catalog"
)

type CourseHandler struct {
	catalog  *catalog.Service
	accounts *accounts.Service
	uploads  *uploadStager
}

func NewCourseHandler(catalogService *catalog.Service, accountService *accounts.Service, uploads *uploadStager) *CourseHandler {
	return &CourseHandler{
		catalog:  catalogService,
		accounts: accountService,
		uploads:  uploads,
	}
}

type CreateCourseRequest struct {
	Title       string `validate:"required,max=100"`
	Description string `validate:"required,max=2000"`
	Category    string `validate:"required,max=50"`
	CreatedBy   string `validate:"omitempty,max=100"`
}

type UpdateCourseRequest struct {
	Title       *string `validate:"omitempty,max=100"`
	Description *string `validate:"omitempty,max=2000"`
	Category    *string `validate:"omitempty,max=50"`
}

type AddLectureRequest struct {
	Title       string `validate:"required,max=100"`
	Description string `validate:"required,max=2000"`
}

type RemoveLectureRequest struct {
	CourseID  string `validate:"required"`
	LectureID string `validate:"required"`
}

// GET /api/v1/courses
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.catalog.ListCourses(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CoursesResponse{
		Success: true,
		Message: "All courses",
		Courses: courses,
	})
}

// GET /api/v1/courses/{courseID}
func (h *CourseHandler) Lectures(w http.ResponseWriter, r *http.Request) {
	lectures, err := h.catalog.Lectures(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LecturesResponse{
		Success:  true,
		Message:  "Course lectures fetched successfully",
		Lectures: lectures,
	})
}

// POST /api/v1/courses
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	scope, cleanup, ok := h.uploads.begin(w, r)
	if !ok {
		return
	}
	defer cleanup()

	req := CreateCourseRequest{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Category:    strings.TrimSpace(r.FormValue("category")),
		CreatedBy:   strings.TrimSpace(r.FormValue("createdBy")),
	}
	if err := validateRequest(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if req.CreatedBy == "" {
		user, err := h.accounts.Profile(r.Context(), GetUserID(r))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		req.CreatedBy = user.FullName
	}

	thumbnail, err := h.uploads.stage(r, scope, "thumbnail")
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	course, err := h.catalog.CreateCourse(r.Context(), catalog.CreateCourseInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		CreatedBy:   req.CreatedBy,
		Thumbnail:   thumbnail,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, CourseResponse{
		Success: true,
		Message: "Course created successfully",
		Course:  course,
	})
}

// PUT /api/v1/courses/{courseID}
func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	scope, cleanup, ok := h.uploads.begin(w, r)
	if !ok {
		return
	}
	defer cleanup()

	req := UpdateCourseRequest{
		Title:       formValue(r, "title"),
		Description: formValue(r, "description"),
		Category:    formValue(r, "category"),
	}
	if err := validateRequest(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	thumbnail, err := h.uploads.stage(r, scope, "thumbnail")
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	course, err := h.catalog.UpdateCourse(r.Context(), chi.URLParam(r, "courseID"), catalog.UpdateCourseInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Thumbnail:   thumbnail,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CourseResponse{
		Success: true,
		Message: "Course updated successfully",
		Course:  course,
	})
}

// DELETE /api/v1/courses/{courseID}
func (h *CourseHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.RemoveCourse(r.Context(), chi.URLParam(r, "courseID")); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeMessage(w, http.StatusOK, "Course deleted successfully")
}

// POST /api/v1/courses/{courseID}
func (h *CourseHandler) AddLecture(w http.ResponseWriter, r *http.Request) {
	scope, cleanup, ok := h.uploads.begin(w, r)
	if !ok {
		return
	}
	defer cleanup()

	req := AddLectureRequest{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if err := validateRequest(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	video, err := h.uploads.stage(r, scope, "lecture")
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	course, err := h.catalog.AddLecture(r.Context(), chi.URLParam(r, "courseID"), catalog.AddLectureInput{
		Title:       req.Title,
		Description: req.Description,
		Video:       video,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CourseResponse{
		Success: true,
		Message: "Lecture successfully added to the course",
		Course:  course,
	})
}

// DELETE /api/v1/courses?courseId=&lectureId=
func (h *CourseHandler) RemoveLecture(w http.ResponseWriter, r *http.Request) {
	req := RemoveLectureRequest{
		CourseID:  strings.TrimSpace(r.URL.Query().Get("courseId")),
		LectureID: strings.TrimSpace(r.URL.Query().Get("lectureId")),
	}
	if err := validateRequest(&req); err != nil {
		badRequest(w, err.Error())
		return
	}

	course, err := h.catalog.RemoveLecture(r.Context(), req.CourseID, req.LectureID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CourseResponse{
		Success: true,
		Message: "Lecture removed successfully",
		Course:  course,
	})
}

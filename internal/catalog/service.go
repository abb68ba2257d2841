// Package catalog manages courses and the ordered lectures they own.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"lms/internal/apperr"
	"lms/internal/constants"
	"lms/internal/db"
	"lms/internal/media"
	"lms/internal/models"
	"lms/internal/sanitize"
)

type CourseStore interface {
	Create(ctx context.Context, c *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindAll(ctx context.Context) ([]models.Course, error)
	Update(ctx context.Context, c *models.Course) error
	Delete(ctx context.Context, id string) error
}

type CreateCourseInput struct {
	Title       string
	Description string
	Category    string
	CreatedBy   string
	Thumbnail   *media.Upload
}

// UpdateCourseInput is a partial patch; nil fields are left as they are.
type UpdateCourseInput struct {
	Title       *string
	Description *string
	Category    *string
	Thumbnail   *media.Upload
}

type AddLectureInput struct {
	Title       string
	Description string
	Video       *media.Upload
}

type Service struct {
	courses CourseStore
	media   *media.Coordinator
	folder  string
	logger  *slog.Logger
}

func NewService(courses CourseStore, coordinator *media.Coordinator, folder string) *Service {
	return &Service{
		courses: courses,
		media:   coordinator,
		folder:  folder,
		logger:  slog.Default().With("component", "catalog"),
	}
}

func (s *Service) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.courses.FindAll(ctx)
	if err != nil {
		return nil, apperr.Persistence("", err)
	}
	return courses, nil
}

// Course returns a course with its lectures.
func (s *Service) Course(ctx context.Context, courseID string) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Course not found")
	}
	if err != nil {
		return nil, apperr.Persistence("", err)
	}
	return course, nil
}

// Lectures returns the ordered lectures of a course.
func (s *Service) Lectures(ctx context.Context, courseID string) ([]models.Lecture, error) {
	course, err := s.Course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return course.Lectures, nil
}

// CreateCourse stores the course first and then attaches the thumbnail, so a
// failed upload leaves a course without a thumbnail rather than no course.
func (s *Service) CreateCourse(ctx context.Context, in CreateCourseInput) (*models.Course, error) {
	course := &models.Course{
		Title:       sanitize.Text(in.Title),
		Description: sanitize.Text(in.Description),
		Category:    sanitize.Text(in.Category),
		CreatedBy:   sanitize.Text(in.CreatedBy),
	}
	if course.Title == "" || course.Description == "" || course.Category == "" || course.CreatedBy == "" {
		return nil, apperr.Validation("All fields are required")
	}
	if err := validateCourseFields(course); err != nil {
		return nil, err
	}

	if err := s.courses.Create(ctx, course); err != nil {
		return nil, persistenceError(err)
	}

	if in.Thumbnail != nil {
		if _, err := s.media.Attach(ctx, &course.Thumbnail, in.Thumbnail, media.ThumbnailOptions(s.folder)); err != nil {
			return nil, err
		}
		if err := s.courses.Update(ctx, course); err != nil {
			return nil, persistenceError(err)
		}
	}

	s.logger.Info("course created", "course_id", course.ID)
	return course, nil
}

func (s *Service) UpdateCourse(ctx context.Context, courseID string, in UpdateCourseInput) (*models.Course, error) {
	course, err := s.Course(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		course.Title = sanitize.Text(*in.Title)
	}
	if in.Description != nil {
		course.Description = sanitize.Text(*in.Description)
	}
	if in.Category != nil {
		course.Category = sanitize.Text(*in.Category)
	}
	if course.Title == "" || course.Description == "" || course.Category == "" {
		return nil, apperr.Validation("Title, description and category cannot be empty")
	}
	if err := validateCourseFields(course); err != nil {
		return nil, err
	}

	if in.Thumbnail != nil {
		if _, err := s.media.Replace(ctx, &course.Thumbnail, in.Thumbnail, media.ThumbnailOptions(s.folder)); err != nil {
			return nil, err
		}
	}

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, persistenceError(err)
	}
	return course, nil
}

// RemoveCourse releases the thumbnail and every lecture video before the
// course row is deleted. Release failures are logged and do not block it.
func (s *Service) RemoveCourse(ctx context.Context, courseID string) error {
	course, err := s.Course(ctx, courseID)
	if err != nil {
		return err
	}

	s.media.Release(ctx, course.Thumbnail, media.DestroyOptionsFor(media.ThumbnailOptions(s.folder)))
	for _, lecture := range course.Lectures {
		s.media.Release(ctx, lecture.Media, media.DestroyOptionsFor(media.LectureVideoOptions(s.folder)))
	}

	if err := s.courses.Delete(ctx, courseID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("Course not found")
		}
		return apperr.Persistence("", err)
	}

	s.logger.Info("course removed", "course_id", courseID, "lectures", len(course.Lectures))
	return nil
}

// AddLecture appends a lecture with its own media reference. The course
// thumbnail is never touched.
func (s *Service) AddLecture(ctx context.Context, courseID string, in AddLectureInput) (*models.Course, error) {
	title := sanitize.Text(in.Title)
	description := sanitize.Text(in.Description)
	if title == "" || description == "" {
		return nil, apperr.Validation("Title and description are required")
	}
	if utf8.RuneCountInString(title) > constants.CourseTitleMaxLength {
		return nil, apperr.Validation(fmt.Sprintf("Title must be at most %d characters", constants.CourseTitleMaxLength))
	}
	if utf8.RuneCountInString(description) > constants.CourseDescriptionMaxLength {
		return nil, apperr.Validation(fmt.Sprintf("Description must be at most %d characters", constants.CourseDescriptionMaxLength))
	}

	course, err := s.Course(ctx, courseID)
	if err != nil {
		return nil, err
	}

	lecture := models.Lecture{Title: title, Description: description}
	if _, err := s.media.Attach(ctx, &lecture.Media, in.Video, media.LectureVideoOptions(s.folder)); err != nil {
		return nil, err
	}

	course.AppendLecture(lecture)
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, persistenceError(err)
	}
	return course, nil
}

// RemoveLecture releases the lecture's media and drops it from the course.
// A failed release does not keep the lecture.
func (s *Service) RemoveLecture(ctx context.Context, courseID, lectureID string) (*models.Course, error) {
	if courseID == "" || lectureID == "" {
		return nil, apperr.Validation("Course id and lecture id are required")
	}

	course, err := s.Course(ctx, courseID)
	if err != nil {
		return nil, err
	}

	idx := course.LectureIndex(lectureID)
	if idx == -1 {
		return nil, apperr.NotFound("Lecture not found")
	}

	s.media.Release(ctx, course.Lectures[idx].Media, media.DestroyOptionsFor(media.LectureVideoOptions(s.folder)))

	course.RemoveLecture(lectureID)
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, persistenceError(err)
	}
	return course, nil
}

func validateCourseFields(c *models.Course) error {
	switch {
	case utf8.RuneCountInString(c.Title) > constants.CourseTitleMaxLength:
		return apperr.Validation(fmt.Sprintf("Title must be at most %d characters", constants.CourseTitleMaxLength))
	case utf8.RuneCountInString(c.Description) > constants.CourseDescriptionMaxLength:
		return apperr.Validation(fmt.Sprintf("Description must be at most %d characters", constants.CourseDescriptionMaxLength))
	case utf8.RuneCountInString(c.Category) > constants.CourseCategoryMaxLength:
		return apperr.Validation(fmt.Sprintf("Category must be at most %d characters", constants.CourseCategoryMaxLength))
	}
	return nil
}

func persistenceError(err error) error {
	var validationErr *db.ValidationError
	if errors.As(err, &validationErr) {
		return apperr.New(apperr.KindValidation, validationErr.Error(), err)
	}
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("Course not found")
	}
	return apperr.Persistence("", err)
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lms/internal/models"
)

const courseColumns = `id, title, description, category, created_by, thumbnail_public_id,
	thumbnail_url, lecture_count, created_at, updated_at`

type CourseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create inserts c together with any lectures it already carries.
func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	if err := validateRecord(c); err != nil {
		return err
	}

	id, err := GenerateID("crs")
	if err != nil {
		return fmt.Errorf("generating course ID: %w", err)
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO courses (id, title, description, category, created_by, thumbnail_public_id,
			thumbnail_url, lecture_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.Title, c.Description, c.Category, c.CreatedBy, c.Thumbnail.ID,
		c.Thumbnail.URL, len(c.Lectures), now,
	)
	if err != nil {
		return fmt.Errorf("creating course: %w", err)
	}

	if err := insertLectures(ctx, tx, id, c.Lectures); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing course: %w", err)
	}

	c.ID = id
	c.CreatedAt = now
	c.LectureCount = len(c.Lectures)
	return nil
}

// FindByID loads a course with its lectures in order.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ?`, id)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying course: %w", err)
	}

	lectures, err := r.lectures(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Lectures = lectures

	return c, nil
}

// FindAll lists every course without its lectures, newest first.
func (r *CourseRepository) FindAll(ctx context.Context) ([]models.Course, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+courseColumns+` FROM courses ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	courses := make([]models.Course, 0)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		courses = append(courses, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating courses: %w", err)
	}

	return courses, nil
}

// Update rewrites the course row and its full lecture sequence. The stored
// lecture count is always derived from c.Lectures.
func (r *CourseRepository) Update(ctx context.Context, c *models.Course) error {
	if err := validateRecord(c); err != nil {
		return err
	}

	now := time.Now().UTC()
	count := len(c.Lectures)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE courses
		    SET title = ?,
		        description = ?,
		        category = ?,
		        thumbnail_public_id = ?,
		        thumbnail_url = ?,
		        lecture_count = ?,
		        updated_at = ?
		  WHERE id = ?`,
		c.Title, c.Description, c.Category, c.Thumbnail.ID, c.Thumbnail.URL,
		count, now, c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating course: %w", err)
	}
	if err := checkRowsAffected(result); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM lectures WHERE course_id = ?`, c.ID); err != nil {
		return fmt.Errorf("clearing lectures: %w", err)
	}
	if err := insertLectures(ctx, tx, c.ID, c.Lectures); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing course: %w", err)
	}

	c.LectureCount = count
	c.UpdatedAt = &now
	return nil
}

func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting course: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *CourseRepository) lectures(ctx context.Context, courseID string) ([]models.Lecture, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, media_public_id, media_url, created_at
		   FROM lectures
		  WHERE course_id = ?
		  ORDER BY position`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying lectures: %w", err)
	}
	defer rows.Close()

	lectures := make([]models.Lecture, 0)
	for rows.Next() {
		var l models.Lecture
		if err := rows.Scan(&l.ID, &l.Title, &l.Description, &l.Media.ID, &l.Media.URL, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning lecture: %w", err)
		}
		lectures = append(lectures, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lectures: %w", err)
	}

	return lectures, nil
}

// insertLectures writes lectures at positions 0..n-1, assigning IDs and
// creation times to the ones that have none yet.
func insertLectures(ctx context.Context, tx *sql.Tx, courseID string, lectures []models.Lecture) error {
	for i := range lectures {
		l := &lectures[i]
		if err := validateRecord(l); err != nil {
			return err
		}
		if l.ID == "" {
			id, err := GenerateID("lec")
			if err != nil {
				return fmt.Errorf("generating lecture ID: %w", err)
			}
			l.ID = id
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = time.Now().UTC()
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO lectures (id, course_id, position, title, description, media_public_id, media_url, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, courseID, i, l.Title, l.Description, l.Media.ID, l.Media.URL, l.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting lecture: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (*models.Course, error) {
	var c models.Course
	var updatedAt sql.NullTime
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.Category,
		&c.CreatedBy,
		&c.Thumbnail.ID,
		&c.Thumbnail.URL,
		&c.LectureCount,
		&c.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.UpdatedAt = nullTimeToPtr(updatedAt)
	return &c, nil
}

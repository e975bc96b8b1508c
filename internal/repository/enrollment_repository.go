package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/groove-academy/groove-api/internal/models"
)

// EnrollmentRepository persists course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID loads an enrollment by id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, course_id, student_id, created_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByCourse returns enrollments for a course.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	const query = `SELECT id, course_id, student_id, created_at FROM enrollments WHERE course_id = $1 ORDER BY created_at ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, courseID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// CreateGuarded inserts an enrollment while holding a lock on the course
// row. The guard receives the locked course and the current enrollment
// count, so the capacity invariant cannot be raced past.
func (r *EnrollmentRepository) CreateGuarded(ctx context.Context, enrollment *models.Enrollment, guard func(course models.Course, enrolled int) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enrollment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	lockQuery := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1 FOR UPDATE", courseColumns)
	var course models.Course
	if err = tx.GetContext(ctx, &course, lockQuery, enrollment.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock course: %w", err)
	}

	var enrolled int
	if err = tx.GetContext(ctx, &enrolled, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, enrollment.CourseID); err != nil {
		return fmt.Errorf("count enrollments: %w", err)
	}

	var duplicate int
	err = tx.GetContext(ctx, &duplicate, `SELECT 1 FROM enrollments WHERE course_id = $1 AND student_id = $2 LIMIT 1`, enrollment.CourseID, enrollment.StudentID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("check duplicate enrollment: %w", err)
	}
	if err == nil {
		return ErrDuplicateEnrollment
	}
	err = nil

	if guard != nil {
		if err = guard(course, enrolled); err != nil {
			return err
		}
	}

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO enrollments (id, course_id, student_id, created_at) VALUES (:id, :course_id, :student_id, :created_at)`
	if _, err = tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit enrollment: %w", err)
	}
	return nil
}

// Delete removes an enrollment by id.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return nil
}

// ErrDuplicateEnrollment signals the student is already enrolled.
var ErrDuplicateEnrollment = fmt.Errorf("student already enrolled in course")

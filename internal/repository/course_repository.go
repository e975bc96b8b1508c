package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/groove-academy/groove-api/internal/models"
)

const courseColumns = "id, name, description, teacher_id, max_students, price_per_student, created_at, updated_at"

// CourseRepository provides read access to the course catalog. Catalog
// management itself lives outside this service.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID loads a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE id = $1", courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListByTeacher returns courses owned by a teacher.
func (r *CourseRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Course, error) {
	query := fmt.Sprintf("SELECT %s FROM courses WHERE teacher_id = $1 ORDER BY name ASC", courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, teacherID); err != nil {
		return nil, fmt.Errorf("list courses by teacher: %w", err)
	}
	return courses, nil
}

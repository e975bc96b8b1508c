package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/groove-academy/groove-api/internal/models"
	"github.com/groove-academy/groove-api/internal/repository"
	appErrors "github.com/groove-academy/groove-api/pkg/errors"
)

type enrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error)
	CreateGuarded(ctx context.Context, enrollment *models.Enrollment, guard func(course models.Course, enrolled int) error) error
	Delete(ctx context.Context, id string) error
}

// EnrollRequest describes an enrollment of a student into a course.
type EnrollRequest struct {
	CourseID  string `json:"course_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
}

// EnrollmentService enrolls students into courses while holding the
// capacity invariant.
type EnrollmentService struct {
	repo      enrollmentRepository
	users     identityReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, users identityReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, users: users, validator: validate, logger: logger}
}

// Enroll adds a student to a course. Students enroll themselves, admins may
// enroll anyone. The course row stays locked between the capacity check
// and the insert.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.Actor, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if actor.UserID != req.StudentID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "students may only enroll themselves")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrRoleMismatch, "only students can be enrolled")
	}

	enrollment := &models.Enrollment{CourseID: req.CourseID, StudentID: req.StudentID}
	err = s.repo.CreateGuarded(ctx, enrollment, func(course models.Course, enrolled int) error {
		if enrolled >= course.MaxStudents {
			return appErrors.Clone(appErrors.ErrCourseFull,
				fmt.Sprintf("course %s is full (%d/%d)", course.Name, enrolled, course.MaxStudents))
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			return nil, appErrors.Clone(appErrors.ErrValidation, "student is already enrolled in this course")
		case appErrors.HasCode(err, appErrors.ErrCourseFull):
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return enrollment, nil
}

// ListByCourse returns a course's enrollments, ordered by enrollment time.
func (s *EnrollmentService) ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	enrollments, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// Withdraw removes an enrollment. The enrolled student or an admin only.
func (s *EnrollmentService) Withdraw(ctx context.Context, actor models.Actor, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if actor.UserID != enrollment.StudentID && !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrUnauthorized, "students may only withdraw themselves")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw enrollment")
	}
	return nil
}

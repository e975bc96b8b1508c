package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/groove-academy/groove-api/internal/models"
	"github.com/groove-academy/groove-api/internal/repository"
	appErrors "github.com/groove-academy/groove-api/pkg/errors"
)

type replacementRepository interface {
	FindByID(ctx context.Context, id string) (*models.Replacement, error)
	List(ctx context.Context, filter models.ReplacementFilter) ([]models.Replacement, int, error)
	CreateMatched(ctx context.Context, replacement *models.Replacement, dayOfWeek int, guard func(windows []models.Availability) error) error
	UpdateStatus(ctx context.Context, id string, from, to models.ReplacementStatus) error
	Delete(ctx context.Context, id string) error
}

// RequestReplacementRequest describes a substitution request for a concrete
// course session.
type RequestReplacementRequest struct {
	OriginalTeacherID    string    `json:"original_teacher_id" validate:"required"`
	ReplacementTeacherID string    `json:"replacement_teacher_id" validate:"required"`
	CourseID             string    `json:"course_id" validate:"required"`
	Date                 time.Time `json:"date" validate:"required"`
	Notes                *string   `json:"notes" validate:"omitempty,max=1000"`
}

// UpdateReplacementStatusRequest carries a requested state transition.
type UpdateReplacementStatusRequest struct {
	Status models.ReplacementStatus `json:"status" validate:"required"`
}

// replacementMetrics counts match outcomes; implemented by MetricsService.
type replacementMetrics interface {
	RecordReplacementOutcome(outcome string)
}

// ReplacementService decides, and records, whether a candidate teacher can
// substitute for a course session.
type ReplacementService struct {
	repo        replacementRepository
	users       identityReader
	courses     courseReader
	validator   *validator.Validate
	logger      *zap.Logger
	invalidator timetableInvalidator
	metrics     replacementMetrics
}

// NewReplacementService constructs a ReplacementService.
func NewReplacementService(repo replacementRepository, users identityReader, courses courseReader, validate *validator.Validate, logger *zap.Logger) *ReplacementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplacementService{repo: repo, users: users, courses: courses, validator: validate, logger: logger}
}

// SetInvalidator wires the timetable cache invalidation hook.
func (s *ReplacementService) SetInvalidator(inv timetableInvalidator) {
	s.invalidator = inv
}

// SetMetrics wires outcome counters.
func (s *ReplacementService) SetMetrics(m replacementMetrics) {
	s.metrics = m
}

func (s *ReplacementService) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordReplacementOutcome(outcome)
	}
}

// Request creates a PENDING replacement after the full eligibility check:
// both ids must be teachers, the original teacher must own the course, and
// the candidate must have an availability window covering the session's
// weekday and clock time. The availability check and the insert share one
// transaction. Admin only.
func (s *ReplacementService) Request(ctx context.Context, actor models.Actor, req RequestReplacementRequest) (*models.Replacement, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "only admins may request replacements")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid replacement payload")
	}

	if _, err := s.resolveTeacher(ctx, req.OriginalTeacherID, "original teacher"); err != nil {
		return nil, err
	}
	if _, err := s.resolveTeacher(ctx, req.ReplacementTeacherID, "replacement teacher"); err != nil {
		return nil, err
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.TeacherID != req.OriginalTeacherID {
		return nil, appErrors.Clone(appErrors.ErrOwnershipMismatch, "course does not belong to the original teacher")
	}

	dayOfWeek := int(req.Date.Weekday())
	clock := req.Date.Format("15:04")

	replacement := &models.Replacement{
		OriginalTeacherID:    req.OriginalTeacherID,
		ReplacementTeacherID: req.ReplacementTeacherID,
		CourseID:             req.CourseID,
		Date:                 req.Date,
		Status:               models.ReplacementPending,
		Notes:                req.Notes,
	}

	err = s.repo.CreateMatched(ctx, replacement, dayOfWeek, func(windows []models.Availability) error {
		for _, w := range windows {
			if w.Slot().Contains(dayOfWeek, clock) {
				return nil
			}
		}
		return appErrors.Clone(appErrors.ErrNoAvailability,
			fmt.Sprintf("replacement teacher has no availability at %s", clock))
	})
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNoAvailability) {
			s.recordOutcome("no_availability")
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create replacement")
	}

	s.recordOutcome("matched")
	s.invalidate(ctx, replacement.OriginalTeacherID, replacement.ReplacementTeacherID)
	return replacement, nil
}

// UpdateStatus applies a state transition. Only the designated replacement
// teacher or an admin may transition, and only moves allowed by the state
// machine are accepted.
func (s *ReplacementService) UpdateStatus(ctx context.Context, actor models.Actor, id string, req UpdateReplacementStatusRequest) (*models.Replacement, error) {
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown replacement status %q", req.Status))
	}

	replacement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "replacement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load replacement")
	}

	if actor.UserID != replacement.ReplacementTeacherID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "only the replacement teacher or an admin may update status")
	}

	if !replacement.Status.CanTransition(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot transition replacement from %s to %s", replacement.Status, req.Status))
	}

	if err := s.repo.UpdateStatus(ctx, id, replacement.Status, req.Status); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("replacement status changed concurrently; cannot transition to %s", req.Status))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update replacement status")
	}
	replacement.Status = req.Status

	s.invalidate(ctx, replacement.OriginalTeacherID, replacement.ReplacementTeacherID)
	return replacement, nil
}

// Delete removes a replacement record. Admin only, permitted in any state.
func (s *ReplacementService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrUnauthorized, "only admins may delete replacements")
	}

	replacement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "replacement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load replacement")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete replacement")
	}

	s.invalidate(ctx, replacement.OriginalTeacherID, replacement.ReplacementTeacherID)
	return nil
}

// List returns replacements matching the filter with pagination metadata.
func (s *ReplacementService) List(ctx context.Context, filter models.ReplacementFilter) ([]models.Replacement, *models.Pagination, error) {
	replacements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list replacements")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return replacements, pagination, nil
}

// ListForTeacher returns replacements where the teacher is either side of
// the substitution. Visible to the teacher themself or an admin.
func (s *ReplacementService) ListForTeacher(ctx context.Context, actor models.Actor, teacherID string) ([]models.Replacement, error) {
	if actor.UserID != teacherID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "access restricted to the teacher or an admin")
	}
	replacements, _, err := s.repo.List(ctx, models.ReplacementFilter{TeacherID: teacherID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher replacements")
	}
	return replacements, nil
}

func (s *ReplacementService) resolveTeacher(ctx context.Context, id, label string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, label+" not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+label)
	}
	if user.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrRoleMismatch, label+" is not a teacher")
	}
	return user, nil
}

func (s *ReplacementService) invalidate(ctx context.Context, teacherIDs ...string) {
	if s.invalidator == nil {
		return
	}
	for _, id := range teacherIDs {
		s.invalidator.InvalidateTeacher(ctx, id)
	}
}

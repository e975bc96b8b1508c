package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/groove-academy/groove-api/internal/models"
	appErrors "github.com/groove-academy/groove-api/pkg/errors"
)

type availabilityRepository interface {
	FindByID(ctx context.Context, id string) (*models.Availability, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Availability, error)
	ListByTeacherDay(ctx context.Context, teacherID string, dayOfWeek int) ([]models.Availability, error)
	CreateGuarded(ctx context.Context, availability *models.Availability, guard func(existing []models.Availability) error) error
	UpdateGuarded(ctx context.Context, availability *models.Availability, guard func(existing []models.Availability) error) error
	Delete(ctx context.Context, id string) error
}

type identityReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// timetableInvalidator drops derived views after a mutation. Implemented by
// the timetable service; a nil invalidator is a no-op.
type timetableInvalidator interface {
	InvalidateTeacher(ctx context.Context, teacherID string)
}

// CreateAvailabilityRequest describes payload for registering a window.
// TeacherID is only honoured for admin callers; teachers register their own.
type CreateAvailabilityRequest struct {
	TeacherID string  `json:"teacher_id" validate:"omitempty"`
	DayOfWeek int     `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Room      *string `json:"room" validate:"omitempty,max=100"`
}

// UpdateAvailabilityRequest rewrites an existing window.
type UpdateAvailabilityRequest struct {
	DayOfWeek int     `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Room      *string `json:"room" validate:"omitempty,max=100"`
}

// AvailabilityService owns the registry of recurring free-time windows.
type AvailabilityService struct {
	repo        availabilityRepository
	users       identityReader
	validator   *validator.Validate
	logger      *zap.Logger
	invalidator timetableInvalidator
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, users identityReader, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, users: users, validator: validate, logger: logger}
}

// SetInvalidator wires the timetable cache invalidation hook.
func (s *AvailabilityService) SetInvalidator(inv timetableInvalidator) {
	s.invalidator = inv
}

// Add registers a new availability window. Windows on the same day must not
// overlap; unlike the historical behaviour, overlapping inserts are rejected
// so availability matching stays deterministic.
func (s *AvailabilityService) Add(ctx context.Context, actor models.Actor, req CreateAvailabilityRequest) (*models.Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	teacherID, err := s.resolveTarget(ctx, actor, req.TeacherID)
	if err != nil {
		return nil, err
	}

	slot := models.TimeSlot{DayOfWeek: req.DayOfWeek, StartTime: req.StartTime, EndTime: req.EndTime}
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	availability := &models.Availability{
		TeacherID: teacherID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Room:      req.Room,
	}

	err = s.repo.CreateGuarded(ctx, availability, func(existing []models.Availability) error {
		return rejectOverlapping(slot, existing)
	})
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrScheduleConflict) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability")
	}

	s.invalidate(ctx, teacherID)
	return availability, nil
}

// Update rewrites a window owned by the actor.
func (s *AvailabilityService) Update(ctx context.Context, actor models.Actor, id string, req UpdateAvailabilityRequest) (*models.Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	if existing.TeacherID != actor.UserID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "availability not found")
	}

	slot := models.TimeSlot{DayOfWeek: req.DayOfWeek, StartTime: req.StartTime, EndTime: req.EndTime}
	if err := slot.Validate(); err != nil {
		return nil, err
	}

	updated := &models.Availability{
		ID:        existing.ID,
		TeacherID: existing.TeacherID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Room:      req.Room,
		CreatedAt: existing.CreatedAt,
	}

	err = s.repo.UpdateGuarded(ctx, updated, func(others []models.Availability) error {
		return rejectOverlapping(slot, others)
	})
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrScheduleConflict) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability")
	}

	s.invalidate(ctx, existing.TeacherID)
	return updated, nil
}

// Remove deletes a window. A window that does not belong to the requesting
// teacher is reported as not found.
func (s *AvailabilityService) Remove(ctx context.Context, actor models.Actor, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	if existing.TeacherID != actor.UserID && !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrNotFound, "availability not found")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability")
	}

	s.invalidate(ctx, existing.TeacherID)
	return nil
}

// ListByTeacher returns a teacher's windows ordered by day then start time.
func (s *AvailabilityService) ListByTeacher(ctx context.Context, teacherID string) ([]models.Availability, error) {
	availabilities, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availabilities")
	}
	return availabilities, nil
}

// IsAvailable reports whether any window of the teacher covers the given day
// and clock time. Consumed by the replacement matcher.
func (s *AvailabilityService) IsAvailable(ctx context.Context, teacherID string, dayOfWeek int, clock string) (bool, error) {
	windows, err := s.repo.ListByTeacherDay(ctx, teacherID, dayOfWeek)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query availability")
	}
	for _, w := range windows {
		if w.Slot().Contains(dayOfWeek, clock) {
			return true, nil
		}
	}
	return false, nil
}

func (s *AvailabilityService) resolveTarget(ctx context.Context, actor models.Actor, requested string) (string, error) {
	switch {
	case actor.Role == models.RoleTeacher:
		if requested != "" && requested != actor.UserID {
			return "", appErrors.Clone(appErrors.ErrUnauthorized, "teachers may only manage their own availability")
		}
		return actor.UserID, nil
	case actor.IsAdmin():
		if requested == "" {
			return "", appErrors.Clone(appErrors.ErrValidation, "teacher_id is required for admin callers")
		}
		target, err := s.users.FindByID(ctx, requested)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
		if target.Role != models.RoleTeacher {
			return "", appErrors.Clone(appErrors.ErrRoleMismatch, "target user is not a teacher")
		}
		return target.ID, nil
	default:
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "only teachers and admins manage availability")
	}
}

func (s *AvailabilityService) invalidate(ctx context.Context, teacherID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateTeacher(ctx, teacherID)
	}
}

func rejectOverlapping(slot models.TimeSlot, existing []models.Availability) error {
	for _, item := range existing {
		if slot.Overlaps(item.Slot()) {
			return appErrors.Clone(appErrors.ErrScheduleConflict,
				fmt.Sprintf("window overlaps existing availability %s-%s", item.StartTime, item.EndTime))
		}
	}
	return nil
}

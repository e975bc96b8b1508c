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

type scheduleRepository interface {
	FindByID(ctx context.Context, id string) (*models.CourseSchedule, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseSchedule, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseSchedule, error)
	WeekExists(ctx context.Context, id string) (bool, error)
	CreateGuarded(ctx context.Context, teacherID string, schedules []models.CourseSchedule, guard func(existing []models.CourseSchedule) error) error
	Delete(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// ScheduleSlotRequest is one weekly slot inside a scheduling request.
type ScheduleSlotRequest struct {
	DayOfWeek int     `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string  `json:"start_time" validate:"required"`
	EndTime   string  `json:"end_time" validate:"required"`
	Room      *string `json:"room" validate:"omitempty,max=100"`
}

// ScheduleCourseRequest attaches one or more weekly slots to a course for a
// calendar week.
type ScheduleCourseRequest struct {
	WeekID string                `json:"week_id" validate:"required"`
	Slots  []ScheduleSlotRequest `json:"slots" validate:"required,min=1,dive"`
}

// scheduleMetrics counts rejected double-bookings; implemented by
// MetricsService.
type scheduleMetrics interface {
	RecordScheduleConflict()
}

// ScheduleService plans course schedules and prevents double-booking a
// teacher. Capacity is an enrollment-time concern and is not checked here.
type ScheduleService struct {
	repo        scheduleRepository
	courses     courseReader
	validator   *validator.Validate
	logger      *zap.Logger
	invalidator timetableInvalidator
	metrics     scheduleMetrics
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, courses courseReader, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// SetInvalidator wires the timetable cache invalidation hook.
func (s *ScheduleService) SetInvalidator(inv timetableInvalidator) {
	s.invalidator = inv
}

// SetMetrics wires conflict counters.
func (s *ScheduleService) SetMetrics(m scheduleMetrics) {
	s.metrics = m
}

// ScheduleCourse validates and persists a slot set for a course. The
// conflict check and the inserts run in one transaction, so concurrent
// requests cannot both pass the check; either every slot lands or none does.
func (s *ScheduleService) ScheduleCourse(ctx context.Context, actor models.Actor, courseID string, req ScheduleCourseRequest) ([]models.CourseSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.TeacherID != actor.UserID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrOwnershipMismatch, "course is not owned by the requesting teacher")
	}

	weekExists, err := s.repo.WeekExists(ctx, req.WeekID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check week")
	}
	if !weekExists {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "week not found")
	}

	schedules := make([]models.CourseSchedule, 0, len(req.Slots))
	for i, item := range req.Slots {
		slot := models.TimeSlot{DayOfWeek: item.DayOfWeek, StartTime: item.StartTime, EndTime: item.EndTime}
		if err := slot.Validate(); err != nil {
			return nil, err
		}
		for j := 0; j < i; j++ {
			if slot.Overlaps(schedules[j].Slot()) {
				return nil, appErrors.Clone(appErrors.ErrScheduleConflict, "requested slots overlap each other")
			}
		}
		schedules = append(schedules, models.CourseSchedule{
			CourseID:  courseID,
			WeekID:    req.WeekID,
			TeacherID: course.TeacherID,
			DayOfWeek: item.DayOfWeek,
			StartTime: item.StartTime,
			EndTime:   item.EndTime,
			Room:      item.Room,
		})
	}

	err = s.repo.CreateGuarded(ctx, course.TeacherID, schedules, func(existing []models.CourseSchedule) error {
		for _, candidate := range schedules {
			for _, item := range existing {
				if candidate.Slot().Overlaps(item.Slot()) {
					conflict := models.ScheduleConflict{
						ScheduleID: item.ID,
						CourseID:   item.CourseID,
						TeacherID:  item.TeacherID,
						DayOfWeek:  item.DayOfWeek,
						StartTime:  item.StartTime,
						EndTime:    item.EndTime,
					}
					domainErr := &models.ScheduleConflictError{
						Message:  fmt.Sprintf("teacher already scheduled for course %s in this slot", item.CourseID),
						Conflict: conflict,
					}
					return appErrors.Wrap(domainErr, appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, domainErr.Message)
				}
			}
		}
		return nil
	})
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrScheduleConflict) {
			if s.metrics != nil {
				s.metrics.RecordScheduleConflict()
			}
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedules")
	}

	s.invalidate(ctx, course.TeacherID)
	return schedules, nil
}

// ListByTeacher returns a teacher's schedules.
func (s *ScheduleService) ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseSchedule, error) {
	schedules, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher schedules")
	}
	return schedules, nil
}

// ListByCourse returns a course's schedules.
func (s *ScheduleService) ListByCourse(ctx context.Context, courseID string) ([]models.CourseSchedule, error) {
	schedules, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course schedules")
	}
	return schedules, nil
}

// Delete removes one schedule entry; owner or admin only.
func (s *ScheduleService) Delete(ctx context.Context, actor models.Actor, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if existing.TeacherID != actor.UserID && !actor.IsAdmin() {
		return appErrors.Clone(appErrors.ErrOwnershipMismatch, "schedule is not owned by the requesting teacher")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}

	s.invalidate(ctx, existing.TeacherID)
	return nil
}

func (s *ScheduleService) invalidate(ctx context.Context, teacherID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateTeacher(ctx, teacherID)
	}
}

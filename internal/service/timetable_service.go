package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/groove-academy/groove-api/internal/models"
	appErrors "github.com/groove-academy/groove-api/pkg/errors"
	"github.com/groove-academy/groove-api/pkg/export"
	"github.com/groove-academy/groove-api/pkg/jobs"
)

type scheduleLister interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseSchedule, error)
}

type availabilityLister interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Availability, error)
}

type courseLister interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Course, error)
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// cacheMetrics counts cache lookups; implemented by MetricsService.
type cacheMetrics interface {
	RecordCacheLookup(hit bool)
}

const invalidateJobType = "timetable.invalidate"

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// TimetableService assembles the derived weekly view of a teacher: open
// availability windows merged with booked course slots. The view is cached
// in Redis and dropped asynchronously whenever a mutation touches the
// teacher's windows, schedules or replacements.
type TimetableService struct {
	windows      availabilityLister
	schedules    scheduleLister
	courses      courseLister
	users        identityReader
	cache        timetableCache
	csvExporter  *export.CSVExporter
	pdfExporter  *export.PDFExporter
	queue        *jobs.Queue
	metrics      cacheMetrics
	cacheEnabled bool
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// TimetableOptions tunes caching behaviour.
type TimetableOptions struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NewTimetableService constructs a TimetableService. The cache may be nil
// when caching is disabled.
func NewTimetableService(windows availabilityLister, schedules scheduleLister, courses courseLister, users identityReader, cache timetableCache, opts TimetableOptions, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &TimetableService{
		windows:      windows,
		schedules:    schedules,
		courses:      courses,
		users:        users,
		cache:        cache,
		csvExporter:  export.NewCSVExporter(),
		pdfExporter:  export.NewPDFExporter(),
		cacheEnabled: opts.CacheEnabled && cache != nil,
		cacheTTL:     opts.CacheTTL,
		logger:       logger,
	}
}

// SetQueue wires the background queue used for async cache invalidation.
// Without a queue, invalidation happens inline.
func (s *TimetableService) SetQueue(q *jobs.Queue) {
	s.queue = q
}

// SetMetrics wires cache lookup counters.
func (s *TimetableService) SetMetrics(m cacheMetrics) {
	s.metrics = m
}

func (s *TimetableService) recordLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(hit)
	}
}

// Get returns the teacher's weekly timetable, from cache when possible.
func (s *TimetableService) Get(ctx context.Context, teacherID string) (*models.TeacherTimetable, error) {
	user, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if user.Role != models.RoleTeacher {
		return nil, appErrors.Clone(appErrors.ErrRoleMismatch, "timetables exist for teachers only")
	}

	key := cacheKey(teacherID)
	if s.cacheEnabled {
		var cached models.TeacherTimetable
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.recordLookup(true)
			return &cached, nil
		} else if !appErrors.HasCode(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("timetable cache read failed", zap.String("teacher_id", teacherID), zap.Error(err))
		} else {
			s.recordLookup(false)
		}
	}

	timetable, err := s.build(ctx, user)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled {
		if err := s.cache.Set(ctx, key, timetable, s.cacheTTL); err != nil {
			s.logger.Warn("timetable cache write failed", zap.String("teacher_id", teacherID), zap.Error(err))
		}
	}
	return timetable, nil
}

// ExportCSV renders the timetable as CSV bytes.
func (s *TimetableService) ExportCSV(ctx context.Context, teacherID string) ([]byte, error) {
	timetable, err := s.Get(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	payload, err := s.csvExporter.Render(toTable(timetable))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export timetable csv")
	}
	return payload, nil
}

// ExportPDF renders the timetable as a printable PDF.
func (s *TimetableService) ExportPDF(ctx context.Context, teacherID string) ([]byte, error) {
	timetable, err := s.Get(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdfExporter.Render(toTable(timetable))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export timetable pdf")
	}
	return payload, nil
}

// InvalidateTeacher drops the teacher's cached timetable. With a queue
// attached the drop happens on a worker; repeated invalidations for the
// same teacher coalesce there.
func (s *TimetableService) InvalidateTeacher(ctx context.Context, teacherID string) {
	if !s.cacheEnabled {
		return
	}
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    invalidateJobType,
			Key:     teacherID,
			Payload: teacherID,
		})
		if err == nil {
			return
		}
		s.logger.Warn("falling back to inline invalidation", zap.String("teacher_id", teacherID), zap.Error(err))
	}
	s.dropCached(ctx, teacherID)
}

// HandleInvalidation is the queue handler for timetable invalidation jobs.
func (s *TimetableService) HandleInvalidation(ctx context.Context, job jobs.Job) error {
	teacherID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for %s job", job.Payload, job.Type)
	}
	s.dropCached(ctx, teacherID)
	return nil
}

func (s *TimetableService) dropCached(ctx context.Context, teacherID string) {
	if err := s.cache.DeleteByPattern(ctx, cacheKey(teacherID)); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}

func (s *TimetableService) build(ctx context.Context, teacher *models.User) (*models.TeacherTimetable, error) {
	availabilities, err := s.windows.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	schedules, err := s.schedules.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	courses, err := s.courses.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	courseNames := make(map[string]string, len(courses))
	for _, c := range courses {
		courseNames[c.ID] = c.Name
	}

	timetable := &models.TeacherTimetable{
		TeacherID:   teacher.ID,
		TeacherName: teacher.FirstName + " " + teacher.LastName,
		Entries:     make([]models.TimetableEntry, 0, len(availabilities)+len(schedules)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, a := range availabilities {
		timetable.Entries = append(timetable.Entries, models.TimetableEntry{
			DayOfWeek: a.DayOfWeek,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
			Kind:      models.EntryAvailability,
			Room:      a.Room,
		})
	}
	for _, sched := range schedules {
		timetable.Entries = append(timetable.Entries, models.TimetableEntry{
			DayOfWeek:  sched.DayOfWeek,
			StartTime:  sched.StartTime,
			EndTime:    sched.EndTime,
			Kind:       models.EntryCourse,
			CourseID:   sched.CourseID,
			CourseName: courseNames[sched.CourseID],
			WeekID:     sched.WeekID,
			Room:       sched.Room,
		})
	}
	timetable.SortEntries()
	return timetable, nil
}

func cacheKey(teacherID string) string {
	return "timetable:" + teacherID
}

func toTable(t *models.TeacherTimetable) export.Table {
	table := export.Table{
		Title:   "Weekly timetable - " + t.TeacherName,
		Columns: []string{"Day", "Start", "End", "Type", "Course", "Room"},
		Rows:    make([][]string, 0, len(t.Entries)),
	}
	for _, e := range t.Entries {
		day := ""
		if e.DayOfWeek >= 0 && e.DayOfWeek < len(dayNames) {
			day = dayNames[e.DayOfWeek]
		}
		room := ""
		if e.Room != nil {
			room = *e.Room
		}
		table.Rows = append(table.Rows, []string{day, e.StartTime, e.EndTime, string(e.Kind), e.CourseName, room})
	}
	return table
}

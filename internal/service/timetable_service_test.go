package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groove-academy/groove-api/internal/models"
	appErrors "github.com/groove-academy/groove-api/pkg/errors"
)

type fakeTimetableCache struct {
	values  map[string][]byte
	sets    int
	deletes int
}

func newFakeTimetableCache() *fakeTimetableCache {
	return &fakeTimetableCache{values: map[string][]byte{}}
}

func (f *fakeTimetableCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := f.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeTimetableCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.values[key] = raw
	f.sets++
	return nil
}

func (f *fakeTimetableCache) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range f.values {
		if strings.HasPrefix(key, strings.TrimSuffix(pattern, "*")) {
			delete(f.values, key)
		}
	}
	f.deletes++
	return nil
}

type fakeCourseLister struct {
	courses []models.Course
}

func (f *fakeCourseLister) ListByTeacher(_ context.Context, teacherID string) ([]models.Course, error) {
	var out []models.Course
	for _, c := range f.courses {
		if c.TeacherID == teacherID {
			out = append(out, c)
		}
	}
	return out, nil
}

func newTimetableFixture(t *testing.T) (*TimetableService, *fakeTimetableCache, *fakeAvailabilityRepo, *fakeScheduleRepo) {
	t.Helper()
	windows := newFakeAvailabilityRepo()
	schedules := newFakeScheduleRepo("week-1")
	courses := &fakeCourseLister{courses: []models.Course{
		{ID: "piano", Name: "Piano", TeacherID: "t1"},
	}}
	users := &fakeIdentityReader{users: map[string]*models.User{
		"t1":   {ID: "t1", Role: models.RoleTeacher, FirstName: "Nina", LastName: "Vale"},
		"stud": {ID: "stud", Role: models.RoleStudent},
	}}
	cache := newFakeTimetableCache()
	svc := NewTimetableService(windows, schedules, courses, users, cache, TimetableOptions{CacheEnabled: true, CacheTTL: time.Minute}, nil)
	return svc, cache, windows, schedules
}

func TestTimetableGet(t *testing.T) {
	svc, cache, windows, schedules := newTimetableFixture(t)
	room := "A1"
	windows.windows["w1"] = &models.Availability{ID: "w1", TeacherID: "t1", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"}
	windows.windows["w2"] = &models.Availability{ID: "w2", TeacherID: "t1", DayOfWeek: 3, StartTime: "14:00", EndTime: "18:00"}
	schedules.schedules["s1"] = &models.CourseSchedule{
		ID: "s1", CourseID: "piano", WeekID: "week-1", TeacherID: "t1",
		DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00", Room: &room,
	}

	timetable, err := svc.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Nina Vale", timetable.TeacherName)
	require.Len(t, timetable.Entries, 3)

	// day, start time, then availability before booked lesson
	assert.Equal(t, models.EntryAvailability, timetable.Entries[0].Kind)
	assert.Equal(t, "09:00", timetable.Entries[0].StartTime)
	assert.Equal(t, models.EntryCourse, timetable.Entries[1].Kind)
	assert.Equal(t, "Piano", timetable.Entries[1].CourseName)
	assert.Equal(t, 3, timetable.Entries[2].DayOfWeek)

	assert.Equal(t, 1, cache.sets)

	// second read is served from cache
	again, err := svc.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, timetable.Entries, again.Entries)
}

func TestTimetableGetErrors(t *testing.T) {
	svc, _, _, _ := newTimetableFixture(t)

	_, err := svc.Get(context.Background(), "ghost")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	_, err = svc.Get(context.Background(), "stud")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrRoleMismatch))
}

func TestTimetableInvalidateTeacher(t *testing.T) {
	svc, cache, windows, _ := newTimetableFixture(t)
	windows.windows["w1"] = &models.Availability{ID: "w1", TeacherID: "t1", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"}

	_, err := svc.Get(context.Background(), "t1")
	require.NoError(t, err)
	require.NotEmpty(t, cache.values)

	// no queue attached, inline drop
	svc.InvalidateTeacher(context.Background(), "t1")
	assert.Empty(t, cache.values)
	assert.Equal(t, 1, cache.deletes)
}

func TestTimetableExport(t *testing.T) {
	svc, _, windows, _ := newTimetableFixture(t)
	windows.windows["w1"] = &models.Availability{ID: "w1", TeacherID: "t1", DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"}

	csvBytes, err := svc.ExportCSV(context.Background(), "t1")
	require.NoError(t, err)
	text := string(csvBytes)
	assert.Contains(t, text, "Day,Start,End,Type,Course,Room")
	assert.Contains(t, text, "Monday,09:00,12:00,AVAILABILITY")

	pdfBytes, err := svc.ExportPDF(context.Background(), "t1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdfBytes), "%PDF"))
}

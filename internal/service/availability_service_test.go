package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groove-academy/groove-api/internal/models"
	appErrors "github.com/groove-academy/groove-api/pkg/errors"
)

type fakeAvailabilityRepo struct {
	windows map[string]*models.Availability
}

func newFakeAvailabilityRepo() *fakeAvailabilityRepo {
	return &fakeAvailabilityRepo{windows: map[string]*models.Availability{}}
}

func (f *fakeAvailabilityRepo) FindByID(_ context.Context, id string) (*models.Availability, error) {
	if a, ok := f.windows[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAvailabilityRepo) ListByTeacher(_ context.Context, teacherID string) ([]models.Availability, error) {
	var out []models.Availability
	for _, a := range f.windows {
		if a.TeacherID == teacherID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) ListByTeacherDay(_ context.Context, teacherID string, dayOfWeek int) ([]models.Availability, error) {
	var out []models.Availability
	for _, a := range f.windows {
		if a.TeacherID == teacherID && a.DayOfWeek == dayOfWeek {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAvailabilityRepo) sameDay(teacherID string, dayOfWeek int, excludeID string) []models.Availability {
	var out []models.Availability
	for _, a := range f.windows {
		if a.TeacherID == teacherID && a.DayOfWeek == dayOfWeek && a.ID != excludeID {
			out = append(out, *a)
		}
	}
	return out
}

func (f *fakeAvailabilityRepo) CreateGuarded(_ context.Context, availability *models.Availability, guard func(existing []models.Availability) error) error {
	if err := guard(f.sameDay(availability.TeacherID, availability.DayOfWeek, "")); err != nil {
		return err
	}
	availability.ID = uuid.NewString()
	f.windows[availability.ID] = availability
	return nil
}

func (f *fakeAvailabilityRepo) UpdateGuarded(_ context.Context, availability *models.Availability, guard func(existing []models.Availability) error) error {
	if err := guard(f.sameDay(availability.TeacherID, availability.DayOfWeek, availability.ID)); err != nil {
		return err
	}
	f.windows[availability.ID] = availability
	return nil
}

func (f *fakeAvailabilityRepo) Delete(_ context.Context, id string) error {
	delete(f.windows, id)
	return nil
}

func newAvailabilityFixture() (*AvailabilityService, *fakeAvailabilityRepo) {
	repo := newFakeAvailabilityRepo()
	users := &fakeIdentityReader{users: map[string]*models.User{
		"t1":    teacherUser("t1"),
		"t2":    teacherUser("t2"),
		"admin": {ID: "admin", Role: models.RoleAdmin},
		"stud":  {ID: "stud", Role: models.RoleStudent},
	}}
	return NewAvailabilityService(repo, users, nil, nil), repo
}

var (
	teacherActor = models.Actor{UserID: "t1", Role: models.RoleTeacher}
	studentActor = models.Actor{UserID: "stud", Role: models.RoleStudent}
)

func TestAvailabilityAdd(t *testing.T) {
	t.Run("teacher registers a window", func(t *testing.T) {
		svc, _ := newAvailabilityFixture()
		window, err := svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00",
		})
		require.NoError(t, err)
		assert.Equal(t, "t1", window.TeacherID)
		assert.NotEmpty(t, window.ID)
	})

	t.Run("teacher cannot register for another teacher", func(t *testing.T) {
		svc, _ := newAvailabilityFixture()
		_, err := svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
			TeacherID: "t2", DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00",
		})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
	})

	t.Run("admin registers on behalf of a teacher", func(t *testing.T) {
		svc, _ := newAvailabilityFixture()
		window, err := svc.Add(context.Background(), adminActor, CreateAvailabilityRequest{
			TeacherID: "t2", DayOfWeek: 3, StartTime: "09:00", EndTime: "12:00",
		})
		require.NoError(t, err)
		assert.Equal(t, "t2", window.TeacherID)
	})

	t.Run("admin must target a teacher", func(t *testing.T) {
		svc, _ := newAvailabilityFixture()
		_, err := svc.Add(context.Background(), adminActor, CreateAvailabilityRequest{
			TeacherID: "stud", DayOfWeek: 3, StartTime: "09:00", EndTime: "12:00",
		})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrRoleMismatch))
	})

	t.Run("students cannot register windows", func(t *testing.T) {
		svc, _ := newAvailabilityFixture()
		_, err := svc.Add(context.Background(), studentActor, CreateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00",
		})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		svc, _ := newAvailabilityFixture()
		_, err := svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "16:00", EndTime: "14:00",
		})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidTimeRange))
	})

	t.Run("malformed clock rejected", func(t *testing.T) {
		svc, _ := newAvailabilityFixture()
		_, err := svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "2pm", EndTime: "16:00",
		})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidTimeRange))
	})

	t.Run("overlapping window on same day rejected", func(t *testing.T) {
		svc, _ := newAvailabilityFixture()
		_, err := svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00",
		})
		require.NoError(t, err)

		_, err = svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "15:00", EndTime: "17:00",
		})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrScheduleConflict))
	})

	t.Run("touching windows do not overlap", func(t *testing.T) {
		svc, _ := newAvailabilityFixture()
		_, err := svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00",
		})
		require.NoError(t, err)

		_, err = svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "16:00", EndTime: "18:00",
		})
		assert.NoError(t, err)
	})

	t.Run("same clocks on another day are fine", func(t *testing.T) {
		svc, _ := newAvailabilityFixture()
		_, err := svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00",
		})
		require.NoError(t, err)

		_, err = svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
			DayOfWeek: 2, StartTime: "14:00", EndTime: "16:00",
		})
		assert.NoError(t, err)
	})
}

func TestAvailabilityUpdate(t *testing.T) {
	svc, repo := newAvailabilityFixture()
	window, err := svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
		DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00",
	})
	require.NoError(t, err)

	t.Run("owner shifts the window", func(t *testing.T) {
		updated, err := svc.Update(context.Background(), teacherActor, window.ID, UpdateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "15:00", EndTime: "17:00",
		})
		require.NoError(t, err)
		assert.Equal(t, "15:00", updated.StartTime)
	})

	t.Run("another teacher sees not found", func(t *testing.T) {
		_, err := svc.Update(context.Background(), models.Actor{UserID: "t2", Role: models.RoleTeacher}, window.ID, UpdateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00",
		})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	})

	t.Run("update colliding with a sibling window rejected", func(t *testing.T) {
		other, err := svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "08:00", EndTime: "10:00",
		})
		require.NoError(t, err)

		_, err = svc.Update(context.Background(), teacherActor, other.ID, UpdateAvailabilityRequest{
			DayOfWeek: 1, StartTime: "16:00", EndTime: "18:00",
		})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrScheduleConflict))
		assert.Equal(t, "08:00", repo.windows[other.ID].StartTime)
	})
}

func TestAvailabilityRemove(t *testing.T) {
	svc, repo := newAvailabilityFixture()
	window, err := svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
		DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00",
	})
	require.NoError(t, err)

	err = svc.Remove(context.Background(), models.Actor{UserID: "t2", Role: models.RoleTeacher}, window.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound), "foreign windows are reported as missing")

	require.NoError(t, svc.Remove(context.Background(), teacherActor, window.ID))
	assert.Empty(t, repo.windows)
}

func TestAvailabilityIsAvailable(t *testing.T) {
	svc, _ := newAvailabilityFixture()
	_, err := svc.Add(context.Background(), teacherActor, CreateAvailabilityRequest{
		DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00",
	})
	require.NoError(t, err)

	cases := []struct {
		name  string
		day   int
		clock string
		want  bool
	}{
		{"inside window", 1, "15:00", true},
		{"window start is covered", 1, "14:00", true},
		{"window end is not covered", 1, "16:00", false},
		{"before window", 1, "13:59", false},
		{"other day", 2, "15:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.IsAvailable(context.Background(), "t1", tc.day, tc.clock)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

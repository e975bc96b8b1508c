package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groove-academy/groove-api/internal/models"
	"github.com/groove-academy/groove-api/internal/repository"
	appErrors "github.com/groove-academy/groove-api/pkg/errors"
)

type fakeReplacementRepo struct {
	replacements map[string]*models.Replacement
	availability []models.Availability
	// afterFind runs once after the next FindByID, to interleave a
	// competing write between a caller's read and its update
	afterFind func()
}

func newFakeReplacementRepo() *fakeReplacementRepo {
	return &fakeReplacementRepo{replacements: map[string]*models.Replacement{}}
}

func (f *fakeReplacementRepo) FindByID(_ context.Context, id string) (*models.Replacement, error) {
	if r, ok := f.replacements[id]; ok {
		copied := *r
		if f.afterFind != nil {
			hook := f.afterFind
			f.afterFind = nil
			hook()
		}
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeReplacementRepo) List(_ context.Context, filter models.ReplacementFilter) ([]models.Replacement, int, error) {
	var out []models.Replacement
	for _, r := range f.replacements {
		if filter.TeacherID != "" && r.OriginalTeacherID != filter.TeacherID && r.ReplacementTeacherID != filter.TeacherID {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (f *fakeReplacementRepo) CreateMatched(_ context.Context, replacement *models.Replacement, dayOfWeek int, guard func(windows []models.Availability) error) error {
	var windows []models.Availability
	for _, a := range f.availability {
		if a.TeacherID == replacement.ReplacementTeacherID && a.DayOfWeek == dayOfWeek {
			windows = append(windows, a)
		}
	}
	if err := guard(windows); err != nil {
		return err
	}
	replacement.ID = uuid.NewString()
	f.replacements[replacement.ID] = replacement
	return nil
}

func (f *fakeReplacementRepo) UpdateStatus(_ context.Context, id string, from, to models.ReplacementStatus) error {
	r, ok := f.replacements[id]
	if !ok {
		return sql.ErrNoRows
	}
	if r.Status != from {
		return repository.ErrStaleStatus
	}
	r.Status = to
	return nil
}

func (f *fakeReplacementRepo) Delete(_ context.Context, id string) error {
	delete(f.replacements, id)
	return nil
}

type fakeIdentityReader struct {
	users map[string]*models.User
}

func (f *fakeIdentityReader) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type fakeCourseReader struct {
	courses map[string]*models.Course
}

func (f *fakeCourseReader) FindByID(_ context.Context, id string) (*models.Course, error) {
	if c, ok := f.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func teacherUser(id string) *models.User {
	return &models.User{ID: id, Role: models.RoleTeacher}
}

// mondaySession returns a date that falls on a Monday at the given clock time.
func mondaySession(t *testing.T, clock string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", "2026-09-07 "+clock)
	require.NoError(t, err)
	require.Equal(t, time.Monday, parsed.Weekday())
	return parsed
}

func newReplacementFixture() (*ReplacementService, *fakeReplacementRepo) {
	repo := newFakeReplacementRepo()
	users := &fakeIdentityReader{users: map[string]*models.User{
		"orig":  teacherUser("orig"),
		"sub":   teacherUser("sub"),
		"admin": {ID: "admin", Role: models.RoleAdmin},
	}}
	courses := &fakeCourseReader{courses: map[string]*models.Course{
		"piano": {ID: "piano", Name: "Piano", TeacherID: "orig", MaxStudents: 8},
	}}
	svc := NewReplacementService(repo, users, courses, nil, nil)
	return svc, repo
}

var adminActor = models.Actor{UserID: "admin", Role: models.RoleAdmin}

func TestReplacementRequest(t *testing.T) {
	base := RequestReplacementRequest{
		OriginalTeacherID:    "orig",
		ReplacementTeacherID: "sub",
		CourseID:             "piano",
	}

	t.Run("matches inside the window", func(t *testing.T) {
		svc, repo := newReplacementFixture()
		repo.availability = []models.Availability{
			{TeacherID: "sub", DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00"},
		}
		req := base
		req.Date = mondaySession(t, "15:00")

		replacement, err := svc.Request(context.Background(), adminActor, req)
		require.NoError(t, err)
		assert.Equal(t, models.ReplacementPending, replacement.Status)
		assert.NotEmpty(t, replacement.ID)
	})

	t.Run("boundary start is covered, end is not", func(t *testing.T) {
		svc, repo := newReplacementFixture()
		repo.availability = []models.Availability{
			{TeacherID: "sub", DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00"},
		}

		req := base
		req.Date = mondaySession(t, "14:00")
		_, err := svc.Request(context.Background(), adminActor, req)
		require.NoError(t, err)

		req.Date = mondaySession(t, "16:00")
		_, err = svc.Request(context.Background(), adminActor, req)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrNoAvailability))
	})

	t.Run("no window on that day", func(t *testing.T) {
		svc, repo := newReplacementFixture()
		repo.availability = []models.Availability{
			{TeacherID: "sub", DayOfWeek: 2, StartTime: "14:00", EndTime: "16:00"},
		}
		req := base
		req.Date = mondaySession(t, "15:00")

		_, err := svc.Request(context.Background(), adminActor, req)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrNoAvailability))
	})

	t.Run("non-admin rejected", func(t *testing.T) {
		svc, _ := newReplacementFixture()
		req := base
		req.Date = mondaySession(t, "15:00")

		_, err := svc.Request(context.Background(), models.Actor{UserID: "orig", Role: models.RoleTeacher}, req)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
	})

	t.Run("unknown replacement teacher", func(t *testing.T) {
		svc, _ := newReplacementFixture()
		req := base
		req.ReplacementTeacherID = "ghost"
		req.Date = mondaySession(t, "15:00")

		_, err := svc.Request(context.Background(), adminActor, req)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	})

	t.Run("student as replacement teacher", func(t *testing.T) {
		svc, repo := newReplacementFixture()
		users := &fakeIdentityReader{users: map[string]*models.User{
			"orig":    teacherUser("orig"),
			"student": {ID: "student", Role: models.RoleStudent},
		}}
		svc = NewReplacementService(repo, users, &fakeCourseReader{courses: map[string]*models.Course{
			"piano": {ID: "piano", TeacherID: "orig"},
		}}, nil, nil)

		req := base
		req.ReplacementTeacherID = "student"
		req.Date = mondaySession(t, "15:00")

		_, err := svc.Request(context.Background(), adminActor, req)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrRoleMismatch))
	})

	t.Run("course owned by someone else fails before availability", func(t *testing.T) {
		svc, repo := newReplacementFixture()
		// No availability at all: if ownership were checked after
		// availability this would surface NoAvailability instead.
		repo.availability = nil
		req := base
		req.OriginalTeacherID = "sub"
		req.ReplacementTeacherID = "orig"
		req.Date = mondaySession(t, "15:00")

		_, err := svc.Request(context.Background(), adminActor, req)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrOwnershipMismatch))
	})
}

func TestReplacementUpdateStatus(t *testing.T) {
	seed := func(repo *fakeReplacementRepo, status models.ReplacementStatus) string {
		id := uuid.NewString()
		repo.replacements[id] = &models.Replacement{
			ID:                   id,
			OriginalTeacherID:    "orig",
			ReplacementTeacherID: "sub",
			CourseID:             "piano",
			Status:               status,
		}
		return id
	}
	subActor := models.Actor{UserID: "sub", Role: models.RoleTeacher}

	t.Run("replacement teacher accepts", func(t *testing.T) {
		svc, repo := newReplacementFixture()
		id := seed(repo, models.ReplacementPending)

		updated, err := svc.UpdateStatus(context.Background(), subActor, id, UpdateReplacementStatusRequest{Status: models.ReplacementAccepted})
		require.NoError(t, err)
		assert.Equal(t, models.ReplacementAccepted, updated.Status)
	})

	t.Run("accepted completes", func(t *testing.T) {
		svc, repo := newReplacementFixture()
		id := seed(repo, models.ReplacementAccepted)

		updated, err := svc.UpdateStatus(context.Background(), adminActor, id, UpdateReplacementStatusRequest{Status: models.ReplacementCompleted})
		require.NoError(t, err)
		assert.Equal(t, models.ReplacementCompleted, updated.Status)
	})

	t.Run("declined is terminal", func(t *testing.T) {
		svc, repo := newReplacementFixture()
		id := seed(repo, models.ReplacementDeclined)

		_, err := svc.UpdateStatus(context.Background(), adminActor, id, UpdateReplacementStatusRequest{Status: models.ReplacementAccepted})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidTransition))
	})

	t.Run("pending cannot jump to completed", func(t *testing.T) {
		svc, repo := newReplacementFixture()
		id := seed(repo, models.ReplacementPending)

		_, err := svc.UpdateStatus(context.Background(), subActor, id, UpdateReplacementStatusRequest{Status: models.ReplacementCompleted})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidTransition))
	})

	t.Run("original teacher cannot act on it", func(t *testing.T) {
		svc, repo := newReplacementFixture()
		id := seed(repo, models.ReplacementPending)

		_, err := svc.UpdateStatus(context.Background(), models.Actor{UserID: "orig", Role: models.RoleTeacher}, id, UpdateReplacementStatusRequest{Status: models.ReplacementAccepted})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
	})

	t.Run("unknown status", func(t *testing.T) {
		svc, repo := newReplacementFixture()
		id := seed(repo, models.ReplacementPending)

		_, err := svc.UpdateStatus(context.Background(), subActor, id, UpdateReplacementStatusRequest{Status: "CANCELLED"})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	})

	t.Run("concurrent transition cannot overwrite", func(t *testing.T) {
		svc, repo := newReplacementFixture()
		id := seed(repo, models.ReplacementPending)

		// the teacher declines between the admin's read and write, so the
		// admin's accept validated against a PENDING row that is gone
		repo.afterFind = func() {
			repo.replacements[id].Status = models.ReplacementDeclined
		}

		_, err := svc.UpdateStatus(context.Background(), adminActor, id, UpdateReplacementStatusRequest{Status: models.ReplacementAccepted})
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidTransition))
		assert.Equal(t, models.ReplacementDeclined, repo.replacements[id].Status)
	})
}

func TestReplacementDelete(t *testing.T) {
	svc, repo := newReplacementFixture()
	for _, status := range []models.ReplacementStatus{
		models.ReplacementPending,
		models.ReplacementAccepted,
		models.ReplacementDeclined,
		models.ReplacementCompleted,
	} {
		id := uuid.NewString()
		repo.replacements[id] = &models.Replacement{ID: id, OriginalTeacherID: "orig", ReplacementTeacherID: "sub", Status: status}

		err := svc.Delete(context.Background(), adminActor, id)
		require.NoError(t, err, "admin delete in status %s", status)
	}

	id := uuid.NewString()
	repo.replacements[id] = &models.Replacement{ID: id, OriginalTeacherID: "orig", ReplacementTeacherID: "sub", Status: models.ReplacementPending}
	err := svc.Delete(context.Background(), models.Actor{UserID: "sub", Role: models.RoleTeacher}, id)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestReplacementListForTeacher(t *testing.T) {
	svc, repo := newReplacementFixture()
	id := uuid.NewString()
	repo.replacements[id] = &models.Replacement{ID: id, OriginalTeacherID: "orig", ReplacementTeacherID: "sub", Status: models.ReplacementPending}

	out, err := svc.ListForTeacher(context.Background(), models.Actor{UserID: "sub", Role: models.RoleTeacher}, "sub")
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = svc.ListForTeacher(context.Background(), models.Actor{UserID: "other", Role: models.RoleTeacher}, "sub")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

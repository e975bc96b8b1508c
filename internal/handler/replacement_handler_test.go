package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groove-academy/groove-api/internal/middleware"
	"github.com/groove-academy/groove-api/internal/models"
	"github.com/groove-academy/groove-api/internal/repository"
	"github.com/groove-academy/groove-api/internal/service"
)

type replacementRepoStub struct {
	created      *models.Replacement
	availability []models.Availability
	byID         map[string]*models.Replacement
}

func (s *replacementRepoStub) FindByID(_ context.Context, id string) (*models.Replacement, error) {
	if r, ok := s.byID[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (s *replacementRepoStub) List(_ context.Context, _ models.ReplacementFilter) ([]models.Replacement, int, error) {
	return nil, 0, nil
}

func (s *replacementRepoStub) CreateMatched(_ context.Context, replacement *models.Replacement, dayOfWeek int, guard func(windows []models.Availability) error) error {
	var windows []models.Availability
	for _, a := range s.availability {
		if a.TeacherID == replacement.ReplacementTeacherID && a.DayOfWeek == dayOfWeek {
			windows = append(windows, a)
		}
	}
	if err := guard(windows); err != nil {
		return err
	}
	replacement.ID = "r1"
	s.created = replacement
	return nil
}

func (s *replacementRepoStub) UpdateStatus(_ context.Context, id string, from, to models.ReplacementStatus) error {
	r := s.byID[id]
	if r.Status != from {
		return repository.ErrStaleStatus
	}
	r.Status = to
	return nil
}

func (s *replacementRepoStub) Delete(_ context.Context, id string) error {
	delete(s.byID, id)
	return nil
}

type usersStub map[string]*models.User

func (s usersStub) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type coursesStub map[string]*models.Course

func (s coursesStub) FindByID(_ context.Context, id string) (*models.Course, error) {
	if course, ok := s[id]; ok {
		return course, nil
	}
	return nil, sql.ErrNoRows
}

func newReplacementHandler(repo *replacementRepoStub) *ReplacementHandler {
	users := usersStub{
		"orig": {ID: "orig", Role: models.RoleTeacher},
		"sub":  {ID: "sub", Role: models.RoleTeacher},
	}
	courses := coursesStub{"piano": {ID: "piano", TeacherID: "orig"}}
	svc := service.NewReplacementService(repo, users, courses, nil, nil)
	return NewReplacementHandler(svc)
}

func adminContext(t *testing.T, w *httptest.ResponseRecorder, method, target string, payload interface{}) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	return c
}

func TestReplacementHandlerCreate(t *testing.T) {
	repo := &replacementRepoStub{
		availability: []models.Availability{{TeacherID: "sub", DayOfWeek: 1, StartTime: "14:00", EndTime: "16:00"}},
		byID:         map[string]*models.Replacement{},
	}
	handler := newReplacementHandler(repo)

	date, _ := time.Parse("2006-01-02 15:04", "2026-09-07 15:00")
	w := httptest.NewRecorder()
	c := adminContext(t, w, http.MethodPost, "/replacements", service.RequestReplacementRequest{
		OriginalTeacherID:    "orig",
		ReplacementTeacherID: "sub",
		CourseID:             "piano",
		Date:                 date,
	})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.ReplacementPending, repo.created.Status)
}

func TestReplacementHandlerCreateNoAvailability(t *testing.T) {
	repo := &replacementRepoStub{byID: map[string]*models.Replacement{}}
	handler := newReplacementHandler(repo)

	date, _ := time.Parse("2006-01-02 15:04", "2026-09-07 15:00")
	w := httptest.NewRecorder()
	c := adminContext(t, w, http.MethodPost, "/replacements", service.RequestReplacementRequest{
		OriginalTeacherID:    "orig",
		ReplacementTeacherID: "sub",
		CourseID:             "piano",
		Date:                 date,
	})

	handler.Create(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Nil(t, repo.created)
}

func TestReplacementHandlerUpdateStatusInvalidTransition(t *testing.T) {
	repo := &replacementRepoStub{byID: map[string]*models.Replacement{
		"r1": {ID: "r1", OriginalTeacherID: "orig", ReplacementTeacherID: "sub", Status: models.ReplacementDeclined},
	}}
	handler := newReplacementHandler(repo)

	w := httptest.NewRecorder()
	c := adminContext(t, w, http.MethodPatch, "/replacements/r1/status", service.UpdateReplacementStatusRequest{
		Status: models.ReplacementAccepted,
	})
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	handler.UpdateStatus(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReplacementHandlerCreateInvalidBody(t *testing.T) {
	repo := &replacementRepoStub{byID: map[string]*models.Replacement{}}
	handler := newReplacementHandler(repo)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/replacements", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

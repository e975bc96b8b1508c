package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/groove-academy/groove-api/internal/service"
	appErrors "github.com/groove-academy/groove-api/pkg/errors"
	"github.com/groove-academy/groove-api/pkg/response"
)

// ScheduleHandler manages course schedule endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Create godoc
// @Summary Schedule a course into weekly slots
// @Tags Schedules
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body service.ScheduleCourseRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{courseId}/schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ScheduleCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedules, err := h.service.ScheduleCourse(c.Request.Context(), actor, c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedules)
}

// ListByCourse godoc
// @Summary List a course's schedules
// @Tags Schedules
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/schedules [get]
func (h *ScheduleHandler) ListByCourse(c *gin.Context) {
	schedules, err := h.service.ListByCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// ListByTeacher godoc
// @Summary List a teacher's schedules
// @Tags Schedules
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/schedules [get]
func (h *ScheduleHandler) ListByTeacher(c *gin.Context) {
	schedules, err := h.service.ListByTeacher(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Delete godoc
// @Summary Remove one schedule entry
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

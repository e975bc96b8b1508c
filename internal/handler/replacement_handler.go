package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/groove-academy/groove-api/internal/models"
	"github.com/groove-academy/groove-api/internal/service"
	appErrors "github.com/groove-academy/groove-api/pkg/errors"
	"github.com/groove-academy/groove-api/pkg/response"
)

// ReplacementHandler manages substitution endpoints.
type ReplacementHandler struct {
	service *service.ReplacementService
}

// NewReplacementHandler constructs the handler.
func NewReplacementHandler(svc *service.ReplacementService) *ReplacementHandler {
	return &ReplacementHandler{service: svc}
}

// Create godoc
// @Summary Request a teacher replacement
// @Tags Replacements
// @Accept json
// @Produce json
// @Param payload body service.RequestReplacementRequest true "Replacement payload"
// @Success 201 {object} response.Envelope
// @Router /replacements [post]
func (h *ReplacementHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RequestReplacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	replacement, err := h.service.Request(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, replacement)
}

// UpdateStatus godoc
// @Summary Transition a replacement's status
// @Tags Replacements
// @Accept json
// @Produce json
// @Param id path string true "Replacement ID"
// @Param payload body service.UpdateReplacementStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /replacements/{id}/status [patch]
func (h *ReplacementHandler) UpdateStatus(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateReplacementStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	replacement, err := h.service.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, replacement, nil)
}

// Delete godoc
// @Summary Delete a replacement record
// @Tags Replacements
// @Produce json
// @Param id path string true "Replacement ID"
// @Success 204
// @Router /replacements/{id} [delete]
func (h *ReplacementHandler) Delete(c *gin.Context) {
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

// List godoc
// @Summary List replacements
// @Tags Replacements
// @Produce json
// @Param teacherId query string false "Filter by teacher"
// @Param courseId query string false "Filter by course"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /replacements [get]
func (h *ReplacementHandler) List(c *gin.Context) {
	var filter models.ReplacementFilter
	filter.TeacherID = c.Query("teacherId")
	filter.CourseID = c.Query("courseId")
	filter.Status = models.ReplacementStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	replacements, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, replacements, pagination)
}

// ListByTeacher godoc
// @Summary List replacements involving a teacher
// @Tags Replacements
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/replacements [get]
func (h *ReplacementHandler) ListByTeacher(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	replacements, err := h.service.ListForTeacher(c.Request.Context(), actor, c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, replacements, nil)
}

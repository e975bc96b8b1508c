package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/groove-academy/groove-api/internal/service"
	"github.com/groove-academy/groove-api/pkg/response"
)

// TimetableHandler exposes the derived weekly timetable view.
type TimetableHandler struct {
	service *service.TimetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Get godoc
// @Summary Get a teacher's weekly timetable
// @Tags Timetables
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/timetable [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	timetable, err := h.service.Get(c.Request.Context(), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// ExportCSV godoc
// @Summary Download a teacher's timetable as CSV
// @Tags Timetables
// @Produce text/csv
// @Param teacherId path string true "Teacher ID"
// @Success 200 {file} file
// @Router /teachers/{teacherId}/timetable/export/csv [get]
func (h *TimetableHandler) ExportCSV(c *gin.Context) {
	teacherID := c.Param("teacherId")
	payload, err := h.service.ExportCSV(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=timetable-%s.csv", teacherID))
	c.Data(http.StatusOK, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Download a teacher's timetable as PDF
// @Tags Timetables
// @Produce application/pdf
// @Param teacherId path string true "Teacher ID"
// @Success 200 {file} file
// @Router /teachers/{teacherId}/timetable/export/pdf [get]
func (h *TimetableHandler) ExportPDF(c *gin.Context) {
	teacherID := c.Param("teacherId")
	payload, err := h.service.ExportPDF(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=timetable-%s.pdf", teacherID))
	c.Data(http.StatusOK, "application/pdf", payload)
}

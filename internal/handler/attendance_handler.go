package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/edupulse-api/internal/service"
	appErrors "github.com/edupulse/edupulse-api/pkg/errors"
	"github.com/edupulse/edupulse-api/pkg/response"
)

// AttendanceHandler exposes the attendance ledger endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Mark godoc
// @Summary Record attendance for a course day
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.attendance.Mark(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "recorded"}, nil)
}

// History godoc
// @Summary Full attendance history for a course
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/attendance [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	records, err := h.attendance.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ByDate godoc
// @Summary Attendance records for a single day
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/{id}/attendance/day [get]
func (h *AttendanceHandler) ByDate(c *gin.Context) {
	records, err := h.attendance.ByDate(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// DeleteDay godoc
// @Summary Delete all attendance records for a day
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Success 204 {object} nil
// @Failure 400 {object} response.Envelope
// @Router /courses/{id}/attendance/day [delete]
func (h *AttendanceHandler) DeleteDay(c *gin.Context) {
	if err := h.attendance.DeleteDay(c.Request.Context(), c.Param("id"), c.Query("date")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Attendance summary for a student in a course
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/attendance/summary/{studentId} [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summary, err := h.attendance.Summary(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

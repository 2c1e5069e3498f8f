package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edupulse/edupulse-api/internal/service"
	appErrors "github.com/edupulse/edupulse-api/pkg/errors"
	"github.com/edupulse/edupulse-api/pkg/response"
)

// GradebookHandler exposes the aggregated gradebook views and exports.
type GradebookHandler struct {
	gradebook *service.GradebookService
	exports   *service.ExportService
}

// NewGradebookHandler constructs handler.
func NewGradebookHandler(gradebook *service.GradebookService, exports *service.ExportService) *GradebookHandler {
	return &GradebookHandler{gradebook: gradebook, exports: exports}
}

// Teacher godoc
// @Summary Full gradebook for a course
// @Tags Gradebook
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/gradebook [get]
func (h *GradebookHandler) Teacher(c *gin.Context) {
	view, err := h.gradebook.BuildTeacherGradebook(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Student godoc
// @Summary Gradebook restricted to the authenticated student
// @Tags Gradebook
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/gradebook/me [get]
func (h *GradebookHandler) Student(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	view, err := h.gradebook.BuildStudentGradebook(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// SetPolicy godoc
// @Summary Update the course quiz aggregation policy
// @Tags Gradebook
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body service.SetPolicyRequest true "Policy payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/gradebook/policy [put]
func (h *GradebookHandler) SetPolicy(c *gin.Context) {
	var req service.SetPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.gradebook.SetPolicy(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "updated"}, nil)
}

// Export godoc
// @Summary Download the gradebook as CSV or PDF
// @Tags Gradebook
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param format query string true "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /courses/{id}/gradebook/export [get]
func (h *GradebookHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.Generate(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

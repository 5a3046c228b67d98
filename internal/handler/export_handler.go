package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openadmit/admissions-api/internal/models"
	"github.com/openadmit/admissions-api/internal/service"
	"github.com/openadmit/admissions-api/pkg/response"
)

// ExportHandler serves decision letters and roster exports.
type ExportHandler struct {
	exports           *service.ExportService
	defaultSchoolYear string
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService, defaultSchoolYear string) *ExportHandler {
	return &ExportHandler{exports: exports, defaultSchoolYear: defaultSchoolYear}
}

// DecisionLetter godoc
// @Summary Download the decision letter for an application
// @Tags Exports
// @Produce application/pdf
// @Param id path string true "Application ID"
// @Success 200 {file} binary
// @Router /exports/applications/{id}/decision-letter [get]
func (h *ExportHandler) DecisionLetter(c *gin.Context) {
	payload, filename, err := h.exports.DecisionLetter(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}

// ApplicationRoster godoc
// @Summary Download the application roster as CSV
// @Tags Exports
// @Produce text/csv
// @Param schoolId query string true "School ID"
// @Param schoolYear query string false "School year"
// @Param status query string false "Filter by status"
// @Success 200 {file} binary
// @Router /exports/applications [get]
func (h *ExportHandler) ApplicationRoster(c *gin.Context) {
	schoolYear := c.Query("schoolYear")
	if schoolYear == "" {
		schoolYear = h.defaultSchoolYear
	}
	payload, filename, err := h.exports.ApplicationRoster(
		c.Request.Context(),
		c.Query("schoolId"),
		schoolYear,
		models.ApplicationStatus(c.Query("status")),
	)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

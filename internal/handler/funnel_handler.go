package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openadmit/admissions-api/internal/service"
	"github.com/openadmit/admissions-api/pkg/response"
)

// FunnelHandler exposes the admissions funnel dashboard.
type FunnelHandler struct {
	funnel            *service.FunnelService
	defaultSchoolYear string
}

// NewFunnelHandler constructs FunnelHandler.
func NewFunnelHandler(funnel *service.FunnelService, defaultSchoolYear string) *FunnelHandler {
	return &FunnelHandler{funnel: funnel, defaultSchoolYear: defaultSchoolYear}
}

// Summary godoc
// @Summary Admissions funnel summary
// @Tags Funnel
// @Produce json
// @Param schoolId query string true "School ID"
// @Param schoolYear query string false "School year"
// @Success 200 {object} response.Envelope
// @Router /funnel [get]
func (h *FunnelHandler) Summary(c *gin.Context) {
	schoolYear := c.Query("schoolYear")
	if schoolYear == "" {
		schoolYear = h.defaultSchoolYear
	}
	summary, err := h.funnel.Summary(c.Request.Context(), c.Query("schoolId"), schoolYear)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

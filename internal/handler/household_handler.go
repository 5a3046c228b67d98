package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openadmit/admissions-api/internal/models"
	"github.com/openadmit/admissions-api/internal/service"
	appErrors "github.com/openadmit/admissions-api/pkg/errors"
	"github.com/openadmit/admissions-api/pkg/response"
)

// HouseholdHandler exposes household and guardian endpoints.
type HouseholdHandler struct {
	households *service.HouseholdService
}

// NewHouseholdHandler constructs HouseholdHandler.
func NewHouseholdHandler(households *service.HouseholdService) *HouseholdHandler {
	return &HouseholdHandler{households: households}
}

// List godoc
// @Summary List households
// @Tags Households
// @Produce json
// @Param schoolId query string false "Filter by school"
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /households [get]
func (h *HouseholdHandler) List(c *gin.Context) {
	var filter models.HouseholdFilter
	filter.SchoolID = c.Query("schoolId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	households, pagination, err := h.households.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, households, pagination)
}

// Get godoc
// @Summary Get household detail with guardians and students
// @Tags Households
// @Produce json
// @Param id path string true "Household ID"
// @Success 200 {object} response.Envelope
// @Router /households/{id} [get]
func (h *HouseholdHandler) Get(c *gin.Context) {
	household, err := h.households.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, household, nil)
}

// AddGuardian godoc
// @Summary Add a guardian to a household
// @Tags Households
// @Accept json
// @Produce json
// @Param id path string true "Household ID"
// @Param payload body service.AddGuardianRequest true "Guardian payload"
// @Success 201 {object} response.Envelope
// @Router /households/{id}/guardians [post]
func (h *HouseholdHandler) AddGuardian(c *gin.Context) {
	var req service.AddGuardianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	guardian, err := h.households.AddGuardian(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, guardian)
}

// SetPrimaryGuardian godoc
// @Summary Promote a guardian to primary
// @Tags Households
// @Produce json
// @Param id path string true "Household ID"
// @Param guardianId path string true "Guardian ID"
// @Success 200 {object} response.Envelope
// @Router /households/{id}/guardians/{guardianId}/primary [put]
func (h *HouseholdHandler) SetPrimaryGuardian(c *gin.Context) {
	household, err := h.households.SetPrimaryGuardian(c.Request.Context(), c.Param("id"), c.Param("guardianId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, household, nil)
}

// AttachStudent godoc
// @Summary Attach a student to an additional household
// @Tags Households
// @Accept json
// @Produce json
// @Param id path string true "Household ID"
// @Param payload body service.AttachStudentRequest true "Attach payload"
// @Success 201 {object} response.Envelope
// @Router /households/{id}/students [post]
func (h *HouseholdHandler) AttachStudent(c *gin.Context) {
	var req service.AttachStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	link, err := h.households.AttachStudent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

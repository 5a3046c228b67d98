package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openadmit/admissions-api/internal/models"
	"github.com/openadmit/admissions-api/internal/repository"
	appErrors "github.com/openadmit/admissions-api/pkg/errors"
)

type mockConverter struct {
	result *repository.ConvertResult
	params repository.ConvertParams
}

func (m *mockConverter) Convert(ctx context.Context, params repository.ConvertParams) (*repository.ConvertResult, error) {
	m.params = params
	return m.result, nil
}

func convertedFixture() *repository.ConvertResult {
	now := time.Now().UTC()
	householdID := "hh-1"
	return &repository.ConvertResult{
		Lead: &models.Lead{
			ID:                   "lead-1",
			SchoolID:             "school-1",
			LastName:             "Whitfield",
			Stage:                models.LeadStageConverted,
			ConvertedHouseholdID: &householdID,
			ConvertedAt:          &now,
		},
		PreviousStage: models.LeadStageTourCompleted,
		Household: &models.Household{ID: householdID, Name: "Whitfield Family"},
		Guardian:  &models.Guardian{ID: "g-1", HouseholdID: householdID, IsPrimary: true},
		Students: []models.Student{
			{ID: "st-1", HouseholdID: householdID, EnrollmentStatus: models.EnrollmentStatusApplicant},
			{ID: "st-2", HouseholdID: householdID, EnrollmentStatus: models.EnrollmentStatusApplicant},
		},
		Application: &models.Application{ID: "app-1", StudentID: "st-1", Status: models.ApplicationStatusDraft},
	}
}

func TestConversionServiceConvert(t *testing.T) {
	converter := &mockConverter{result: convertedFixture()}
	events := &mockDispatcher{}
	audits := &mockAuditWriter{}
	svc := NewConversionService(converter, events, audits, nil, nil, "Student")

	result, err := svc.Convert(context.Background(), "lead-1", ConvertLeadRequest{SchoolYear: "2026-2027", GradeLevel: "6"}, "op-1")
	require.NoError(t, err)

	assert.Equal(t, "hh-1", result.HouseholdID)
	assert.Equal(t, "g-1", result.GuardianID)
	assert.Equal(t, []string{"st-1", "st-2"}, result.StudentIDs)
	assert.Equal(t, "app-1", result.ApplicationID)
	assert.Equal(t, models.LeadStageConverted, result.Lead.Stage)
	assert.Equal(t, "Student", converter.params.PlaceholderStudentName)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventLeadConverted, events.events[0].Type)
	assert.Equal(t, string(models.LeadStageTourCompleted), events.events[0].OldState)
	assert.Equal(t, string(models.LeadStageConverted), events.events[0].NewState)
	require.Len(t, audits.logs, 1)
	assert.Equal(t, models.AuditActionLeadConvert, audits.logs[0].Action)
}

func TestConversionServiceConvertMissingYear(t *testing.T) {
	svc := NewConversionService(&mockConverter{}, nil, nil, nil, nil, "")

	_, err := svc.Convert(context.Background(), "lead-1", ConvertLeadRequest{GradeLevel: "6"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestConversionServiceConvertNotFound(t *testing.T) {
	converter := &mockConverter{result: &repository.ConvertResult{NotFound: true}}
	svc := NewConversionService(converter, nil, nil, nil, nil, "")

	_, err := svc.Convert(context.Background(), "ghost", ConvertLeadRequest{SchoolYear: "2026-2027", GradeLevel: "6"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestConversionServiceConvertAlreadyClosed(t *testing.T) {
	converter := &mockConverter{result: &repository.ConvertResult{
		Lead:          &models.Lead{ID: "lead-1", Stage: models.LeadStageLost},
		AlreadyClosed: true,
	}}
	events := &mockDispatcher{}
	svc := NewConversionService(converter, events, nil, nil, nil, "")

	_, err := svc.Convert(context.Background(), "lead-1", ConvertLeadRequest{SchoolYear: "2026-2027", GradeLevel: "6"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrAlreadyTerminal)
	assert.Empty(t, events.events)
}

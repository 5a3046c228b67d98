package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openadmit/admissions-api/internal/models"
	"github.com/openadmit/admissions-api/internal/repository"
	appErrors "github.com/openadmit/admissions-api/pkg/errors"
)

type leadConverter interface {
	Convert(ctx context.Context, params repository.ConvertParams) (*repository.ConvertResult, error)
}

// ConvertLeadRequest carries the conversion inputs.
type ConvertLeadRequest struct {
	SchoolYear string `json:"school_year" validate:"required"`
	GradeLevel string `json:"grade_level" validate:"required"`
}

// ConvertLeadResponse reports the created household bundle.
type ConvertLeadResponse struct {
	HouseholdID   string              `json:"household_id"`
	GuardianID    string              `json:"guardian_id"`
	StudentIDs    []string            `json:"student_ids"`
	ApplicationID string              `json:"application_id"`
	Lead          *models.Lead        `json:"lead"`
	Application   *models.Application `json:"application"`
}

// ConversionService materialises a lead into a household, guardian,
// students and a draft application in one transaction.
type ConversionService struct {
	converter              leadConverter
	events                 eventDispatcher
	audits                 auditWriter
	validator              *validator.Validate
	logger                 *zap.Logger
	placeholderStudentName string
}

// NewConversionService constructs ConversionService.
func NewConversionService(converter leadConverter, events eventDispatcher, audits auditWriter, validate *validator.Validate, logger *zap.Logger, placeholderStudentName string) *ConversionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversionService{
		converter:              converter,
		events:                 events,
		audits:                 audits,
		validator:              validate,
		logger:                 logger,
		placeholderStudentName: placeholderStudentName,
	}
}

// Convert runs the conversion procedure for a lead.
func (s *ConversionService) Convert(ctx context.Context, leadID string, req ConvertLeadRequest, actorID string) (*ConvertLeadResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conversion payload")
	}

	result, err := s.converter.Convert(ctx, repository.ConvertParams{
		LeadID:                 leadID,
		SchoolYear:             req.SchoolYear,
		GradeLevel:             req.GradeLevel,
		PlaceholderStudentName: s.placeholderStudentName,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to convert lead")
	}
	if result.NotFound {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lead not found")
	}
	if result.AlreadyClosed {
		return nil, appErrors.Clone(appErrors.ErrAlreadyTerminal, "lead is already converted or lost")
	}

	if s.events != nil {
		s.events.Dispatch(models.Event{
			Type:       models.EventLeadConverted,
			SchoolID:   result.Lead.SchoolID,
			EntityID:   result.Lead.ID,
			OldState:   string(result.PreviousStage),
			NewState:   string(models.LeadStageConverted),
			OccurredAt: time.Now().UTC(),
			ActorID:    actorID,
		})
	}
	if s.audits != nil {
		var userID *string
		if actorID != "" {
			userID = &actorID
		}
		if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     userID,
			Action:     models.AuditActionLeadConvert,
			Resource:   "lead",
			ResourceID: &result.Lead.ID,
			NewValues:  []byte(`{"household_id":"` + result.Household.ID + `"}`),
		}); err != nil {
			s.logger.Warn("failed to record conversion audit log", zap.Error(err))
		}
	}

	studentIDs := make([]string, 0, len(result.Students))
	for _, student := range result.Students {
		studentIDs = append(studentIDs, student.ID)
	}

	return &ConvertLeadResponse{
		HouseholdID:   result.Household.ID,
		GuardianID:    result.Guardian.ID,
		StudentIDs:    studentIDs,
		ApplicationID: result.Application.ID,
		Lead:          result.Lead,
		Application:   result.Application,
	}, nil
}

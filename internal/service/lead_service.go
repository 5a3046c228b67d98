package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openadmit/admissions-api/internal/models"
	appErrors "github.com/openadmit/admissions-api/pkg/errors"
)

type leadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, id string) (*models.Lead, error)
	List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, int, error)
	UpdateStage(ctx context.Context, id string, from, to models.LeadStage) (bool, error)
	SetTourScheduled(ctx context.Context, id string, from models.LeadStage, tourAt time.Time) (bool, error)
	SetTourCompleted(ctx context.Context, id string, from models.LeadStage, completedAt time.Time) (bool, error)
	MarkLost(ctx context.Context, id string, from models.LeadStage, lostAt time.Time, reason *string) (bool, error)
}

type eventDispatcher interface {
	Dispatch(event models.Event)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateLeadRequest captures a new inquiry.
type CreateLeadRequest struct {
	SchoolID         string `json:"school_id" validate:"required"`
	FirstName        string `json:"first_name" validate:"required"`
	LastName         string `json:"last_name" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone"`
	Source           string `json:"source"`
	InterestedGrades string `json:"interested_grades"`
	NumberOfStudents int    `json:"number_of_students" validate:"omitempty,min=1"`
	Notes            string `json:"notes"`
}

// ScheduleTourRequest carries the tour slot.
type ScheduleTourRequest struct {
	TourAt string `json:"tour_at" validate:"required"`
}

// MarkLostRequest carries the optional loss reason.
type MarkLostRequest struct {
	Reason string `json:"reason"`
}

// AdvanceStageRequest carries a direct stage target.
type AdvanceStageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

// LeadService governs a lead's progress through the admissions pipeline.
// All stage writes are compare-and-swap against the stage read at the top
// of the operation; a concurrent transition surfaces as INVALID_TRANSITION
// instead of silently overwriting.
type LeadService struct {
	repo      leadRepository
	events    eventDispatcher
	audits    auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeadService constructs LeadService.
func NewLeadService(repo leadRepository, events eventDispatcher, audits auditWriter, validate *validator.Validate, logger *zap.Logger) *LeadService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadService{repo: repo, events: events, audits: audits, validator: validate, logger: logger}
}

// Create captures a new inquiry at the INQUIRY stage.
func (s *LeadService) Create(ctx context.Context, req CreateLeadRequest, actorID string) (*models.Lead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lead payload")
	}
	source := models.LeadSource(req.Source)
	if source == "" {
		source = models.LeadSourceOther
	}
	count := req.NumberOfStudents
	if count <= 0 {
		count = 1
	}
	lead := &models.Lead{
		SchoolID:         req.SchoolID,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		Phone:            req.Phone,
		Source:           source,
		Stage:            models.LeadStageInquiry,
		InterestedGrades: req.InterestedGrades,
		NumberOfStudents: count,
		Notes:            req.Notes,
	}
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lead")
	}
	s.audit(ctx, actorID, models.AuditActionLeadCreate, lead.ID, string(lead.Stage))
	return lead, nil
}

// Get returns a lead by ID.
func (s *LeadService) Get(ctx context.Context, id string) (*models.Lead, error) {
	lead, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lead not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lead")
	}
	return lead, nil
}

// List returns leads with pagination metadata.
func (s *LeadService) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, *models.Pagination, error) {
	leads, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leads")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return leads, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ScheduleTour moves a lead to TOUR_SCHEDULED and records the slot.
func (s *LeadService) ScheduleTour(ctx context.Context, id string, req ScheduleTourRequest, actorID string) (*models.Lead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tour payload")
	}
	tourAt, err := time.Parse(time.RFC3339, req.TourAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tour_at must be a valid RFC3339 timestamp")
	}

	lead, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Stage.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyTerminal, "lead is already converted or lost")
	}

	updated, err := s.repo.SetTourScheduled(ctx, id, lead.Stage, tourAt.UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule tour")
	}
	if !updated {
		return nil, s.staleStageError(ctx, id)
	}

	s.afterStageChange(ctx, lead, models.LeadStageTourScheduled, actorID)
	return s.Get(ctx, id)
}

// CompleteTour moves a lead to TOUR_COMPLETED with a write-time stamp.
func (s *LeadService) CompleteTour(ctx context.Context, id string, actorID string) (*models.Lead, error) {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Stage.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyTerminal, "lead is already converted or lost")
	}

	updated, err := s.repo.SetTourCompleted(ctx, id, lead.Stage, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete tour")
	}
	if !updated {
		return nil, s.staleStageError(ctx, id)
	}

	s.afterStageChange(ctx, lead, models.LeadStageTourCompleted, actorID)
	return s.Get(ctx, id)
}

// MarkLost terminates a lead. A second call fails with ALREADY_TERMINAL and
// leaves lost_at untouched.
func (s *LeadService) MarkLost(ctx context.Context, id string, req MarkLostRequest, actorID string) (*models.Lead, error) {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Stage.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyTerminal, "lead is already converted or lost")
	}

	var reason *string
	if req.Reason != "" {
		reason = &req.Reason
	}
	updated, err := s.repo.MarkLost(ctx, id, lead.Stage, time.Now().UTC(), reason)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark lead lost")
	}
	if !updated {
		return nil, s.staleStageError(ctx, id)
	}

	s.afterStageChange(ctx, lead, models.LeadStageLost, actorID)
	return s.Get(ctx, id)
}

// AdvanceStage moves a lead directly to the requested stage. Any
// non-terminal stage may move to any other non-terminal stage or to LOST;
// CONVERTED is only reachable through conversion.
func (s *LeadService) AdvanceStage(ctx context.Context, id string, req AdvanceStageRequest, actorID string) (*models.Lead, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stage payload")
	}
	target := models.LeadStage(req.Stage)
	if !models.ValidLeadStage(target) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown lead stage")
	}
	if target == models.LeadStageLost {
		return s.MarkLost(ctx, id, MarkLostRequest{}, actorID)
	}

	lead, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Stage.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyTerminal, "lead is already converted or lost")
	}
	if !lead.Stage.CanAdvanceTo(target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "stage transition not allowed")
	}

	updated, err := s.repo.UpdateStage(ctx, id, lead.Stage, target)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance lead stage")
	}
	if !updated {
		return nil, s.staleStageError(ctx, id)
	}

	s.afterStageChange(ctx, lead, target, actorID)
	return s.Get(ctx, id)
}

// staleStageError distinguishes a vanished row from a concurrent transition
// after a compare-and-swap affected no rows.
func (s *LeadService) staleStageError(ctx context.Context, id string) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lead not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload lead")
	}
	if current.Stage.IsTerminal() {
		return appErrors.Clone(appErrors.ErrAlreadyTerminal, "lead is already converted or lost")
	}
	return appErrors.Clone(appErrors.ErrInvalidTransition, "lead stage changed concurrently")
}

func (s *LeadService) afterStageChange(ctx context.Context, lead *models.Lead, newStage models.LeadStage, actorID string) {
	if s.events != nil {
		s.events.Dispatch(models.Event{
			Type:       models.EventLeadStageChanged,
			SchoolID:   lead.SchoolID,
			EntityID:   lead.ID,
			OldState:   string(lead.Stage),
			NewState:   string(newStage),
			OccurredAt: time.Now().UTC(),
			ActorID:    actorID,
		})
	}
	s.audit(ctx, actorID, models.AuditActionLeadStageChange, lead.ID, string(newStage))
}

func (s *LeadService) audit(ctx context.Context, actorID, action, leadID, newState string) {
	if s.audits == nil {
		return
	}
	var userID *string
	if actorID != "" {
		userID = &actorID
	}
	if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   "lead",
		ResourceID: &leadID,
		NewValues:  []byte(`{"stage":"` + newState + `"}`),
	}); err != nil {
		s.logger.Warn("failed to record lead audit log", zap.Error(err))
	}
}

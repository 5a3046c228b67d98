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

type applicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	FindDetailByID(ctx context.Context, id string) (*models.ApplicationDetail, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
	UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) (bool, error)
	MarkSubmitted(ctx context.Context, id string, from models.ApplicationStatus, submittedAt time.Time) (bool, error)
	ScheduleInterview(ctx context.Context, id string, from models.ApplicationStatus, interviewAt time.Time) (bool, error)
	CompleteInterview(ctx context.Context, id string, from models.ApplicationStatus, completedAt time.Time) (bool, error)
	RecordDecision(ctx context.Context, id string, from, outcome models.ApplicationStatus, decidedBy string, notes *string, waitlistPosition *int, studentStatus models.EnrollmentStatus) (bool, error)
	Enroll(ctx context.Context, id, studentID string) (bool, error)
	SetFeePaid(ctx context.Context, id string, paid bool) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CreateApplicationRequest captures a family-initiated application.
type CreateApplicationRequest struct {
	SchoolID         string `json:"school_id" validate:"required"`
	StudentID        string `json:"student_id" validate:"required"`
	SchoolYear       string `json:"school_year" validate:"required"`
	GradeApplyingFor string `json:"grade_applying_for" validate:"required"`
}

// ScheduleInterviewRequest carries the interview slot.
type ScheduleInterviewRequest struct {
	InterviewAt string `json:"interview_at" validate:"required"`
}

// DecideRequest carries the decision outcome and its audit fields.
type DecideRequest struct {
	Outcome          string `json:"outcome" validate:"required"`
	Notes            string `json:"notes"`
	WaitlistPosition *int   `json:"waitlist_position" validate:"omitempty,min=1"`
}

// EnrollRequest names the student being enrolled.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// ApplicationService governs an application's progress through review,
// interview, decision and enrollment. Transitions validate the stored
// status against the operation's allowed source set; an out-of-order call
// fails with INVALID_TRANSITION and writes nothing. No transition is
// retried internally.
type ApplicationService struct {
	repo      applicationRepository
	students  studentReader
	events    eventDispatcher
	audits    auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApplicationService constructs ApplicationService.
func NewApplicationService(repo applicationRepository, students studentReader, events eventDispatcher, audits auditWriter, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{repo: repo, students: students, events: events, audits: audits, validator: validate, logger: logger}
}

// Create registers a family-initiated application at DRAFT.
func (s *ApplicationService) Create(ctx context.Context, req CreateApplicationRequest, actorID string) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	app := &models.Application{
		SchoolID:         req.SchoolID,
		StudentID:        student.ID,
		SchoolYear:       req.SchoolYear,
		GradeApplyingFor: req.GradeApplyingFor,
		Status:           models.ApplicationStatusDraft,
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	s.audit(ctx, actorID, models.AuditActionApplicationMove, app.ID, string(app.Status))
	return app, nil
}

// Get returns an application with student context.
func (s *ApplicationService) Get(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return detail, nil
}

// List returns applications with pagination metadata.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	applications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return applications, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Submit moves DRAFT to SUBMITTED and stamps submitted_at.
func (s *ApplicationService) Submit(ctx context.Context, id string, actorID string) (*models.ApplicationDetail, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(app, models.ApplicationStatusSubmitted); err != nil {
		return nil, err
	}
	updated, err := s.repo.MarkSubmitted(ctx, id, app.Status, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit application")
	}
	if !updated {
		return nil, s.staleStatusError(ctx, id)
	}
	s.afterStatusChange(ctx, app, models.ApplicationStatusSubmitted, actorID)
	return s.Get(ctx, id)
}

// StartReview moves SUBMITTED to UNDER_REVIEW.
func (s *ApplicationService) StartReview(ctx context.Context, id string, actorID string) (*models.ApplicationDetail, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationStatusSubmitted {
		return nil, s.transitionError(app)
	}
	updated, err := s.repo.UpdateStatus(ctx, id, app.Status, models.ApplicationStatusUnderReview)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start review")
	}
	if !updated {
		return nil, s.staleStatusError(ctx, id)
	}
	s.afterStatusChange(ctx, app, models.ApplicationStatusUnderReview, actorID)
	return s.Get(ctx, id)
}

// ScheduleInterview moves UNDER_REVIEW to INTERVIEW_SCHEDULED.
func (s *ApplicationService) ScheduleInterview(ctx context.Context, id string, req ScheduleInterviewRequest, actorID string) (*models.ApplicationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid interview payload")
	}
	interviewAt, err := time.Parse(time.RFC3339, req.InterviewAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "interview_at must be a valid RFC3339 timestamp")
	}

	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationStatusUnderReview {
		return nil, s.transitionError(app)
	}
	updated, err := s.repo.ScheduleInterview(ctx, id, app.Status, interviewAt.UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to schedule interview")
	}
	if !updated {
		return nil, s.staleStatusError(ctx, id)
	}
	s.afterStatusChange(ctx, app, models.ApplicationStatusInterviewScheduled, actorID)
	return s.Get(ctx, id)
}

// CompleteInterview moves INTERVIEW_SCHEDULED to INTERVIEW_COMPLETED.
func (s *ApplicationService) CompleteInterview(ctx context.Context, id string, actorID string) (*models.ApplicationDetail, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationStatusInterviewScheduled {
		return nil, s.transitionError(app)
	}
	updated, err := s.repo.CompleteInterview(ctx, id, app.Status, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete interview")
	}
	if !updated {
		return nil, s.staleStatusError(ctx, id)
	}
	s.afterStatusChange(ctx, app, models.ApplicationStatusInterviewCompleted, actorID)
	return s.Get(ctx, id)
}

// Decide records an accepted/waitlisted/denied outcome, stamping the
// decision audit fields. Decisions come out of UNDER_REVIEW or
// INTERVIEW_COMPLETED; a waitlisted application may additionally be promoted
// to ACCEPTED when a seat opens. WAITLISTED requires a caller-supplied
// positive position; duplicate positions across applications are a policy
// concern, not enforced here.
func (s *ApplicationService) Decide(ctx context.Context, id string, req DecideRequest, actorID string) (*models.ApplicationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	outcome := models.ApplicationStatus(req.Outcome)
	if !outcome.DecisionOutcome() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "outcome must be ACCEPTED, WAITLISTED or DENIED")
	}
	if outcome == models.ApplicationStatusWaitlisted && req.WaitlistPosition == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "waitlist_position is required for WAITLISTED")
	}
	var position *int
	if outcome == models.ApplicationStatusWaitlisted {
		position = req.WaitlistPosition
	}

	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !app.Status.CanTransitionTo(outcome) {
		return nil, s.transitionError(app)
	}

	var notes *string
	if req.Notes != "" {
		notes = &req.Notes
	}
	updated, err := s.repo.RecordDecision(ctx, id, app.Status, outcome, actorID, notes, position, studentStatusFor(outcome))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record decision")
	}
	if !updated {
		return nil, s.staleStatusError(ctx, id)
	}

	s.afterStatusChange(ctx, app, outcome, actorID)
	s.audit(ctx, actorID, models.AuditActionDecisionRecorded, id, string(outcome))
	return s.Get(ctx, id)
}

// Enroll finalizes an ACCEPTED application: the application and the student
// flip to enrolled in one atomic unit.
func (s *ApplicationService) Enroll(ctx context.Context, id string, req EnrollRequest, actorID string) (*models.ApplicationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.StudentID != req.StudentID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student does not match application")
	}
	if app.Status != models.ApplicationStatusAccepted {
		return nil, s.transitionError(app)
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	updated, err := s.repo.Enroll(ctx, id, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	if !updated {
		return nil, s.staleStatusError(ctx, id)
	}

	s.afterStatusChange(ctx, app, models.ApplicationStatusEnrolled, actorID)
	if s.events != nil {
		s.events.Dispatch(models.Event{
			Type:       models.EventEnrollmentConfirmed,
			SchoolID:   app.SchoolID,
			EntityID:   req.StudentID,
			OldState:   string(models.EnrollmentStatusAccepted),
			NewState:   string(models.EnrollmentStatusEnrolled),
			OccurredAt: time.Now().UTC(),
			ActorID:    actorID,
		})
	}
	s.audit(ctx, actorID, models.AuditActionEnrollment, id, string(models.ApplicationStatusEnrolled))
	return s.Get(ctx, id)
}

// Withdraw terminates an application from any non-terminal status.
func (s *ApplicationService) Withdraw(ctx context.Context, id string, actorID string) (*models.ApplicationDetail, error) {
	app, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyTerminal, "application is already closed")
	}
	updated, err := s.repo.UpdateStatus(ctx, id, app.Status, models.ApplicationStatusWithdrawn)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw application")
	}
	if !updated {
		return nil, s.staleStatusError(ctx, id)
	}
	s.afterStatusChange(ctx, app, models.ApplicationStatusWithdrawn, actorID)
	return s.Get(ctx, id)
}

// MarkFeePaid flips the application fee flag without a status change.
func (s *ApplicationService) MarkFeePaid(ctx context.Context, id string, actorID string) (*models.ApplicationDetail, error) {
	if err := s.repo.SetFeePaid(ctx, id, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark fee paid")
	}
	return s.Get(ctx, id)
}

func (s *ApplicationService) load(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return app, nil
}

func (s *ApplicationService) checkTransition(app *models.Application, target models.ApplicationStatus) error {
	if app.Status.IsTerminal() {
		return appErrors.Clone(appErrors.ErrAlreadyTerminal, "application is already closed")
	}
	if !app.Status.CanTransitionTo(target) {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "status transition not allowed")
	}
	return nil
}

func (s *ApplicationService) transitionError(app *models.Application) error {
	if app.Status.IsTerminal() {
		return appErrors.Clone(appErrors.ErrAlreadyTerminal, "application is already closed")
	}
	return appErrors.Clone(appErrors.ErrInvalidTransition, "status transition not allowed")
}

// staleStatusError distinguishes a vanished row from a concurrent
// transition after a compare-and-swap affected no rows.
func (s *ApplicationService) staleStatusError(ctx context.Context, id string) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload application")
	}
	if current.Status.IsTerminal() {
		return appErrors.Clone(appErrors.ErrAlreadyTerminal, "application is already closed")
	}
	return appErrors.Clone(appErrors.ErrInvalidTransition, "application status changed concurrently")
}

func (s *ApplicationService) afterStatusChange(ctx context.Context, app *models.Application, newStatus models.ApplicationStatus, actorID string) {
	if s.events != nil {
		s.events.Dispatch(models.Event{
			Type:       models.EventApplicationStatusChange,
			SchoolID:   app.SchoolID,
			EntityID:   app.ID,
			OldState:   string(app.Status),
			NewState:   string(newStatus),
			OccurredAt: time.Now().UTC(),
			ActorID:    actorID,
		})
	}
	s.audit(ctx, actorID, models.AuditActionApplicationMove, app.ID, string(newStatus))
}

func (s *ApplicationService) audit(ctx context.Context, actorID, action, appID, newState string) {
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
		Resource:   "application",
		ResourceID: &appID,
		NewValues:  []byte(`{"status":"` + newState + `"}`),
	}); err != nil {
		s.logger.Warn("failed to record application audit log", zap.Error(err))
	}
}

func studentStatusFor(outcome models.ApplicationStatus) models.EnrollmentStatus {
	switch outcome {
	case models.ApplicationStatusAccepted:
		return models.EnrollmentStatusAccepted
	case models.ApplicationStatusWaitlisted:
		return models.EnrollmentStatusWaitlisted
	default:
		return models.EnrollmentStatusDenied
	}
}

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openadmit/admissions-api/internal/models"
	appErrors "github.com/openadmit/admissions-api/pkg/errors"
)

type mockApplicationRepo struct {
	applications map[string]models.Application
	students     map[string]models.Student
}

func (m *mockApplicationRepo) Create(ctx context.Context, app *models.Application) error {
	if m.applications == nil {
		m.applications = make(map[string]models.Application)
	}
	if app.ID == "" {
		app.ID = "new-app"
	}
	m.applications[app.ID] = *app
	return nil
}

func (m *mockApplicationRepo) FindByID(ctx context.Context, id string) (*models.Application, error) {
	if app, ok := m.applications[id]; ok {
		return &app, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) FindDetailByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	if app, ok := m.applications[id]; ok {
		return &models.ApplicationDetail{Application: app}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	var list []models.ApplicationDetail
	for _, app := range m.applications {
		list = append(list, models.ApplicationDetail{Application: app})
	}
	return list, len(list), nil
}

func (m *mockApplicationRepo) cas(id string, from models.ApplicationStatus, mutate func(*models.Application)) (bool, error) {
	app, ok := m.applications[id]
	if !ok || app.Status != from {
		return false, nil
	}
	mutate(&app)
	m.applications[id] = app
	return true, nil
}

func (m *mockApplicationRepo) UpdateStatus(ctx context.Context, id string, from, to models.ApplicationStatus) (bool, error) {
	return m.cas(id, from, func(app *models.Application) { app.Status = to })
}

func (m *mockApplicationRepo) MarkSubmitted(ctx context.Context, id string, from models.ApplicationStatus, submittedAt time.Time) (bool, error) {
	return m.cas(id, from, func(app *models.Application) {
		app.Status = models.ApplicationStatusSubmitted
		app.SubmittedAt = &submittedAt
	})
}

func (m *mockApplicationRepo) ScheduleInterview(ctx context.Context, id string, from models.ApplicationStatus, interviewAt time.Time) (bool, error) {
	return m.cas(id, from, func(app *models.Application) {
		app.Status = models.ApplicationStatusInterviewScheduled
		app.InterviewScheduledAt = &interviewAt
	})
}

func (m *mockApplicationRepo) CompleteInterview(ctx context.Context, id string, from models.ApplicationStatus, completedAt time.Time) (bool, error) {
	return m.cas(id, from, func(app *models.Application) {
		app.Status = models.ApplicationStatusInterviewCompleted
		app.InterviewCompletedAt = &completedAt
	})
}

func (m *mockApplicationRepo) RecordDecision(ctx context.Context, id string, from, outcome models.ApplicationStatus, decidedBy string, notes *string, waitlistPosition *int, studentStatus models.EnrollmentStatus) (bool, error) {
	updated, err := m.cas(id, from, func(app *models.Application) {
		now := time.Now().UTC()
		app.Status = outcome
		app.DecisionAt = &now
		app.DecisionBy = &decidedBy
		app.DecisionNotes = notes
		app.WaitlistPosition = waitlistPosition
	})
	if updated {
		app := m.applications[id]
		if student, ok := m.students[app.StudentID]; ok {
			student.EnrollmentStatus = studentStatus
			m.students[app.StudentID] = student
		}
	}
	return updated, err
}

func (m *mockApplicationRepo) Enroll(ctx context.Context, id, studentID string) (bool, error) {
	app, ok := m.applications[id]
	if !ok || app.Status != models.ApplicationStatusAccepted || app.StudentID != studentID {
		return false, nil
	}
	app.Status = models.ApplicationStatusEnrolled
	m.applications[id] = app
	if student, ok := m.students[studentID]; ok {
		student.EnrollmentStatus = models.EnrollmentStatusEnrolled
		m.students[studentID] = student
	}
	return true, nil
}

func (m *mockApplicationRepo) SetFeePaid(ctx context.Context, id string, paid bool) error {
	app, ok := m.applications[id]
	if !ok {
		return sql.ErrNoRows
	}
	app.ApplicationFeePaid = paid
	m.applications[id] = app
	return nil
}

func (m *mockApplicationRepo) FindStudent(id string) (*models.Student, error) {
	if student, ok := m.students[id]; ok {
		return &student, nil
	}
	return nil, sql.ErrNoRows
}

type appStudentReader struct {
	repo *mockApplicationRepo
}

func (r appStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return r.repo.FindStudent(id)
}

func newApplicationService(repo *mockApplicationRepo) (*ApplicationService, *mockDispatcher, *mockAuditWriter) {
	events := &mockDispatcher{}
	audits := &mockAuditWriter{}
	return NewApplicationService(repo, appStudentReader{repo: repo}, events, audits, nil, nil), events, audits
}

func pipelineFixture(status models.ApplicationStatus) *mockApplicationRepo {
	return &mockApplicationRepo{
		applications: map[string]models.Application{
			"app-1": {ID: "app-1", SchoolID: "school-1", StudentID: "st-1", SchoolYear: "2026-2027", GradeApplyingFor: "6", Status: status},
		},
		students: map[string]models.Student{
			"st-1": {ID: "st-1", SchoolID: "school-1", EnrollmentStatus: models.EnrollmentStatusApplicant},
		},
	}
}

func TestApplicationServiceSubmit(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusDraft)
	svc, events, _ := newApplicationService(repo)

	app, err := svc.Submit(context.Background(), "app-1", "op-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusSubmitted, app.Status)
	assert.NotNil(t, app.SubmittedAt)
	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventApplicationStatusChange, events.events[0].Type)
}

func TestApplicationServiceSubmitTwice(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusSubmitted)
	svc, _, _ := newApplicationService(repo)

	_, err := svc.Submit(context.Background(), "app-1", "op-1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestApplicationServiceFullReviewPath(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusSubmitted)
	svc, _, _ := newApplicationService(repo)
	ctx := context.Background()

	app, err := svc.StartReview(ctx, "app-1", "op-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusUnderReview, app.Status)

	app, err = svc.ScheduleInterview(ctx, "app-1", ScheduleInterviewRequest{InterviewAt: "2026-10-01T14:00:00Z"}, "op-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusInterviewScheduled, app.Status)
	assert.NotNil(t, app.InterviewScheduledAt)

	app, err = svc.CompleteInterview(ctx, "app-1", "op-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusInterviewCompleted, app.Status)

	app, err = svc.Decide(ctx, "app-1", DecideRequest{Outcome: "ACCEPTED", Notes: "strong interview"}, "op-2")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusAccepted, app.Status)
	require.NotNil(t, app.DecisionBy)
	assert.Equal(t, "op-2", *app.DecisionBy)
	assert.NotNil(t, app.DecisionAt)
	assert.Equal(t, models.EnrollmentStatusAccepted, repo.students["st-1"].EnrollmentStatus)

	app, err = svc.Enroll(ctx, "app-1", EnrollRequest{StudentID: "st-1"}, "op-2")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusEnrolled, app.Status)
	assert.Equal(t, models.EnrollmentStatusEnrolled, repo.students["st-1"].EnrollmentStatus)
}

func TestApplicationServiceDecideWaitlistRequiresPosition(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusUnderReview)
	svc, _, _ := newApplicationService(repo)

	_, err := svc.Decide(context.Background(), "app-1", DecideRequest{Outcome: "WAITLISTED"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestApplicationServiceDecideWaitlisted(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusUnderReview)
	svc, _, _ := newApplicationService(repo)

	position := 3
	app, err := svc.Decide(context.Background(), "app-1", DecideRequest{Outcome: "WAITLISTED", WaitlistPosition: &position}, "op-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusWaitlisted, app.Status)
	require.NotNil(t, app.WaitlistPosition)
	assert.Equal(t, 3, *app.WaitlistPosition)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, repo.students["st-1"].EnrollmentStatus)

	// A waitlisted applicant may later be promoted when a seat opens.
	accepted, err := svc.Decide(context.Background(), "app-1", DecideRequest{Outcome: "ACCEPTED"}, "op-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusAccepted, accepted.Status)
	assert.Nil(t, accepted.WaitlistPosition)
	assert.Equal(t, models.EnrollmentStatusAccepted, repo.students["st-1"].EnrollmentStatus)
}

func TestApplicationServiceDecideUnknownOutcome(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusUnderReview)
	svc, _, _ := newApplicationService(repo)

	_, err := svc.Decide(context.Background(), "app-1", DecideRequest{Outcome: "MAYBE"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestApplicationServiceDecideFromDraft(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusDraft)
	svc, _, _ := newApplicationService(repo)

	_, err := svc.Decide(context.Background(), "app-1", DecideRequest{Outcome: "ACCEPTED"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestApplicationServiceEnrollFromNonAccepted(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusUnderReview)
	svc, _, _ := newApplicationService(repo)

	_, err := svc.Enroll(context.Background(), "app-1", EnrollRequest{StudentID: "st-1"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	assert.Equal(t, models.EnrollmentStatusApplicant, repo.students["st-1"].EnrollmentStatus)
}

func TestApplicationServiceEnrollWrongStudent(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusAccepted)
	svc, _, _ := newApplicationService(repo)

	_, err := svc.Enroll(context.Background(), "app-1", EnrollRequest{StudentID: "st-2"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestApplicationServiceEnrollEmitsConfirmation(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusAccepted)
	svc, events, audits := newApplicationService(repo)

	_, err := svc.Enroll(context.Background(), "app-1", EnrollRequest{StudentID: "st-1"}, "op-1")
	require.NoError(t, err)

	var confirmed bool
	for _, event := range events.events {
		if event.Type == models.EventEnrollmentConfirmed {
			confirmed = true
			assert.Equal(t, "st-1", event.EntityID)
			assert.Equal(t, string(models.EnrollmentStatusAccepted), event.OldState)
			assert.Equal(t, string(models.EnrollmentStatusEnrolled), event.NewState)
		}
	}
	assert.True(t, confirmed)

	var audited bool
	for _, log := range audits.logs {
		if log.Action == models.AuditActionEnrollment {
			audited = true
		}
	}
	assert.True(t, audited)
}

func TestApplicationServiceWithdrawFromAnyNonTerminal(t *testing.T) {
	for _, status := range []models.ApplicationStatus{
		models.ApplicationStatusDraft,
		models.ApplicationStatusSubmitted,
		models.ApplicationStatusUnderReview,
		models.ApplicationStatusInterviewScheduled,
		models.ApplicationStatusInterviewCompleted,
		models.ApplicationStatusAccepted,
		models.ApplicationStatusWaitlisted,
	} {
		repo := pipelineFixture(status)
		svc, _, _ := newApplicationService(repo)

		app, err := svc.Withdraw(context.Background(), "app-1", "op-1")
		require.NoError(t, err, "withdraw from %s", status)
		assert.Equal(t, models.ApplicationStatusWithdrawn, app.Status)
	}
}

func TestApplicationServiceWithdrawTerminal(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusDenied)
	svc, _, _ := newApplicationService(repo)

	_, err := svc.Withdraw(context.Background(), "app-1", "op-1")
	assert.ErrorIs(t, err, appErrors.ErrAlreadyTerminal)
}

func TestApplicationServiceMarkFeePaid(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusSubmitted)
	svc, _, _ := newApplicationService(repo)

	app, err := svc.MarkFeePaid(context.Background(), "app-1", "op-1")
	require.NoError(t, err)
	assert.True(t, app.ApplicationFeePaid)
	assert.Equal(t, models.ApplicationStatusSubmitted, app.Status)
}

func TestApplicationServiceCreateUnknownStudent(t *testing.T) {
	repo := pipelineFixture(models.ApplicationStatusDraft)
	svc, _, _ := newApplicationService(repo)

	_, err := svc.Create(context.Background(), CreateApplicationRequest{
		SchoolID:         "school-1",
		StudentID:        "ghost",
		SchoolYear:       "2026-2027",
		GradeApplyingFor: "6",
	}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

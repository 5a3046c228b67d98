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

type mockLeadRepo struct {
	leads map[string]models.Lead
}

func (m *mockLeadRepo) Create(ctx context.Context, lead *models.Lead) error {
	if m.leads == nil {
		m.leads = make(map[string]models.Lead)
	}
	if lead.ID == "" {
		lead.ID = "new-lead"
	}
	m.leads[lead.ID] = *lead
	return nil
}

func (m *mockLeadRepo) FindByID(ctx context.Context, id string) (*models.Lead, error) {
	if lead, ok := m.leads[id]; ok {
		return &lead, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLeadRepo) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, int, error) {
	var list []models.Lead
	for _, lead := range m.leads {
		list = append(list, lead)
	}
	return list, len(list), nil
}

func (m *mockLeadRepo) cas(id string, from models.LeadStage, mutate func(*models.Lead)) (bool, error) {
	lead, ok := m.leads[id]
	if !ok || lead.Stage != from {
		return false, nil
	}
	mutate(&lead)
	m.leads[id] = lead
	return true, nil
}

func (m *mockLeadRepo) UpdateStage(ctx context.Context, id string, from, to models.LeadStage) (bool, error) {
	return m.cas(id, from, func(lead *models.Lead) { lead.Stage = to })
}

func (m *mockLeadRepo) SetTourScheduled(ctx context.Context, id string, from models.LeadStage, tourAt time.Time) (bool, error) {
	return m.cas(id, from, func(lead *models.Lead) {
		lead.Stage = models.LeadStageTourScheduled
		lead.TourScheduledAt = &tourAt
	})
}

func (m *mockLeadRepo) SetTourCompleted(ctx context.Context, id string, from models.LeadStage, completedAt time.Time) (bool, error) {
	return m.cas(id, from, func(lead *models.Lead) {
		lead.Stage = models.LeadStageTourCompleted
		lead.TourCompletedAt = &completedAt
	})
}

func (m *mockLeadRepo) MarkLost(ctx context.Context, id string, from models.LeadStage, lostAt time.Time, reason *string) (bool, error) {
	return m.cas(id, from, func(lead *models.Lead) {
		lead.Stage = models.LeadStageLost
		lead.LostAt = &lostAt
		lead.LostReason = reason
	})
}

type mockDispatcher struct {
	events []models.Event
}

func (m *mockDispatcher) Dispatch(event models.Event) {
	m.events = append(m.events, event)
}

type mockAuditWriter struct {
	logs []models.AuditLog
}

func (m *mockAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func newLeadService(repo *mockLeadRepo) (*LeadService, *mockDispatcher, *mockAuditWriter) {
	events := &mockDispatcher{}
	audits := &mockAuditWriter{}
	return NewLeadService(repo, events, audits, nil, nil), events, audits
}

func TestLeadServiceCreateDefaults(t *testing.T) {
	repo := &mockLeadRepo{}
	svc, _, audits := newLeadService(repo)

	lead, err := svc.Create(context.Background(), CreateLeadRequest{
		SchoolID:  "school-1",
		FirstName: "Dana",
		LastName:  "Whitfield",
		Email:     "dana@example.com",
	}, "op-1")
	require.NoError(t, err)

	assert.Equal(t, models.LeadStageInquiry, lead.Stage)
	assert.Equal(t, models.LeadSourceOther, lead.Source)
	assert.Equal(t, 1, lead.NumberOfStudents)
	require.Len(t, audits.logs, 1)
	assert.Equal(t, models.AuditActionLeadCreate, audits.logs[0].Action)
}

func TestLeadServiceScheduleTour(t *testing.T) {
	repo := &mockLeadRepo{leads: map[string]models.Lead{
		"lead-1": {ID: "lead-1", SchoolID: "school-1", Stage: models.LeadStageInquiry},
	}}
	svc, events, _ := newLeadService(repo)

	lead, err := svc.ScheduleTour(context.Background(), "lead-1", ScheduleTourRequest{TourAt: "2026-09-15T10:00:00Z"}, "op-1")
	require.NoError(t, err)

	assert.Equal(t, models.LeadStageTourScheduled, lead.Stage)
	require.NotNil(t, lead.TourScheduledAt)
	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventLeadStageChanged, events.events[0].Type)
	assert.Equal(t, string(models.LeadStageInquiry), events.events[0].OldState)
	assert.Equal(t, string(models.LeadStageTourScheduled), events.events[0].NewState)
	assert.Equal(t, "op-1", events.events[0].ActorID)
}

func TestLeadServiceScheduleTourBadTimestamp(t *testing.T) {
	repo := &mockLeadRepo{leads: map[string]models.Lead{
		"lead-1": {ID: "lead-1", Stage: models.LeadStageInquiry},
	}}
	svc, _, _ := newLeadService(repo)

	_, err := svc.ScheduleTour(context.Background(), "lead-1", ScheduleTourRequest{TourAt: "next tuesday"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestLeadServiceCompleteTour(t *testing.T) {
	repo := &mockLeadRepo{leads: map[string]models.Lead{
		"lead-1": {ID: "lead-1", Stage: models.LeadStageTourScheduled},
	}}
	svc, _, _ := newLeadService(repo)

	lead, err := svc.CompleteTour(context.Background(), "lead-1", "op-1")
	require.NoError(t, err)
	assert.Equal(t, models.LeadStageTourCompleted, lead.Stage)
	assert.NotNil(t, lead.TourCompletedAt)
}

func TestLeadServiceMarkLostSecondCallIsTerminal(t *testing.T) {
	repo := &mockLeadRepo{leads: map[string]models.Lead{
		"lead-1": {ID: "lead-1", Stage: models.LeadStageTourCompleted},
	}}
	svc, _, _ := newLeadService(repo)

	lead, err := svc.MarkLost(context.Background(), "lead-1", MarkLostRequest{Reason: "moved away"}, "op-1")
	require.NoError(t, err)
	require.NotNil(t, lead.LostAt)
	firstLostAt := *lead.LostAt

	_, err = svc.MarkLost(context.Background(), "lead-1", MarkLostRequest{Reason: "again"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrAlreadyTerminal)

	current, err := svc.Get(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, firstLostAt, *current.LostAt)
	assert.Equal(t, "moved away", *current.LostReason)
}

func TestLeadServiceAdvanceStageRejectsConverted(t *testing.T) {
	repo := &mockLeadRepo{leads: map[string]models.Lead{
		"lead-1": {ID: "lead-1", Stage: models.LeadStageApplied},
	}}
	svc, _, _ := newLeadService(repo)

	_, err := svc.AdvanceStage(context.Background(), "lead-1", AdvanceStageRequest{Stage: "CONVERTED"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestLeadServiceAdvanceStageUnknownStage(t *testing.T) {
	repo := &mockLeadRepo{leads: map[string]models.Lead{
		"lead-1": {ID: "lead-1", Stage: models.LeadStageInquiry},
	}}
	svc, _, _ := newLeadService(repo)

	_, err := svc.AdvanceStage(context.Background(), "lead-1", AdvanceStageRequest{Stage: "SOMETHING"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestLeadServiceAdvanceStageOnTerminalLead(t *testing.T) {
	repo := &mockLeadRepo{leads: map[string]models.Lead{
		"lead-1": {ID: "lead-1", Stage: models.LeadStageConverted},
	}}
	svc, _, _ := newLeadService(repo)

	_, err := svc.AdvanceStage(context.Background(), "lead-1", AdvanceStageRequest{Stage: "APPLIED"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrAlreadyTerminal)
}

func TestLeadServiceScheduleTourNotFound(t *testing.T) {
	svc, _, _ := newLeadService(&mockLeadRepo{})

	_, err := svc.ScheduleTour(context.Background(), "ghost", ScheduleTourRequest{TourAt: "2026-09-15T10:00:00Z"}, "op-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openadmit/admissions-api/internal/models"
	appErrors "github.com/openadmit/admissions-api/pkg/errors"
)

type mockCounters struct {
	stages   []models.LeadStageCounts
	statuses []models.ApplicationStatusCounts
	calls    int
}

func (m *mockCounters) CountByStage(ctx context.Context, schoolID string) ([]models.LeadStageCounts, error) {
	m.calls++
	return m.stages, nil
}

func (m *mockCounters) CountByStatus(ctx context.Context, schoolID, schoolYear string) ([]models.ApplicationStatusCounts, error) {
	return m.statuses, nil
}

type mapCache struct {
	values  map[string][]byte
	deleted []string
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.values == nil {
		c.values = make(map[string][]byte)
	}
	c.values[key] = raw
	return nil
}

func (c *mapCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deleted = append(c.deleted, pattern)
	c.values = nil
	return nil
}

func TestFunnelServiceSummary(t *testing.T) {
	counters := &mockCounters{
		stages: []models.LeadStageCounts{
			{Stage: models.LeadStageInquiry, Count: 10},
			{Stage: models.LeadStageTourScheduled, Count: 4},
			{Stage: models.LeadStageConverted, Count: 3},
			{Stage: models.LeadStageLost, Count: 1},
		},
		statuses: []models.ApplicationStatusCounts{
			{Status: models.ApplicationStatusSubmitted, Count: 2},
			{Status: models.ApplicationStatusEnrolled, Count: 3},
		},
	}
	svc := NewFunnelService(counters, counters, nil, time.Minute, nil)

	summary, err := svc.Summary(context.Background(), "school-1", "2026-2027")
	require.NoError(t, err)
	assert.Equal(t, 18, summary.TotalLeads)
	assert.InDelta(t, 0.75, summary.ConversionRate, 0.0001)
	assert.Len(t, summary.Applications, 2)
}

func TestFunnelServiceSummaryRequiresSchool(t *testing.T) {
	svc := NewFunnelService(&mockCounters{}, &mockCounters{}, nil, time.Minute, nil)

	_, err := svc.Summary(context.Background(), "", "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestFunnelServiceSummaryCached(t *testing.T) {
	counters := &mockCounters{
		stages: []models.LeadStageCounts{{Stage: models.LeadStageInquiry, Count: 5}},
	}
	cache := &mapCache{}
	svc := NewFunnelService(counters, counters, cache, time.Minute, nil)

	_, err := svc.Summary(context.Background(), "school-1", "")
	require.NoError(t, err)
	_, err = svc.Summary(context.Background(), "school-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, counters.calls)

	svc.Invalidate(context.Background(), "school-1")
	require.NotEmpty(t, cache.deleted)

	_, err = svc.Summary(context.Background(), "school-1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, counters.calls)
}

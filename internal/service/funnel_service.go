package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openadmit/admissions-api/internal/models"
	appErrors "github.com/openadmit/admissions-api/pkg/errors"
)

type leadStageCounter interface {
	CountByStage(ctx context.Context, schoolID string) ([]models.LeadStageCounts, error)
}

type applicationStatusCounter interface {
	CountByStatus(ctx context.Context, schoolID, schoolYear string) ([]models.ApplicationStatusCounts, error)
}

type funnelCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// FunnelSummary is the admissions dashboard payload: lead counts per stage
// and application counts per status, with a conversion rate over closed leads.
type FunnelSummary struct {
	SchoolID       string                           `json:"school_id"`
	SchoolYear     string                           `json:"school_year,omitempty"`
	LeadStages     []models.LeadStageCounts         `json:"lead_stages"`
	Applications   []models.ApplicationStatusCounts `json:"applications"`
	TotalLeads     int                              `json:"total_leads"`
	ConversionRate float64                          `json:"conversion_rate"`
	GeneratedAt    time.Time                        `json:"generated_at"`
}

// FunnelService aggregates pipeline counts for the dashboard, caching the
// result in Redis for a short TTL.
type FunnelService struct {
	leads        leadStageCounter
	applications applicationStatusCounter
	cache        funnelCache
	cacheTTL     time.Duration
	logger       *zap.Logger
}

// NewFunnelService constructs FunnelService. A nil cache disables caching.
func NewFunnelService(leads leadStageCounter, applications applicationStatusCounter, cache funnelCache, cacheTTL time.Duration, logger *zap.Logger) *FunnelService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FunnelService{leads: leads, applications: applications, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Summary returns the funnel for a school, optionally scoped to a school year.
func (s *FunnelService) Summary(ctx context.Context, schoolID, schoolYear string) (*FunnelSummary, error) {
	if schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "school_id is required")
	}

	key := funnelCacheKey(schoolID, schoolYear)
	if s.cache != nil {
		var cached FunnelSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("funnel cache read failed", zap.Error(err))
		}
	}

	stages, err := s.leads.CountByStage(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count leads")
	}
	statuses, err := s.applications.CountByStatus(ctx, schoolID, schoolYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count applications")
	}

	summary := &FunnelSummary{
		SchoolID:     schoolID,
		SchoolYear:   schoolYear,
		LeadStages:   stages,
		Applications: statuses,
		GeneratedAt:  time.Now().UTC(),
	}
	var converted, closed int
	for _, row := range stages {
		summary.TotalLeads += row.Count
		switch row.Stage {
		case models.LeadStageConverted:
			converted += row.Count
			closed += row.Count
		case models.LeadStageLost:
			closed += row.Count
		}
	}
	if closed > 0 {
		summary.ConversionRate = float64(converted) / float64(closed)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
			s.logger.Warn("funnel cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// Invalidate drops all cached funnel payloads for a school. Called after
// stage or status transitions so the dashboard never lags a full TTL behind
// a burst of changes.
func (s *FunnelService) Invalidate(ctx context.Context, schoolID string) {
	if s.cache == nil || schoolID == "" {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("funnel:%s:*", schoolID)); err != nil {
		s.logger.Warn("funnel cache invalidation failed", zap.Error(err))
	}
}

func funnelCacheKey(schoolID, schoolYear string) string {
	if schoolYear == "" {
		schoolYear = "all"
	}
	return fmt.Sprintf("funnel:%s:%s", schoolID, schoolYear)
}

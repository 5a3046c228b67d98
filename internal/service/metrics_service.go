package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openadmit/admissions-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the API and
// the admissions pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	leadTransitions *prometheus.CounterVec
	appTransitions  *prometheus.CounterVec
	conversions     prometheus.Counter
	enrollments     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "funnel_cache_hits_total",
		Help: "Total funnel cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "funnel_cache_misses_total",
		Help: "Total funnel cache misses",
	})

	leadTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lead_stage_transitions_total",
		Help: "Lead stage transitions by target stage",
	}, []string{"stage"})

	appTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "application_status_transitions_total",
		Help: "Application status transitions by target status",
	}, []string{"status"})

	conversions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "leads_converted_total",
		Help: "Total leads converted into households",
	})

	enrollments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollments_confirmed_total",
		Help: "Total confirmed enrollments",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		leadTransitions, appTransitions, conversions, enrollments, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		leadTransitions: leadTransitions,
		appTransitions:  appTransitions,
		conversions:     conversions,
		enrollments:     enrollments,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation counts funnel cache hits and misses.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveEvent counts pipeline transitions from dispatched domain events.
func (m *MetricsService) ObserveEvent(event models.Event) {
	if m == nil {
		return
	}
	switch event.Type {
	case models.EventLeadStageChanged:
		m.leadTransitions.WithLabelValues(event.NewState).Inc()
	case models.EventLeadConverted:
		m.leadTransitions.WithLabelValues(string(models.LeadStageConverted)).Inc()
		m.conversions.Inc()
	case models.EventApplicationStatusChange:
		m.appTransitions.WithLabelValues(event.NewState).Inc()
	case models.EventEnrollmentConfirmed:
		m.enrollments.Inc()
	}
}

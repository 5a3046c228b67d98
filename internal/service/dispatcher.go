package service

import (
	"context"

	"github.com/openadmit/admissions-api/internal/models"
)

// EventFanout delivers each domain event to the notification queue, the
// metrics collectors and the funnel cache invalidation hook.
type EventFanout struct {
	notifications *NotificationService
	metrics       *MetricsService
	funnel        *FunnelService
}

// NewEventFanout constructs EventFanout. Any component may be nil.
func NewEventFanout(notifications *NotificationService, metrics *MetricsService, funnel *FunnelService) *EventFanout {
	return &EventFanout{notifications: notifications, metrics: metrics, funnel: funnel}
}

// Dispatch fans the event out. Never blocks the calling transition.
func (f *EventFanout) Dispatch(event models.Event) {
	if f.metrics != nil {
		f.metrics.ObserveEvent(event)
	}
	if f.funnel != nil {
		f.funnel.Invalidate(context.Background(), event.SchoolID)
	}
	if f.notifications != nil {
		f.notifications.Dispatch(event)
	}
}

package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openadmit/admissions-api/internal/models"
	"github.com/openadmit/admissions-api/pkg/jobs"
)

// Sender delivers a notification for a domain event. Implementations may
// send email, webhooks or anything else; failures are retried by the queue.
type Sender interface {
	Send(ctx context.Context, event models.Event) error
}

// LogSender is the default sender: it records the event in the application
// log. Useful in development and as a fallback when no channel is wired.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the event.
func (s *LogSender) Send(_ context.Context, event models.Event) error {
	s.logger.Info("notification",
		zap.String("type", string(event.Type)),
		zap.String("school_id", event.SchoolID),
		zap.String("entity_id", event.EntityID),
		zap.String("new_state", event.NewState),
		zap.String("actor_id", event.ActorID),
	)
	return nil
}

// NotificationService dispatches domain events to a background queue.
// Dispatch never blocks state transitions on delivery; a full queue or a
// failing sender is logged and dropped after retries.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService builds the service and its queue around the sender.
func NewNotificationService(sender Sender, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.Event)
		if !ok {
			logger.Error("notification job carried unexpected payload", zap.String("job_id", job.ID))
			return nil
		}
		return sender.Send(ctx, event)
	}
	return &NotificationService{
		queue:  jobs.NewQueue("notifications", handler, cfg),
		logger: logger,
	}
}

// Start begins background delivery.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Dispatch enqueues an event without blocking the caller on delivery.
func (s *NotificationService) Dispatch(event models.Event) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(event.Type),
		Payload: event,
	})
	if err != nil {
		s.logger.Warn("dropped notification event",
			zap.String("type", string(event.Type)),
			zap.String("entity_id", event.EntityID),
			zap.Error(err),
		)
	}
}

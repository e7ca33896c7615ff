package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uni-ombuds/case-api/internal/models"
	"github.com/uni-ombuds/case-api/pkg/jobs"
)

// Notification is a message handed to the outbound channel.
type Notification struct {
	Recipient    string
	Subject      string
	Body         string
	TrackingCode string
}

// NotificationSender delivers a notification over the outbound channel. The
// channel itself (mail gateway, webhook) lives outside this service.
type NotificationSender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender is the development sender: it only logs deliveries.
type LogSender struct {
	Logger *zap.Logger
}

// Send implements NotificationSender.
func (s LogSender) Send(_ context.Context, n Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("notification dispatched",
		zap.String("recipient", n.Recipient),
		zap.String("tracking_code", n.TrackingCode),
		zap.String("subject", n.Subject))
	return nil
}

// NotificationService dispatches fire-and-forget notifications through a
// background worker queue. Delivery failures are retried by the queue and
// never surface to the request path.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its queue.
func NewNotificationService(sender NotificationSender, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = LogSender{Logger: logger}
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		n, ok := job.Payload.(Notification)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return sender.Send(ctx, n)
	}
	return &NotificationService{
		queue:  jobs.NewQueue("notifications", handler, cfg),
		logger: logger,
	}
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// CaseRegistered notifies the complainant that the case was filed, carrying
// the tracking code for the public lookup.
func (s *NotificationService) CaseRegistered(c *models.Case) {
	if c == nil || !c.NotifyByEmail {
		return
	}
	n := Notification{
		Recipient:    c.ComplainantEmail,
		Subject:      fmt.Sprintf("Case %s registered", c.TrackingCode),
		Body:         fmt.Sprintf("Your case was registered under tracking code %s.", c.TrackingCode),
		TrackingCode: c.TrackingCode,
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "case_registered", Payload: n}); err != nil {
		s.logger.Warn("failed to enqueue notification", zap.String("tracking_code", c.TrackingCode), zap.Error(err))
	}
}

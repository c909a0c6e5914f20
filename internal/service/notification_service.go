package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/task-distribution/internal/config"
	"github.com/spec-kit/task-distribution/internal/events"
	"github.com/spec-kit/task-distribution/internal/observability"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.NotificationConfig
	client     *resty.Client
}

// NewNotificationService creates the service. Webhook delivery is enabled only
// when a URL is configured.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, cfg config.NotificationConfig) *NotificationService {
	n := &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
	}
	if strings.TrimSpace(cfg.WebhookURL) != "" {
		n.client = resty.New().
			SetTimeout(cfg.WebhookTimeout()).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json")
	}
	return n
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTasksDistributed, n.handleTasksDistributed)
	n.dispatcher.Subscribe(events.EventTaskStatusChanged, n.handleTaskStatusChanged)
	n.dispatcher.Subscribe(events.EventTaskDeleted, n.handleTaskDeleted)
}

func (n *NotificationService) handleTasksDistributed(ctx context.Context, event events.Event) error {
	n.logger.Info("TasksDistributed", zap.String("batch_id", event.SubjectID), zap.Any("payload", event.Payload))
	return n.sendWebhook(ctx, event)
}

func (n *NotificationService) handleTaskStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TaskStatusChanged", zap.String("task_id", event.SubjectID), zap.Any("payload", event.Payload))
	return n.sendWebhook(ctx, event)
}

func (n *NotificationService) handleTaskDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("TaskDeleted", zap.String("task_id", event.SubjectID), zap.String("actor_id", event.Actor.ID))
	return n.sendWebhook(ctx, event)
}

// sendWebhook posts the event once. Failures are reported to the dispatcher,
// which logs them; the originating request is not affected.
func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) error {
	if n.client == nil {
		return nil
	}
	resp, err := n.client.R().
		SetContext(context.WithoutCancel(ctx)).
		SetBody(event).
		Post(n.cfg.WebhookURL)
	if err != nil {
		n.metrics.RecordNotification(string(event.Type), false)
		return err
	}
	if resp.IsError() {
		n.metrics.RecordNotification(string(event.Type), false)
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode())
	}
	n.metrics.RecordNotification(string(event.Type), true)
	n.logger.Debug("webhook delivered",
		zap.String("event_type", string(event.Type)),
		zap.String("subject_id", event.SubjectID),
		zap.Int("status", resp.StatusCode()))
	return nil
}

// Package notification hands quote notifications to the delivery system.
//
// The API process enqueues each notification as an asynq task; a worker
// process renders the message and sends it by mail.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/infrastructure/config"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeDeliver is the asynq task type carrying a notification
const TypeDeliver = "quoting:notification:deliver"

// Enqueuer is the part of asynq.Client the notifier uses
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqNotifier enqueues notifications for the worker
type AsynqNotifier struct {
	client   Enqueuer
	queue    string
	maxRetry int
	timeout  asynq.Option
	logger   *zap.Logger
}

// NewAsynqNotifier creates a notifier enqueueing on cfg.Queue
func NewAsynqNotifier(client Enqueuer, cfg config.NotificationConfig, logger *zap.Logger) *AsynqNotifier {
	return &AsynqNotifier{
		client:   client,
		queue:    cfg.Queue,
		maxRetry: cfg.MaxRetry,
		timeout:  asynq.Timeout(cfg.Timeout),
		logger:   logger,
	}
}

// NewClient creates an asynq client for cfg
func NewClient(cfg config.RedisConfig) *asynq.Client {
	return asynq.NewClient(redisOpt(cfg))
}

func redisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Deliver implements appquoting.Notifier
func (n *AsynqNotifier) Deliver(ctx context.Context, notification appquoting.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	task := asynq.NewTask(TypeDeliver, payload)
	info, err := n.client.EnqueueContext(ctx, task,
		asynq.Queue(n.queue),
		asynq.MaxRetry(n.maxRetry),
		n.timeout,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	n.logger.Info("Notification enqueued",
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
		zap.String("template", notification.Template),
		zap.String("recipient", notification.Recipient.Email),
		zap.Int("attachments", len(notification.Attachments)))
	return nil
}

// LogNotifier writes notifications to the log instead of delivering them
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Deliver implements appquoting.Notifier
func (n *LogNotifier) Deliver(_ context.Context, notification appquoting.Notification) error {
	names := make([]string, 0, len(notification.Attachments))
	for _, a := range notification.Attachments {
		names = append(names, a.Name)
	}
	n.logger.Info("Notification",
		zap.String("tenant_id", notification.TenantID.String()),
		zap.String("template", notification.Template),
		zap.String("recipient", notification.Recipient.Email),
		zap.Any("models", notification.Models),
		zap.Strings("attachments", names))
	return nil
}

// New builds the notifier selected by cfg.Driver.
// The returned close func releases the queue connection.
func New(cfg config.NotificationConfig, redis config.RedisConfig, logger *zap.Logger) (appquoting.Notifier, func() error) {
	if cfg.Driver == "asynq" {
		client := NewClient(redis)
		return NewAsynqNotifier(client, cfg, logger), client.Close
	}
	return NewLogNotifier(logger), func() error { return nil }
}

var (
	_ appquoting.Notifier = (*AsynqNotifier)(nil)
	_ appquoting.Notifier = (*LogNotifier)(nil)
)

package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erp/quoting/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditLogHandler writes every domain event to the log as JSON
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an AuditLogHandler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// Handle implements shared.EventHandler
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize %s event: %w", event.EventType(), err)
	}
	h.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
		zap.ByteString("payload", payload))
	return nil
}

// Subscribes implements shared.EventHandler; empty means all events
func (h *AuditLogHandler) Subscribes() []string {
	return nil
}

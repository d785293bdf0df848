package telemetry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Execution kinds recorded by QuoteMetrics
const (
	ExecutionDirect = "direct"
	ExecutionCoterm = "coterm"
)

// QuoteMetrics holds the business counters of the quote lifecycle.
type QuoteMetrics struct {
	sent          *Counter
	executed      *Counter
	cotermFailed  *Counter
	taxCalculated *Counter
	contractValue *Histogram
	logger        *zap.Logger
}

// NewQuoteMetrics registers the quote lifecycle instruments on meter.
func NewQuoteMetrics(meter metric.Meter, logger *zap.Logger) (*QuoteMetrics, error) {
	if meter == nil {
		return nil, errors.New("NewQuoteMetrics: meter cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &QuoteMetrics{logger: logger}
	var err error
	if m.sent, err = NewCounter(meter, "quote_sent_total", "Quotes sent to their recipient", "{quote}"); err != nil {
		return nil, err
	}
	if m.executed, err = NewCounter(meter, "quote_executed_total", "Quotes executed into contracts", "{quote}"); err != nil {
		return nil, err
	}
	if m.cotermFailed, err = NewCounter(meter, "quote_coterm_failed_total", "Co-term executions rolled back", "{quote}"); err != nil {
		return nil, err
	}
	if m.taxCalculated, err = NewCounter(meter, "quote_tax_calculated_total", "Quote tax calculations by outcome", "{calculation}"); err != nil {
		return nil, err
	}
	if m.contractValue, err = NewHistogram(meter, "quote_contract_value", "Total value of executed contracts", "{currency}",
		100, 500, 1000, 5000, 10000, 50000, 100000); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordSent counts a sent quote.
func (m *QuoteMetrics) RecordSent(ctx context.Context, tenantID uuid.UUID) {
	m.sent.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordExecuted counts an executed contract and records its total value.
func (m *QuoteMetrics) RecordExecuted(ctx context.Context, tenantID uuid.UUID, kind string, total float64) {
	m.executed.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrKind.String(kind))
	m.contractValue.Record(ctx, total, AttrKind.String(kind))
}

// RecordCotermFailed counts a rolled back co-term execution.
func (m *QuoteMetrics) RecordCotermFailed(ctx context.Context, tenantID uuid.UUID) {
	m.cotermFailed.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordTax counts a tax calculation by outcome status.
func (m *QuoteMetrics) RecordTax(ctx context.Context, outcome string) {
	m.taxCalculated.Inc(ctx, AttrOutcome.String(outcome))
}

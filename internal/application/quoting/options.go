package quoting

import (
	"context"
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/domain/shared"
	"go.uber.org/zap"
)

// Options carries the settings the quoting services read at call time
type Options struct {
	Settings quoting.Settings

	// Per-call timeouts for external collaborators; zero disables the timeout
	IntegrationTimeout time.Duration
	RenderTimeout      time.Duration
	NotifyTimeout      time.Duration

	// DefaultNetTerms applies to new quotes that don't specify net terms
	DefaultNetTerms int
	// DefaultTerm applies to new quotes that don't specify a term
	DefaultTerm int

	// Now returns the current time; defaults to time.Now
	Now func() time.Time
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		Settings:           quoting.DefaultSettings(),
		IntegrationTimeout: 5 * time.Second,
		RenderTimeout:      10 * time.Second,
		NotifyTimeout:      5 * time.Second,
		DefaultNetTerms:    30,
		DefaultTerm:        12,
		Now:                time.Now,
	}
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// resolveRefs looks up every catalog item the quote references
func resolveRefs(ctx context.Context, provider catalog.Provider, q *quoting.Quote) (catalog.Refs, error) {
	refs, err := catalog.Resolve(ctx, provider, q.TenantID, q.CatalogItemIDs())
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// publishEvents hands the aggregate's pending events to the publisher and clears them.
// Publishing happens after commit, so failures are logged rather than returned.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, agg shared.AggregateRoot) {
	events := agg.GetDomainEvents()
	agg.ClearDomainEvents()
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.String("aggregate_id", agg.GetID().String()),
			zap.Int("count", len(events)),
			zap.Error(err))
	}
}

package cache

import (
	"context"
	"time"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/domain/partner"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// noRate marks a jurisdiction known to have no rate
const noRate = "none"

// CachedTaxRateTable is a read-through cache in front of a TaxRateTable.
// Misses are cached too so unknown jurisdictions do not hit the source.
// A failing store is logged and bypassed.
type CachedTaxRateTable struct {
	source appquoting.TaxRateTable
	store  RateStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedTaxRateTable wraps source with store
func NewCachedTaxRateTable(source appquoting.TaxRateTable, store RateStore, ttl time.Duration, logger *zap.Logger) *CachedTaxRateTable {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedTaxRateTable{source: source, store: store, ttl: ttl, logger: logger}
}

// RateFor implements appquoting.TaxRateTable
func (c *CachedTaxRateTable) RateFor(ctx context.Context, stateCode string) (decimal.Decimal, bool, error) {
	key := partner.NormalizeState(stateCode)

	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Tax rate cache read failed", zap.String("state", key), zap.Error(err))
	} else if ok {
		if cached == noRate {
			return decimal.Zero, false, nil
		}
		if rate, perr := decimal.NewFromString(cached); perr == nil {
			return rate, true, nil
		}
		c.logger.Warn("Discarding malformed cached tax rate", zap.String("state", key), zap.String("value", cached))
	}

	rate, found, err := c.source.RateFor(ctx, key)
	if err != nil {
		return decimal.Zero, false, err
	}

	value := noRate
	if found {
		value = rate.String()
	}
	if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.Warn("Tax rate cache write failed", zap.String("state", key), zap.Error(err))
	}
	return rate, found, nil
}

// Invalidate drops the cached rate for a jurisdiction after it changed
func (c *CachedTaxRateTable) Invalidate(ctx context.Context, stateCode string) error {
	return c.store.Delete(ctx, partner.NormalizeState(stateCode))
}

var _ appquoting.TaxRateTable = (*CachedTaxRateTable)(nil)

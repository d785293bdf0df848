package quoting

import (
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// The functions in this file are pure: they derive every aggregate from the
// quote's current items on each call and never store intermediate results.
// Amounts keep full decimal precision; only Summary converts to Money for display.

var hundred = decimal.NewFromInt(100)

// Settings holds the feature flags that shape the financial summary
type Settings struct {
	ShowDiscount bool
	Currency     valueobject.Currency
}

// DefaultSettings returns settings with discount hidden and the default currency
func DefaultSettings() Settings {
	return Settings{Currency: valueobject.DefaultCurrency}
}

// RecurringCharge sums service items with their addons plus the per-period
// share of financed products
func RecurringCharge(q *Quote, refs catalog.Refs) decimal.Decimal {
	total := decimal.Zero
	for i := range q.Items {
		item := &q.Items[i]
		switch refs.Of(item.CatalogItemID).Kind() {
		case catalog.KindService:
			total = total.Add(item.LineTotal())
		case catalog.KindProduct:
			if item.IsFinanced() {
				total = total.Add(item.BaseTotal().Div(decimal.NewFromInt(int64(*item.Payments))))
			}
		}
	}
	return total
}

// OneTimeCharge sums product items that are not financed, with their addons
func OneTimeCharge(q *Quote, refs catalog.Refs) decimal.Decimal {
	total := decimal.Zero
	for i := range q.Items {
		item := &q.Items[i]
		if refs.Of(item.CatalogItemID).Kind() == catalog.KindProduct && !item.IsFinanced() {
			total = total.Add(item.LineTotal())
		}
	}
	return total
}

// Subtotal is recurring plus one-time
func Subtotal(q *Quote, refs catalog.Refs) decimal.Decimal {
	return RecurringCharge(q, refs).Add(OneTimeCharge(q, refs))
}

// Total is subtotal plus the cached tax
func Total(q *Quote, refs catalog.Refs) decimal.Decimal {
	return Subtotal(q, refs).Add(q.Tax)
}

// Discount is the catalog value of the items minus their quoted value.
// It is zero unless the discount display flag is on.
func Discount(q *Quote, refs catalog.Refs, settings Settings) decimal.Decimal {
	if !settings.ShowDiscount {
		return decimal.Zero
	}
	catalogValue, quotedValue := decimal.Zero, decimal.Zero
	for i := range q.Items {
		item := &q.Items[i]
		ref := refs.Of(item.CatalogItemID)
		if ref.IsDeleted() {
			continue
		}
		catalogValue = catalogValue.Add(ref.CatalogPrice().Mul(item.Qty))
		quotedValue = quotedValue.Add(item.BaseTotal())
	}
	return catalogValue.Sub(quotedValue)
}

// TaxFor applies a percentage rate to every taxable item and sums the results
func TaxFor(q *Quote, refs catalog.Refs, ratePercent decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for i := range q.Items {
		item := &q.Items[i]
		if !refs.Of(item.CatalogItemID).Taxable() {
			continue
		}
		total = total.Add(item.LineTotal().Mul(ratePercent).Div(hundred))
	}
	return total
}

// Margin is the profitability breakdown supplied by an external analysis engine
type Margin struct {
	Profit            decimal.Decimal `json:"profit"`
	Margin            decimal.Decimal `json:"margin"`
	Opex              decimal.Decimal `json:"opex"`
	Capex             decimal.Decimal `json:"capex"`
	MonthlyCommission decimal.Decimal `json:"monthly_commission"`
	AgentSpiff        decimal.Decimal `json:"agent_spiff"`
}

// Summary is a read-only snapshot of a quote's financial aggregates
type Summary struct {
	Recurring valueobject.Money `json:"recurring"`
	OneTime   valueobject.Money `json:"one_time"`
	Subtotal  valueobject.Money `json:"subtotal"`
	Tax       valueobject.Money `json:"tax"`
	Total     valueobject.Money `json:"total"`
	Discount  valueobject.Money `json:"discount"`
	Margin    *Margin           `json:"margin,omitempty"`
	AgeInDays int               `json:"age_in_days"`
}

// Summarize computes all aggregates for the quote at the given instant
func Summarize(q *Quote, refs catalog.Refs, settings Settings, now time.Time) Summary {
	cur := settings.Currency
	if cur == "" {
		cur = valueobject.DefaultCurrency
	}
	recurring := RecurringCharge(q, refs)
	oneTime := OneTimeCharge(q, refs)
	subtotal := recurring.Add(oneTime)

	return Summary{
		Recurring: valueobject.MustNewMoney(recurring, cur),
		OneTime:   valueobject.MustNewMoney(oneTime, cur),
		Subtotal:  valueobject.MustNewMoney(subtotal, cur),
		Tax:       valueobject.MustNewMoney(q.Tax, cur),
		Total:     valueobject.MustNewMoney(subtotal.Add(q.Tax), cur),
		Discount:  valueobject.MustNewMoney(Discount(q, refs, settings), cur),
		AgeInDays: q.AgeInDays(now),
	}
}

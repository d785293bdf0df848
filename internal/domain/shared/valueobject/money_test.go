package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.RequireFromString("100.50"), USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("100.50")))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "currency cannot be empty")
	})
}

func TestMoneyDisplay(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{"exact cents", "12.34", "12.34"},
		{"half rounds up", "0.125", "0.13"},
		{"below half rounds down", "0.124", "0.12"},
		{"third of a dollar", "0.3333333333", "0.33"},
		{"whole amount", "225", "225"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMoneyUSD(decimal.RequireFromString(tt.amount))
			assert.True(t, m.Display().Equal(decimal.RequireFromString(tt.want)), "display = %s", m.Display())
		})
	}

	t.Run("zero-decimal currency", func(t *testing.T) {
		m, err := NewMoney(decimal.RequireFromString("100.5"), JPY)
		require.NoError(t, err)
		assert.True(t, m.Display().Equal(decimal.NewFromInt(101)), "display = %s", m.Display())
	})
}

func TestMoneyArithmeticKeepsPrecision(t *testing.T) {
	third := NewMoneyUSD(decimal.NewFromInt(100).Div(decimal.NewFromInt(3)))

	sum, err := third.Add(third)
	require.NoError(t, err)
	sum, err = sum.Add(third)
	require.NoError(t, err)

	// 3 × 33.333... rounds to 100.00 only because nothing was rounded early
	assert.Equal(t, "100.00", sum.Display().StringFixed(2))
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	a := NewMoneyUSD(decimal.NewFromInt(1))
	b := Zero(EUR)

	_, err := a.Add(b)
	assert.Error(t, err)
	_, err = a.Subtract(b)
	assert.Error(t, err)
}

func TestMoneyJSON(t *testing.T) {
	m := NewMoneyUSD(decimal.RequireFromString("10.005"))
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"10.01","currency":"USD"}`, string(data))
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "99.90 USD", NewMoneyUSD(decimal.RequireFromString("99.9")).String())
}

package quoting

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== Fixtures ====================

var testTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

func newAccountQuote(t *testing.T) *Quote {
	t.Helper()
	accountID := uuid.New()
	q, err := NewQuote(testTenantID, &accountID, nil, 12, 30)
	require.NoError(t, err)
	return q
}

func newLeadQuote(t *testing.T) *Quote {
	t.Helper()
	leadID := uuid.New()
	q, err := NewQuote(testTenantID, nil, &leadID, 0, 30)
	require.NoError(t, err)
	return q
}

func serviceItem(price int64) *catalog.Item {
	return &catalog.Item{ID: uuid.New(), Type: catalog.ItemTypeService, Taxable: true, Price: decimal.NewFromInt(price), Frequency: catalog.FrequencyMonthly}
}

func productItem(price int64) *catalog.Item {
	return &catalog.Item{ID: uuid.New(), Type: catalog.ItemTypeProduct, Price: decimal.NewFromInt(price)}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

// ==================== Construction ====================

func TestNewQuote(t *testing.T) {
	accountID := uuid.New()
	leadID := uuid.New()

	tests := []struct {
		name    string
		account *uuid.UUID
		lead    *uuid.UUID
		term    int
		wantErr bool
	}{
		{"account owner", &accountID, nil, 12, false},
		{"lead owner", nil, &leadID, 0, false},
		{"both owners", &accountID, &leadID, 12, true},
		{"no owner", nil, nil, 12, true},
		{"negative term", &accountID, nil, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuote(testTenantID, tt.account, tt.lead, tt.term, 30)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, QuoteStatusDraft, q.Status)
			assert.True(t, q.IsEditable())
			assert.True(t, q.Tax.IsZero())
			require.Len(t, q.GetDomainEvents(), 1)
			assert.Equal(t, EventTypeQuoteCreated, q.GetDomainEvents()[0].EventType())
		})
	}
}

func TestQuoteStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to QuoteStatus
		want     bool
	}{
		{QuoteStatusDraft, QuoteStatusSent, true},
		{QuoteStatusDraft, QuoteStatusExecuted, true},
		{QuoteStatusDraft, QuoteStatusApproved, false},
		{QuoteStatusSent, QuoteStatusApproved, true},
		{QuoteStatusSent, QuoteStatusDeclined, true},
		{QuoteStatusApproved, QuoteStatusExecuted, true},
		{QuoteStatusApproved, QuoteStatusDeclined, false},
		{QuoteStatusExecuted, QuoteStatusTerminated, true},
		{QuoteStatusExecuted, QuoteStatusSent, false},
		{QuoteStatusDeclined, QuoteStatusSent, false},
		{QuoteStatusTerminated, QuoteStatusExecuted, false},
		{QuoteStatusTerminated, QuoteStatusDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// ==================== Send ====================

func TestQuote_MarkSent(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("draft becomes sent and presentable", func(t *testing.T) {
		q := newLeadQuote(t)
		require.NoError(t, q.MarkSent(now))
		assert.Equal(t, QuoteStatusSent, q.Status)
		assert.True(t, q.Presentable)
		require.NotNil(t, q.SentOn)
		assert.Equal(t, now, *q.SentOn)
	})

	t.Run("re-send keeps approval", func(t *testing.T) {
		q := newLeadQuote(t)
		require.NoError(t, q.MarkSent(now))
		require.NoError(t, q.Approve(now))
		require.NoError(t, q.MarkSent(now.Add(time.Hour)))
		assert.Equal(t, QuoteStatusApproved, q.Status)
	})

	t.Run("archived quote is locked", func(t *testing.T) {
		q := newLeadQuote(t)
		q.Archive(now)
		err := q.MarkSent(now)
		assert.True(t, errors.Is(err, shared.ErrEditingLocked))
	})

	t.Run("activated quote is locked", func(t *testing.T) {
		q := newLeadQuote(t)
		q.ActivatedOn = &now
		err := q.MarkSent(now)
		assert.True(t, errors.Is(err, shared.ErrEditingLocked))
		assert.Nil(t, q.SentOn)
	})

	t.Run("declined quote cannot be re-sent", func(t *testing.T) {
		q := newLeadQuote(t)
		require.NoError(t, q.MarkSent(now))
		require.NoError(t, q.Decline(now))
		err := q.MarkSent(now)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})
}

func TestQuote_Respond(t *testing.T) {
	now := time.Now()
	q := newLeadQuote(t)

	err := q.Approve(now)
	assert.True(t, errors.Is(err, shared.ErrInvalidState), "draft quotes cannot be approved")

	require.NoError(t, q.MarkSent(now))
	require.NoError(t, q.Decline(now))
	assert.Equal(t, QuoteStatusDeclined, q.Status)
}

// ==================== Execute ====================

func TestQuote_ExecuteDirect(t *testing.T) {
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

	t.Run("binds to account and freezes the quote", func(t *testing.T) {
		q := newLeadQuote(t)
		q.Term = 24
		accountID := uuid.New()

		require.NoError(t, q.ExecuteDirect(accountID, "Jordan Signer", "10.0.0.1", "file-1", now))

		assert.Equal(t, QuoteStatusExecuted, q.Status)
		assert.True(t, q.Archived)
		assert.True(t, q.Active)
		assert.False(t, q.IsEditable())
		assert.Equal(t, accountID, *q.AccountID)
		assert.Equal(t, "Jordan Signer", q.ContractName)
		assert.Equal(t, "10.0.0.1", q.ContractIP)
		assert.Equal(t, "file-1", *q.SignatureFileID)
		assert.Equal(t, now, *q.ActivatedOn)
		require.NotNil(t, q.ContractExpires)
		assert.Equal(t, now.AddDate(0, 24, 0), *q.ContractExpires)
	})

	t.Run("month-to-month has no contract expiry", func(t *testing.T) {
		q := newLeadQuote(t)
		require.NoError(t, q.ExecuteDirect(uuid.New(), "A", "", "file-1", now))
		assert.Nil(t, q.ContractExpires)
	})

	t.Run("second execution is rejected", func(t *testing.T) {
		q := newLeadQuote(t)
		require.NoError(t, q.ExecuteDirect(uuid.New(), "A", "", "file-1", now))
		err := q.ExecuteDirect(uuid.New(), "B", "", "file-2", now)
		assert.True(t, errors.Is(err, shared.ErrEditingLocked))
		assert.Equal(t, "A", q.ContractName)
	})

	t.Run("requires signer and signature", func(t *testing.T) {
		q := newLeadQuote(t)
		assert.Error(t, q.ExecuteDirect(uuid.New(), "", "", "file-1", now))
		assert.Error(t, q.ExecuteDirect(uuid.New(), "A", "", "", now))
		assert.Error(t, q.ExecuteDirect(uuid.Nil, "A", "", "file-1", now))
		assert.True(t, q.IsEditable())
	})
}

func TestQuote_CotermAndTerminate(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	expires := now.AddDate(1, 0, 0)

	source := newAccountQuote(t)
	require.NoError(t, source.ExecuteDirect(*source.AccountID, "Original Signer", "1.2.3.4", "sig-1", now.AddDate(-1, 0, 0)))
	source.ContractExpires = &expires
	require.True(t, source.Active)

	current, err := NewQuote(testTenantID, source.AccountID, nil, 0, 30)
	require.NoError(t, err)
	require.NoError(t, current.SetCoterm(source.ID))

	require.NoError(t, current.ActivateAsCoterm(source, now))
	require.NoError(t, source.Terminate(current.ID, now))

	assert.Equal(t, QuoteStatusExecuted, current.Status)
	assert.Equal(t, expires, *current.ContractExpires)
	assert.Equal(t, 12, current.Term)
	assert.Equal(t, "sig-1", *current.SignatureFileID)
	assert.Equal(t, "Original Signer", current.ContractName)
	assert.Equal(t, "1.2.3.4", current.ContractIP)
	assert.Equal(t, now, *current.ActivatedOn)
	assert.False(t, current.Active)

	assert.Equal(t, QuoteStatusTerminated, source.Status)
	assert.Equal(t, now, *source.ContractExpires)
	assert.False(t, source.Active)

	t.Run("terminated contracts cannot move again", func(t *testing.T) {
		assert.Error(t, source.Terminate(uuid.New(), now))
	})

	t.Run("co-term must point at the given source", func(t *testing.T) {
		other := newAccountQuote(t)
		require.NoError(t, other.SetCoterm(uuid.New()))
		assert.Error(t, other.ActivateAsCoterm(source, now))
	})

	t.Run("lead quotes cannot co-term", func(t *testing.T) {
		assert.Error(t, newLeadQuote(t).SetCoterm(source.ID))
	})
}

func TestQuote_Archive(t *testing.T) {
	now := time.Now()
	q := newLeadQuote(t)
	q.Archive(now)
	assert.False(t, q.IsEditable())
	require.NoError(t, q.Unarchive(now))
	assert.True(t, q.IsEditable())

	require.NoError(t, q.ExecuteDirect(uuid.New(), "A", "", "f", now))
	assert.Error(t, q.Unarchive(now))
}

func TestQuote_AgeInDays(t *testing.T) {
	q := newLeadQuote(t)
	q.CreatedAt = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, q.AgeInDays(q.CreatedAt.Add(23*time.Hour)))
	assert.Equal(t, 10, q.AgeInDays(q.CreatedAt.AddDate(0, 0, 10)))
	assert.Equal(t, 0, q.AgeInDays(q.CreatedAt.Add(-time.Hour)))
}

package quoting

import (
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type constants
const (
	EventTypeQuoteCreated    = "QuoteCreated"
	EventTypeQuoteSent       = "QuoteSent"
	EventTypeQuoteExecuted   = "QuoteExecuted"
	EventTypeQuoteCotermed   = "QuoteCotermed"
	EventTypeQuoteTerminated = "QuoteTerminated"
)

// QuoteCreatedEvent is raised when a new quote is drafted
type QuoteCreatedEvent struct {
	shared.EventMeta
	QuoteID   uuid.UUID  `json:"quote_id"`
	AccountID *uuid.UUID `json:"account_id,omitempty"`
	LeadID    *uuid.UUID `json:"lead_id,omitempty"`
}

// NewQuoteCreatedEvent creates a new QuoteCreatedEvent
func NewQuoteCreatedEvent(q *Quote) *QuoteCreatedEvent {
	return &QuoteCreatedEvent{
		EventMeta: shared.NewEventMeta(EventTypeQuoteCreated, q.ID, q.TenantID, q.CreatedAt),
		QuoteID:   q.ID,
		AccountID: q.AccountID,
		LeadID:    q.LeadID,
	}
}

// QuoteSentEvent is raised when a quote is presented to the customer
type QuoteSentEvent struct {
	shared.EventMeta
	QuoteID uuid.UUID `json:"quote_id"`
	Coterm  bool      `json:"coterm"`
}

// NewQuoteSentEvent creates a new QuoteSentEvent
func NewQuoteSentEvent(q *Quote) *QuoteSentEvent {
	return &QuoteSentEvent{
		EventMeta: shared.NewEventMeta(EventTypeQuoteSent, q.ID, q.TenantID, q.UpdatedAt),
		QuoteID:   q.ID,
		Coterm:    q.IsCoterm(),
	}
}

// QuoteExecutedEvent is raised when a quote is signed directly into a contract
type QuoteExecutedEvent struct {
	shared.EventMeta
	QuoteID   uuid.UUID `json:"quote_id"`
	AccountID uuid.UUID `json:"account_id"`
	Signer    string    `json:"signer"`
}

// NewQuoteExecutedEvent creates a new QuoteExecutedEvent
func NewQuoteExecutedEvent(q *Quote) *QuoteExecutedEvent {
	return &QuoteExecutedEvent{
		EventMeta: shared.NewEventMeta(EventTypeQuoteExecuted, q.ID, q.TenantID, q.UpdatedAt),
		QuoteID:   q.ID,
		AccountID: *q.AccountID,
		Signer:    q.ContractName,
	}
}

// QuoteCotermedEvent is raised when a quote replaces a prior contract
type QuoteCotermedEvent struct {
	shared.EventMeta
	QuoteID   uuid.UUID `json:"quote_id"`
	SourceID  uuid.UUID `json:"source_id"`
	AccountID uuid.UUID `json:"account_id"`
}

// NewQuoteCotermedEvent creates a new QuoteCotermedEvent
func NewQuoteCotermedEvent(q *Quote, sourceID uuid.UUID) *QuoteCotermedEvent {
	e := &QuoteCotermedEvent{
		EventMeta: shared.NewEventMeta(EventTypeQuoteCotermed, q.ID, q.TenantID, q.UpdatedAt),
		QuoteID:   q.ID,
		SourceID:  sourceID,
	}
	if q.AccountID != nil {
		e.AccountID = *q.AccountID
	}
	return e
}

// QuoteTerminatedEvent is raised when an executed contract is replaced by a co-term
type QuoteTerminatedEvent struct {
	shared.EventMeta
	QuoteID    uuid.UUID `json:"quote_id"`
	ReplacedBy uuid.UUID `json:"replaced_by"`
}

// NewQuoteTerminatedEvent creates a new QuoteTerminatedEvent
func NewQuoteTerminatedEvent(q *Quote, replacedBy uuid.UUID) *QuoteTerminatedEvent {
	return &QuoteTerminatedEvent{
		EventMeta:  shared.NewEventMeta(EventTypeQuoteTerminated, q.ID, q.TenantID, q.UpdatedAt),
		QuoteID:    q.ID,
		ReplacedBy: replacedBy,
	}
}

package quoting

import (
	"time"

	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteStatus represents the lifecycle status of a quote
type QuoteStatus string

const (
	QuoteStatusDraft      QuoteStatus = "DRAFT"
	QuoteStatusSent       QuoteStatus = "SENT"
	QuoteStatusApproved   QuoteStatus = "APPROVED"
	QuoteStatusDeclined   QuoteStatus = "DECLINED"
	QuoteStatusExecuted   QuoteStatus = "EXECUTED"
	QuoteStatusTerminated QuoteStatus = "TERMINATED"
)

// IsValid checks if the status is a valid QuoteStatus
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusApproved, QuoteStatusDeclined,
		QuoteStatusExecuted, QuoteStatusTerminated:
		return true
	}
	return false
}

// String returns the string representation of QuoteStatus
func (s QuoteStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	switch s {
	case QuoteStatusDraft:
		return target == QuoteStatusSent || target == QuoteStatusExecuted
	case QuoteStatusSent:
		return target == QuoteStatusSent || target == QuoteStatusApproved ||
			target == QuoteStatusDeclined || target == QuoteStatusExecuted
	case QuoteStatusApproved:
		return target == QuoteStatusSent || target == QuoteStatusExecuted
	case QuoteStatusExecuted:
		// only a co-term replacement moves an executed contract on
		return target == QuoteStatusTerminated
	case QuoteStatusDeclined, QuoteStatusTerminated:
		return false
	}
	return false
}

// Quote is the aggregate root for a priced proposal that becomes a contract once executed
type Quote struct {
	shared.TenantAggregateRoot
	AccountID       *uuid.UUID
	LeadID          *uuid.UUID
	CotermID        *uuid.UUID // prior contract this quote replaces
	Term            int        // months, 0 = month-to-month
	NetTerms        int        // days
	Tax             decimal.Decimal
	Status          QuoteStatus
	Presentable     bool
	Archived        bool
	Preferred       bool
	Active          bool
	ActivatedOn     *time.Time
	ExpiresOn       *time.Time
	SentOn          *time.Time
	ContractExpires *time.Time
	ContractName    string
	ContractIP      string
	SignatureFileID *string
	CouponID        *uuid.UUID
	Items           []QuoteItem
}

// NewQuote creates a draft quote owned by exactly one of an account or a lead
func NewQuote(tenantID uuid.UUID, accountID, leadID *uuid.UUID, term, netTerms int) (*Quote, error) {
	if (accountID == nil) == (leadID == nil) {
		return nil, shared.NewDomainError("INVALID_OWNER", "Quote must belong to exactly one of an account or a lead")
	}
	if term < 0 {
		return nil, shared.NewDomainError("INVALID_TERM", "Term cannot be negative")
	}
	if netTerms < 0 {
		return nil, shared.NewDomainError("INVALID_NET_TERMS", "Net terms cannot be negative")
	}

	q := &Quote{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountID:           accountID,
		LeadID:              leadID,
		Term:                term,
		NetTerms:            netTerms,
		Tax:                 decimal.Zero,
		Status:              QuoteStatusDraft,
		Items:               make([]QuoteItem, 0),
	}

	q.AddDomainEvent(NewQuoteCreatedEvent(q))
	return q, nil
}

// IsEditable reports whether items may be added, edited or reordered
func (q *Quote) IsEditable() bool {
	return q.ActivatedOn == nil && !q.Archived
}

// IsCoterm reports whether the quote replaces a prior contract
func (q *Quote) IsCoterm() bool {
	return q.CotermID != nil
}

// IsExecuted reports whether the quote has become a contract
func (q *Quote) IsExecuted() bool {
	return q.Status == QuoteStatusExecuted
}

func (q *Quote) ensureEditable() error {
	if !q.IsEditable() {
		return shared.ErrEditingLocked
	}
	return nil
}

// SetCoterm marks the quote as the replacement for a prior contract
func (q *Quote) SetCoterm(sourceID uuid.UUID) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	if sourceID == q.ID {
		return shared.NewDomainError("INVALID_COTERM", "A quote cannot co-term itself")
	}
	if q.AccountID == nil {
		return shared.NewDomainError("INVALID_COTERM", "Only account quotes can co-term a contract")
	}
	q.CotermID = &sourceID
	q.Touch(time.Now())
	return nil
}

// SetExpiry sets the offer expiry date
func (q *Quote) SetExpiry(expiresOn *time.Time) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	q.ExpiresOn = expiresOn
	q.Touch(time.Now())
	return nil
}

// SetPreferred flags the quote as the preferred option among several for the same party
func (q *Quote) SetPreferred(preferred bool) {
	q.Preferred = preferred
	q.Touch(time.Now())
}

// ApplyCoupon attaches or clears the coupon reference
func (q *Quote) ApplyCoupon(couponID *uuid.UUID) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	q.CouponID = couponID
	q.Touch(time.Now())
	return nil
}

// SetTax stores the last computed tax amount
func (q *Quote) SetTax(amount decimal.Decimal, now time.Time) {
	q.Tax = amount
	q.Touch(now)
}

// MarkSent flags the quote as presented to the customer.
// A re-send keeps an approval in place; only a draft moves to SENT.
func (q *Quote) MarkSent(now time.Time) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	if !q.Status.CanTransitionTo(QuoteStatusSent) {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot send a quote in status "+q.Status.String())
	}

	if q.Status == QuoteStatusDraft {
		q.Status = QuoteStatusSent
	}
	q.Presentable = true
	q.SentOn = &now
	q.Touch(now)

	q.AddDomainEvent(NewQuoteSentEvent(q))
	return nil
}

// Approve records the customer's acceptance of a sent quote
func (q *Quote) Approve(now time.Time) error {
	return q.respond(QuoteStatusApproved, now)
}

// Decline records the customer's rejection of a sent quote
func (q *Quote) Decline(now time.Time) error {
	return q.respond(QuoteStatusDeclined, now)
}

func (q *Quote) respond(target QuoteStatus, now time.Time) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	if q.Status != QuoteStatusSent {
		return shared.NewDomainError(shared.CodeInvalidState, "Only sent quotes can be "+string(target))
	}
	q.Status = target
	q.Touch(now)
	return nil
}

// ExecuteDirect turns the quote into a signed contract bound to the target account
func (q *Quote) ExecuteDirect(accountID uuid.UUID, signer, signerIP, signatureFileID string, now time.Time) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	if !q.Status.CanTransitionTo(QuoteStatusExecuted) {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot execute a quote in status "+q.Status.String())
	}
	if accountID == uuid.Nil {
		return shared.NewDomainError("INVALID_ACCOUNT", "Target account is required")
	}
	if signer == "" {
		return shared.NewDomainError("INVALID_SIGNER", "Signer name is required")
	}
	if signatureFileID == "" {
		return shared.NewDomainError("INVALID_SIGNATURE", "Signature is required")
	}

	q.ActivatedOn = &now
	q.ContractExpires = contractExpiry(now, q.Term)
	q.Status = QuoteStatusExecuted
	q.Active = true
	q.Archived = true
	q.ContractName = signer
	q.ContractIP = signerIP
	q.SignatureFileID = &signatureFileID
	q.AccountID = &accountID
	q.Touch(now)

	q.AddDomainEvent(NewQuoteExecutedEvent(q))
	return nil
}

// ActivateAsCoterm executes the quote by inheriting the contract terms of the source it replaces
func (q *Quote) ActivateAsCoterm(source *Quote, now time.Time) error {
	if err := q.ensureEditable(); err != nil {
		return err
	}
	if q.CotermID == nil || *q.CotermID != source.ID {
		return shared.NewDomainError("INVALID_COTERM", "Quote does not co-term the given contract")
	}
	if !q.Status.CanTransitionTo(QuoteStatusExecuted) {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot execute a quote in status "+q.Status.String())
	}

	q.ContractExpires = copyTime(source.ContractExpires)
	q.Term = source.Term
	q.SignatureFileID = copyString(source.SignatureFileID)
	q.ActivatedOn = &now
	q.Active = false
	q.Status = QuoteStatusExecuted
	q.ContractName = source.ContractName
	q.ContractIP = source.ContractIP
	q.Touch(now)

	q.AddDomainEvent(NewQuoteCotermedEvent(q, source.ID))
	return nil
}

// Terminate ends an executed contract because a co-term replaced it
func (q *Quote) Terminate(replacedBy uuid.UUID, now time.Time) error {
	if !q.Status.CanTransitionTo(QuoteStatusTerminated) {
		return shared.NewDomainError(shared.CodeInvalidState, "Only executed contracts can be terminated")
	}
	q.Status = QuoteStatusTerminated
	q.ContractExpires = &now
	q.Active = false
	q.Touch(now)

	q.AddDomainEvent(NewQuoteTerminatedEvent(q, replacedBy))
	return nil
}

// Archive hides the quote; archived quotes are no longer editable
func (q *Quote) Archive(now time.Time) {
	q.Archived = true
	q.Touch(now)
}

// Unarchive restores an archived quote that was never executed
func (q *Quote) Unarchive(now time.Time) error {
	if q.ActivatedOn != nil {
		return shared.NewDomainError(shared.CodeInvalidState, "Executed contracts stay archived")
	}
	q.Archived = false
	q.Touch(now)
	return nil
}

// AgeInDays returns the number of whole days since the quote was created
func (q *Quote) AgeInDays(now time.Time) int {
	if now.Before(q.CreatedAt) {
		return 0
	}
	return int(now.Sub(q.CreatedAt).Hours() / 24)
}

// GetItem returns the item with the given ID, or nil
func (q *Quote) GetItem(itemID uuid.UUID) *QuoteItem {
	for i := range q.Items {
		if q.Items[i].ID == itemID {
			return &q.Items[i]
		}
	}
	return nil
}

// CatalogItemIDs returns the distinct catalog IDs referenced by the items
func (q *Quote) CatalogItemIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(q.Items))
	ids := make([]uuid.UUID, 0, len(q.Items))
	for _, item := range q.Items {
		if item.CatalogItemID == nil {
			continue
		}
		if _, ok := seen[*item.CatalogItemID]; ok {
			continue
		}
		seen[*item.CatalogItemID] = struct{}{}
		ids = append(ids, *item.CatalogItemID)
	}
	return ids
}

func contractExpiry(activated time.Time, term int) *time.Time {
	if term <= 0 {
		return nil
	}
	expires := activated.AddDate(0, term, 0)
	return &expires
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

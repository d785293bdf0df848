package partner

import (
	"net/mail"
	"strings"
	"time"

	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
)

// Contact is the person that receives quotes and contract notices
type Contact struct {
	Name  string
	Email string
}

// IsZero reports whether no contact is set
func (c Contact) IsZero() bool {
	return c.Email == ""
}

// NewContact validates and creates a contact
func NewContact(name, email string) (Contact, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Contact{}, nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Contact{}, shared.NewDomainError("INVALID_EMAIL", "Invalid contact email: "+email)
	}
	return Contact{Name: strings.TrimSpace(name), Email: email}, nil
}

// Account is a customer with (or about to have) a contract
type Account struct {
	shared.TenantAggregateRoot
	Name     string
	State    string // jurisdiction code used for tax lookup
	Taxable  bool
	NetTerms int // days until invoices are due
	Primary  Contact
	Admin    Contact // receives contract notices; falls back to Primary
}

// NewAccount creates a new taxable account
func NewAccount(tenantID uuid.UUID, name, state string, netTerms int) (*Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	if netTerms < 0 {
		return nil, shared.NewDomainError("INVALID_NET_TERMS", "Net terms cannot be negative")
	}
	return &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		State:               NormalizeState(state),
		Taxable:             true,
		NetTerms:            netTerms,
	}, nil
}

// SetContacts updates primary and administrative contacts
func (a *Account) SetContacts(primary, admin Contact) {
	a.Primary = primary
	a.Admin = admin
	a.Touch(time.Now())
}

// SetTaxable marks the account as taxable or exempt
func (a *Account) SetTaxable(taxable bool) {
	a.Taxable = taxable
	a.Touch(time.Now())
}

// AdminContact returns the administrative contact, or the primary one when unset
func (a *Account) AdminContact() Contact {
	if !a.Admin.IsZero() {
		return a.Admin
	}
	return a.Primary
}

// Lead is a prospective customer that can receive quotes before becoming an account
type Lead struct {
	shared.TenantAggregateRoot
	Company string
	State   string
	Taxable bool
	Contact Contact
}

// NewLead creates a new taxable lead
func NewLead(tenantID uuid.UUID, company, state string, contact Contact) (*Lead, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Lead company cannot be empty")
	}
	return &Lead{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Company:             company,
		State:               NormalizeState(state),
		Taxable:             true,
		Contact:             contact,
	}, nil
}

// SetTaxable marks the lead as taxable or exempt
func (l *Lead) SetTaxable(taxable bool) {
	l.Taxable = taxable
	l.Touch(time.Now())
}

// NormalizeState upper-cases and trims a jurisdiction code
func NormalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

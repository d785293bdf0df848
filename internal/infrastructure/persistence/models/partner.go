package models

import (
	"time"

	"github.com/erp/quoting/internal/domain/partner"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// AccountModel is the persistence model for the Account aggregate root
type AccountModel struct {
	TenantAggregateModel
	Name         string `gorm:"type:varchar(200);not null"`
	State        string `gorm:"type:varchar(10);index"`
	Taxable      bool   `gorm:"not null;default:true"`
	NetTerms     int    `gorm:"not null;default:30"`
	PrimaryName  string `gorm:"type:varchar(200)"`
	PrimaryEmail string `gorm:"type:varchar(255)"`
	AdminName    string `gorm:"type:varchar(200)"`
	AdminEmail   string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *partner.Account {
	return &partner.Account{
		TenantAggregateRoot: m.TenantAggregateModel.ToDomain(),
		Name:                m.Name,
		State:               m.State,
		Taxable:             m.Taxable,
		NetTerms:            m.NetTerms,
		Primary:             partner.Contact{Name: m.PrimaryName, Email: m.PrimaryEmail},
		Admin:               partner.Contact{Name: m.AdminName, Email: m.AdminEmail},
	}
}

// AccountModelFromDomain creates a persistence model from a domain Account
func AccountModelFromDomain(a *partner.Account) *AccountModel {
	m := &AccountModel{
		Name:         a.Name,
		State:        a.State,
		Taxable:      a.Taxable,
		NetTerms:     a.NetTerms,
		PrimaryName:  a.Primary.Name,
		PrimaryEmail: a.Primary.Email,
		AdminName:    a.Admin.Name,
		AdminEmail:   a.Admin.Email,
	}
	m.TenantAggregateModel.FromDomain(a.TenantAggregateRoot)
	return m
}

// LeadModel is the persistence model for the Lead aggregate root
type LeadModel struct {
	TenantAggregateModel
	Company      string `gorm:"type:varchar(200);not null"`
	State        string `gorm:"type:varchar(10);index"`
	Taxable      bool   `gorm:"not null;default:true"`
	ContactName  string `gorm:"type:varchar(200)"`
	ContactEmail string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (LeadModel) TableName() string {
	return "leads"
}

// ToDomain converts the persistence model to a domain Lead
func (m *LeadModel) ToDomain() *partner.Lead {
	return &partner.Lead{
		TenantAggregateRoot: m.TenantAggregateModel.ToDomain(),
		Company:             m.Company,
		State:               m.State,
		Taxable:             m.Taxable,
		Contact:             partner.Contact{Name: m.ContactName, Email: m.ContactEmail},
	}
}

// LeadModelFromDomain creates a persistence model from a domain Lead
func LeadModelFromDomain(l *partner.Lead) *LeadModel {
	m := &LeadModel{
		Company:      l.Company,
		State:        l.State,
		Taxable:      l.Taxable,
		ContactName:  l.Contact.Name,
		ContactEmail: l.Contact.Email,
	}
	m.TenantAggregateModel.FromDomain(l.TenantAggregateRoot)
	return m
}

// AccountItemModel is the persistence model for a recurring account item
type AccountItemModel struct {
	ID            uuid.UUID                             `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID                             `gorm:"type:uuid;not null;index:idx_account_item_owner,priority:1"`
	AccountID     uuid.UUID                             `gorm:"type:uuid;not null;index:idx_account_item_owner,priority:2"`
	CatalogItemID uuid.UUID                             `gorm:"type:uuid;not null"`
	QuoteID       *uuid.UUID                            `gorm:"type:uuid;index:idx_account_item_owner,priority:3"`
	Price         decimal.Decimal                       `gorm:"type:decimal(18,4);not null;default:0"`
	Qty           decimal.Decimal                       `gorm:"type:decimal(18,4);not null;default:1"`
	Notes         string                                `gorm:"type:text"`
	Meta          datatypes.JSONType[map[string]string] `gorm:"column:meta"`
	CreatedAt     time.Time                             `gorm:"not null"`
	UpdatedAt     time.Time                             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountItemModel) TableName() string {
	return "account_items"
}

// ToDomain converts the persistence model to a domain AccountItem
func (m *AccountItemModel) ToDomain() *partner.AccountItem {
	return &partner.AccountItem{
		ID:            m.ID,
		TenantID:      m.TenantID,
		AccountID:     m.AccountID,
		CatalogItemID: m.CatalogItemID,
		QuoteID:       m.QuoteID,
		Price:         m.Price,
		Qty:           m.Qty,
		Notes:         m.Notes,
		Meta:          m.Meta.Data(),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// AccountItemModelFromDomain creates a persistence model from a domain AccountItem
func AccountItemModelFromDomain(i *partner.AccountItem) *AccountItemModel {
	return &AccountItemModel{
		ID:            i.ID,
		TenantID:      i.TenantID,
		AccountID:     i.AccountID,
		CatalogItemID: i.CatalogItemID,
		QuoteID:       i.QuoteID,
		Price:         i.Price,
		Qty:           i.Qty,
		Notes:         i.Notes,
		Meta:          datatypes.NewJSONType(i.Meta),
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

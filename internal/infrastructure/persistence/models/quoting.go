package models

import (
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// QuoteModel is the persistence model for the Quote aggregate root
type QuoteModel struct {
	TenantAggregateModel
	SoftDeleteModel
	AccountID       *uuid.UUID          `gorm:"type:uuid;index"`
	LeadID          *uuid.UUID          `gorm:"type:uuid;index"`
	CotermID        *uuid.UUID          `gorm:"type:uuid;index"`
	Term            int                 `gorm:"not null;default:0"`
	NetTerms        int                 `gorm:"not null;default:0"`
	Tax             decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Status          quoting.QuoteStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Presentable     bool                `gorm:"not null;default:false"`
	Archived        bool                `gorm:"not null;default:false;index"`
	Preferred       bool                `gorm:"not null;default:false"`
	Active          bool                `gorm:"not null;default:false"`
	ActivatedOn     *time.Time
	ExpiresOn       *time.Time
	SentOn          *time.Time
	ContractExpires *time.Time       `gorm:"index"`
	ContractName    string           `gorm:"type:varchar(200)"`
	ContractIP      string           `gorm:"type:varchar(64)"`
	SignatureFileID *string          `gorm:"type:varchar(255)"`
	CouponID        *uuid.UUID       `gorm:"type:uuid"`
	Items           []QuoteItemModel `gorm:"foreignKey:QuoteID;references:ID"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// ToDomain converts the persistence model to a domain Quote
func (m *QuoteModel) ToDomain() *quoting.Quote {
	q := &quoting.Quote{
		TenantAggregateRoot: m.TenantAggregateModel.ToDomain(),
		AccountID:           m.AccountID,
		LeadID:              m.LeadID,
		CotermID:            m.CotermID,
		Term:                m.Term,
		NetTerms:            m.NetTerms,
		Tax:                 m.Tax,
		Status:              m.Status,
		Presentable:         m.Presentable,
		Archived:            m.Archived,
		Preferred:           m.Preferred,
		Active:              m.Active,
		ActivatedOn:         m.ActivatedOn,
		ExpiresOn:           m.ExpiresOn,
		SentOn:              m.SentOn,
		ContractExpires:     m.ContractExpires,
		ContractName:        m.ContractName,
		ContractIP:          m.ContractIP,
		SignatureFileID:     m.SignatureFileID,
		CouponID:            m.CouponID,
		Items:               make([]quoting.QuoteItem, len(m.Items)),
	}
	for i := range m.Items {
		q.Items[i] = *m.Items[i].ToDomain()
	}
	return q
}

// FromDomain populates the persistence model from a domain Quote
func (m *QuoteModel) FromDomain(q *quoting.Quote) {
	m.TenantAggregateModel.FromDomain(q.TenantAggregateRoot)
	m.AccountID = q.AccountID
	m.LeadID = q.LeadID
	m.CotermID = q.CotermID
	m.Term = q.Term
	m.NetTerms = q.NetTerms
	m.Tax = q.Tax
	m.Status = q.Status
	m.Presentable = q.Presentable
	m.Archived = q.Archived
	m.Preferred = q.Preferred
	m.Active = q.Active
	m.ActivatedOn = q.ActivatedOn
	m.ExpiresOn = q.ExpiresOn
	m.SentOn = q.SentOn
	m.ContractExpires = q.ContractExpires
	m.ContractName = q.ContractName
	m.ContractIP = q.ContractIP
	m.SignatureFileID = q.SignatureFileID
	m.CouponID = q.CouponID
	m.Items = make([]QuoteItemModel, len(q.Items))
	for i := range q.Items {
		m.Items[i] = *QuoteItemModelFromDomain(&q.Items[i])
	}
}

// QuoteModelFromDomain creates a new persistence model from a domain Quote
func QuoteModelFromDomain(q *quoting.Quote) *QuoteModel {
	m := &QuoteModel{}
	m.FromDomain(q)
	return m
}

// QuoteItemModel is the persistence model for a quote line item
type QuoteItemModel struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey"`
	QuoteID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	CatalogItemID *uuid.UUID         `gorm:"type:uuid;index"`
	Price         decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	Qty           decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:1"`
	Ord           int                `gorm:"not null;default:0"`
	Frequency     *catalog.Frequency `gorm:"type:varchar(20)"`
	Payments      *int
	Notes         string                                `gorm:"type:text"`
	Meta          datatypes.JSONType[map[string]string] `gorm:"column:meta"`
	AddonTotal    decimal.Decimal                       `gorm:"type:decimal(18,4);not null;default:0"`
	Addons        []QuoteItemAddonModel                 `gorm:"foreignKey:QuoteItemID;references:ID"`
	CreatedAt     time.Time                             `gorm:"not null"`
	UpdatedAt     time.Time                             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (QuoteItemModel) TableName() string {
	return "quote_items"
}

// ToDomain converts the persistence model to a domain QuoteItem
func (m *QuoteItemModel) ToDomain() *quoting.QuoteItem {
	item := &quoting.QuoteItem{
		ID:            m.ID,
		QuoteID:       m.QuoteID,
		CatalogItemID: m.CatalogItemID,
		Price:         m.Price,
		Qty:           m.Qty,
		Ord:           m.Ord,
		Frequency:     m.Frequency,
		Payments:      m.Payments,
		Notes:         m.Notes,
		Meta:          m.Meta.Data(),
		AddonTotal:    m.AddonTotal,
		Addons:        make([]quoting.Addon, len(m.Addons)),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	for i, a := range m.Addons {
		item.Addons[i] = quoting.Addon{ID: a.ID, Name: a.Name, Price: a.Price, Qty: a.Qty}
	}
	return item
}

// QuoteItemModelFromDomain creates a persistence model from a domain QuoteItem
func QuoteItemModelFromDomain(item *quoting.QuoteItem) *QuoteItemModel {
	m := &QuoteItemModel{
		ID:            item.ID,
		QuoteID:       item.QuoteID,
		CatalogItemID: item.CatalogItemID,
		Price:         item.Price,
		Qty:           item.Qty,
		Ord:           item.Ord,
		Frequency:     item.Frequency,
		Payments:      item.Payments,
		Notes:         item.Notes,
		Meta:          datatypes.NewJSONType(item.Meta),
		AddonTotal:    item.AddonTotal,
		Addons:        make([]QuoteItemAddonModel, len(item.Addons)),
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
	for i, a := range item.Addons {
		m.Addons[i] = QuoteItemAddonModel{
			ID:          a.ID,
			QuoteItemID: item.ID,
			Name:        a.Name,
			Price:       a.Price,
			Qty:         a.Qty,
		}
	}
	return m
}

// QuoteItemAddonModel is the persistence model for an addon charge on a line item
type QuoteItemAddonModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	QuoteItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name        string          `gorm:"type:varchar(200);not null"`
	Price       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Qty         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:1"`
}

// TableName returns the table name for GORM
func (QuoteItemAddonModel) TableName() string {
	return "quote_item_addons"
}

package models

import (
	"time"

	"github.com/erp/quoting/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantAggregateModel provides the persistence fields shared by tenant-scoped
// aggregate roots: identity, timestamps, optimistic-lock version and tenant.
type TenantAggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// FromDomain populates the model from a domain TenantAggregateRoot
func (m *TenantAggregateModel) FromDomain(t shared.TenantAggregateRoot) {
	m.ID = t.ID
	m.TenantID = t.TenantID
	m.Version = t.Version
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
}

// ToDomain builds a domain TenantAggregateRoot with no pending events
func (m *TenantAggregateModel) ToDomain() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		TenantID: m.TenantID,
	}
}

// SoftDeleteModel adds a soft-delete marker to aggregates that support deletion
type SoftDeleteModel struct {
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// All returns every persistence model in migration order
func All() []any {
	return []any{
		&CatalogItemModel{},
		&AccountModel{},
		&LeadModel{},
		&QuoteModel{},
		&QuoteItemModel{},
		&QuoteItemAddonModel{},
		&AccountItemModel{},
		&InvoiceModel{},
		&InvoiceItemModel{},
		&TaxLocationModel{},
		&ActivityModel{},
	}
}

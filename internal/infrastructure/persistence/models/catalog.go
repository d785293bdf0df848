package models

import (
	"time"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogItemModel is the persistence model for catalog items
type CatalogItemModel struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID         `gorm:"type:uuid;not null;index;uniqueIndex:idx_catalog_tenant_sku,priority:1"`
	SKU       string            `gorm:"type:varchar(64);not null;uniqueIndex:idx_catalog_tenant_sku,priority:2"`
	Name      string            `gorm:"type:varchar(200);not null"`
	Type      catalog.ItemType  `gorm:"type:varchar(20);not null"`
	Taxable   bool              `gorm:"not null;default:true"`
	Price     decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Cost      decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Frequency catalog.Frequency `gorm:"type:varchar(20)"`
	CreatedAt time.Time         `gorm:"not null"`
	UpdatedAt time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CatalogItemModel) TableName() string {
	return "catalog_items"
}

// ToDomain converts the persistence model to a domain catalog item
func (m *CatalogItemModel) ToDomain() *catalog.Item {
	return &catalog.Item{
		ID:        m.ID,
		TenantID:  m.TenantID,
		SKU:       m.SKU,
		Name:      m.Name,
		Type:      m.Type,
		Taxable:   m.Taxable,
		Price:     m.Price,
		Cost:      m.Cost,
		Frequency: m.Frequency,
	}
}

// CatalogItemModelFromDomain creates a persistence model from a domain catalog item
func CatalogItemModelFromDomain(i *catalog.Item) *CatalogItemModel {
	return &CatalogItemModel{
		ID:        i.ID,
		TenantID:  i.TenantID,
		SKU:       i.SKU,
		Name:      i.Name,
		Type:      i.Type,
		Taxable:   i.Taxable,
		Price:     i.Price,
		Cost:      i.Cost,
		Frequency: i.Frequency,
	}
}

package persistence

import (
	"context"

	"github.com/erp/quoting/internal/domain/catalog"
	"github.com/erp/quoting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCatalogProvider implements catalog.Provider over the catalog_items table
type GormCatalogProvider struct {
	db *gorm.DB
}

// NewGormCatalogProvider creates a new GormCatalogProvider
func NewGormCatalogProvider(db *gorm.DB) *GormCatalogProvider {
	return &GormCatalogProvider{db: db}
}

// FindByIDs resolves the tenant's catalog items by ID.
// Unknown IDs and other tenants' items are absent from the result.
func (p *GormCatalogProvider) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*catalog.Item, error) {
	found := make(map[uuid.UUID]*catalog.Item, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var rows []models.CatalogItemModel
	if err := p.db.WithContext(ctx).Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		found[rows[i].ID] = rows[i].ToDomain()
	}
	return found, nil
}

// Save creates or updates a catalog item
func (p *GormCatalogProvider) Save(ctx context.Context, item *catalog.Item) error {
	return p.db.WithContext(ctx).Save(models.CatalogItemModelFromDomain(item)).Error
}

// Delete removes a catalog item; quote items referencing it keep a dangling ID
func (p *GormCatalogProvider) Delete(ctx context.Context, id uuid.UUID) error {
	return p.db.WithContext(ctx).Delete(&models.CatalogItemModel{}, "id = ?", id).Error
}

var _ catalog.Provider = (*GormCatalogProvider)(nil)

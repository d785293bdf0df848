package persistence

import (
	"context"
	"errors"

	"github.com/erp/quoting/internal/domain/partner"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/erp/quoting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccountRepository implements partner.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByIDForTenant finds an account by ID within a tenant
func (r *GormAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Account, error) {
	var model models.AccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, account *partner.Account) error {
	return r.db.WithContext(ctx).Save(models.AccountModelFromDomain(account)).Error
}

// GormLeadRepository implements partner.LeadRepository using GORM
type GormLeadRepository struct {
	db *gorm.DB
}

// NewGormLeadRepository creates a new GormLeadRepository
func NewGormLeadRepository(db *gorm.DB) *GormLeadRepository {
	return &GormLeadRepository{db: db}
}

// FindByIDForTenant finds a lead by ID within a tenant
func (r *GormLeadRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Lead, error) {
	var model models.LeadModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a lead
func (r *GormLeadRepository) Save(ctx context.Context, lead *partner.Lead) error {
	return r.db.WithContext(ctx).Save(models.LeadModelFromDomain(lead)).Error
}

// GormAccountItemRepository implements partner.AccountItemRepository using GORM
type GormAccountItemRepository struct {
	db *gorm.DB
}

// NewGormAccountItemRepository creates a new GormAccountItemRepository
func NewGormAccountItemRepository(db *gorm.DB) *GormAccountItemRepository {
	return &GormAccountItemRepository{db: db}
}

// FindByAccount lists the recurring items billed to an account
func (r *GormAccountItemRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]partner.AccountItem, error) {
	var rows []models.AccountItemModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]partner.AccountItem, len(rows))
	for i := range rows {
		items[i] = *rows[i].ToDomain()
	}
	return items, nil
}

// CreateBatch inserts several items at once
func (r *GormAccountItemRepository) CreateBatch(ctx context.Context, items []*partner.AccountItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]*models.AccountItemModel, len(items))
	for i, item := range items {
		rows[i] = models.AccountItemModelFromDomain(item)
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

// DeleteByQuote removes the account's items that were migrated from the given quote
func (r *GormAccountItemRepository) DeleteByQuote(ctx context.Context, tenantID, accountID, quoteID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ? AND quote_id = ?", tenantID, accountID, quoteID).
		Delete(&models.AccountItemModel{})
	return result.RowsAffected, result.Error
}

var (
	_ partner.AccountRepository     = (*GormAccountRepository)(nil)
	_ partner.LeadRepository        = (*GormLeadRepository)(nil)
	_ partner.AccountItemRepository = (*GormAccountItemRepository)(nil)
)

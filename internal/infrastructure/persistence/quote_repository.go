package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/quoting/internal/domain/quoting"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/erp/quoting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// quoteSortFields lists the columns a quote list may be ordered by
var quoteSortFields = map[string]bool{
	"created_at":       true,
	"updated_at":       true,
	"status":           true,
	"sent_on":          true,
	"activated_on":     true,
	"contract_expires": true,
}

// quoteOrder builds the ORDER BY column for a list filter.
// Unknown columns fall back to created_at; anything but "asc" sorts descending.
func quoteOrder(orderBy, orderDir string) clause.OrderByColumn {
	column := strings.TrimSpace(orderBy)
	if !quoteSortFields[column] {
		column = "created_at"
	}
	return clause.OrderByColumn{
		Column: clause.Column{Name: column},
		Desc:   !strings.EqualFold(strings.TrimSpace(orderDir), "asc"),
	}
}

// GormQuoteRepository implements quoting.QuoteRepository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

func (r *GormQuoteRepository) withItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("ord ASC, created_at ASC")
		}).
		Preload("Items.Addons")
}

// FindByIDForTenant finds a quote with its items by ID within a tenant
func (r *GormQuoteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*quoting.Quote, error) {
	var model models.QuoteModel
	if err := r.withItems(r.db.WithContext(ctx)).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a quote and locks its row until the surrounding
// transaction ends. SQLite has no row locks; its writes are serialized anyway.
func (r *GormQuoteRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*quoting.Quote, error) {
	query := r.db.WithContext(ctx)
	if query.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model models.QuoteModel
	if err := query.
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	// items are loaded separately so the lock clause stays on the quote row only
	if err := r.withItems(r.db.WithContext(ctx)).
		Where("id = ?", model.ID).
		First(&model).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant returns one page of a tenant's quotes
func (r *GormQuoteRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query quoting.ListQuery) ([]quoting.Quote, error) {
	db := r.scoped(ctx, tenantID, query).Order(quoteOrder(query.OrderBy, query.OrderDir))
	if query.PageSize > 0 {
		db = db.Offset(query.Offset()).Limit(query.PageSize)
	}

	var rows []models.QuoteModel
	if err := r.withItems(db).Find(&rows).Error; err != nil {
		return nil, err
	}
	quotes := make([]quoting.Quote, len(rows))
	for i := range rows {
		quotes[i] = *rows[i].ToDomain()
	}
	return quotes, nil
}

// CountForTenant counts the quotes matching query, ignoring pagination
func (r *GormQuoteRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query quoting.ListQuery) (int64, error) {
	var count int64
	if err := r.scoped(ctx, tenantID, query).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a quote together with its items.
// Updates are version checked; a copy read before another commit gets ErrConcurrencyConflict.
func (r *GormQuoteRepository) Save(ctx context.Context, quote *quoting.Quote) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.QuoteModelFromDomain(quote)
		if err := r.writeRow(tx, quote, model); err != nil {
			return err
		}
		return r.replaceItems(tx, model)
	})
}

// SaveWithLock writes the quote row under the version check and leaves the
// stored line items alone. Status and overlay changes use it.
func (r *GormQuoteRepository) SaveWithLock(ctx context.Context, quote *quoting.Quote) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.writeRow(tx, quote, models.QuoteModelFromDomain(quote))
	})
}

// writeRow updates the row still at quote.Version, or inserts it when the
// quote was never stored, and leaves quote.Version at the stored value
func (r *GormQuoteRepository) writeRow(tx *gorm.DB, quote *quoting.Quote, model *models.QuoteModel) error {
	expected := quote.Version
	model.Version = expected + 1

	result := tx.Model(&models.QuoteModel{}).
		Select("*").
		Omit("id", "tenant_id", "created_at", "deleted_at", clause.Associations).
		Where("tenant_id = ? AND id = ? AND version = ?", quote.TenantID, quote.ID, expected).
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("update quote: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var stored int64
		if err := tx.Unscoped().Model(&models.QuoteModel{}).Where("id = ?", quote.ID).Count(&stored).Error; err != nil {
			return fmt.Errorf("check quote: %w", err)
		}
		if stored > 0 {
			return shared.ErrConcurrencyConflict
		}
		model.Version = expected
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return fmt.Errorf("create quote: %w", err)
		}
	}
	quote.Version = model.Version
	return nil
}

// replaceItems makes the stored line items and addons match the model
func (r *GormQuoteRepository) replaceItems(tx *gorm.DB, model *models.QuoteModel) error {
	var existing []uuid.UUID
	if err := tx.Model(&models.QuoteItemModel{}).
		Where("quote_id = ?", model.ID).
		Pluck("id", &existing).Error; err != nil {
		return err
	}
	if len(existing) > 0 {
		if err := tx.Where("quote_item_id IN ?", existing).
			Delete(&models.QuoteItemAddonModel{}).Error; err != nil {
			return fmt.Errorf("clear addons: %w", err)
		}
	}

	keep := make([]uuid.UUID, len(model.Items))
	for i := range model.Items {
		keep[i] = model.Items[i].ID
	}
	stale := tx.Where("quote_id = ?", model.ID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	if err := stale.Delete(&models.QuoteItemModel{}).Error; err != nil {
		return fmt.Errorf("delete removed items: %w", err)
	}

	var addons []models.QuoteItemAddonModel
	for i := range model.Items {
		item := &model.Items[i]
		item.QuoteID = model.ID
		if err := tx.Omit(clause.Associations).Save(item).Error; err != nil {
			return fmt.Errorf("save item %s: %w", item.ID, err)
		}
		addons = append(addons, item.Addons...)
	}
	if len(addons) > 0 {
		if err := tx.Create(&addons).Error; err != nil {
			return fmt.Errorf("save addons: %w", err)
		}
	}
	return nil
}

// DeleteForTenant soft deletes a quote; its items stay for audit
func (r *GormQuoteRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.QuoteModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormQuoteRepository) scoped(ctx context.Context, tenantID uuid.UUID, query quoting.ListQuery) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&models.QuoteModel{}).Where("tenant_id = ?", tenantID)
	if query.Status != nil {
		db = db.Where("status = ?", *query.Status)
	}
	if query.AccountID != nil {
		db = db.Where("account_id = ?", *query.AccountID)
	}
	if query.LeadID != nil {
		db = db.Where("lead_id = ?", *query.LeadID)
	}
	if query.Archived != nil {
		db = db.Where("archived = ?", *query.Archived)
	}
	return db
}

var _ quoting.QuoteRepository = (*GormQuoteRepository)(nil)

package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appquoting "github.com/erp/quoting/internal/application/quoting"
	"github.com/erp/quoting/internal/domain/finance"
	"github.com/erp/quoting/internal/domain/partner"
	"github.com/erp/quoting/internal/domain/shared"
	"github.com/erp/quoting/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements finance.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByIDForTenant finds an invoice with its items
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAccount lists invoices billed to an account, newest first
func (r *GormInvoiceRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]finance.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	invoices := make([]finance.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, nil
}

// Save creates or updates an invoice together with its items
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.InvoiceModelFromDomain(invoice)
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		if err := tx.Where("invoice_id = ?", model.ID).Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return fmt.Errorf("clear invoice items: %w", err)
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return fmt.Errorf("save invoice items: %w", err)
			}
		}
		return nil
	})
}

// GenerateNumber returns the next invoice number for a tenant.
// Format: INV-YYYY-NNNNN (e.g., INV-2026-00001)
func (r *GormInvoiceRepository) GenerateNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", time.Now().Year())

	var last models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND number LIKE ?", tenantID, prefix+"%").
		Order("number DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	next := 1
	if err == nil {
		var n int
		if _, scanErr := fmt.Sscanf(strings.TrimPrefix(last.Number, prefix), "%d", &n); scanErr == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%05d", prefix, next), nil
}

// GormTaxLocationRepository implements finance.TaxLocationRepository using GORM
type GormTaxLocationRepository struct {
	db *gorm.DB
}

// NewGormTaxLocationRepository creates a new GormTaxLocationRepository
func NewGormTaxLocationRepository(db *gorm.DB) *GormTaxLocationRepository {
	return &GormTaxLocationRepository{db: db}
}

// FindByState returns the location for a state code or shared.ErrNotFound
func (r *GormTaxLocationRepository) FindByState(ctx context.Context, stateCode string) (*finance.TaxLocation, error) {
	var model models.TaxLocationModel
	if err := r.db.WithContext(ctx).
		Where("state_code = ?", partner.NormalizeState(stateCode)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// RateFor implements appquoting.TaxRateTable over the tax_locations table
func (r *GormTaxLocationRepository) RateFor(ctx context.Context, stateCode string) (decimal.Decimal, bool, error) {
	loc, err := r.FindByState(ctx, stateCode)
	if errors.Is(err, shared.ErrNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return loc.Rate, true, nil
}

// Upsert inserts or replaces the rate for a jurisdiction
func (r *GormTaxLocationRepository) Upsert(ctx context.Context, loc finance.TaxLocation) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "state_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"rate", "updated_at"}),
		}).
		Create(&models.TaxLocationModel{
			StateCode: partner.NormalizeState(loc.StateCode),
			Rate:      loc.Rate,
			UpdatedAt: time.Now(),
		}).Error
}

var (
	_ finance.InvoiceRepository     = (*GormInvoiceRepository)(nil)
	_ finance.TaxLocationRepository = (*GormTaxLocationRepository)(nil)
	_ appquoting.TaxRateTable       = (*GormTaxLocationRepository)(nil)
)

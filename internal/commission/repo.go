package commission

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a commission repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveVendorRate(ctx context.Context, vendorID uuid.UUID) (*models.CommissionRate, error) {
	var rate models.CommissionRate
	err := r.db.WithContext(ctx).
		Where("scope = ? AND vendor_id = ? AND active", enums.RateScopeVendor, vendorID).
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) FindActiveCategoryRate(ctx context.Context, category string) (*models.CommissionRate, error) {
	var rate models.CommissionRate
	err := r.db.WithContext(ctx).
		Where("scope = ? AND category = ? AND active", enums.RateScopeCategory, category).
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) FindActiveDefaultRate(ctx context.Context) (*models.CommissionRate, error) {
	var rate models.CommissionRate
	err := r.db.WithContext(ctx).
		Where("scope = ? AND active", enums.RateScopeDefault).
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) DeactivateScope(ctx context.Context, scope enums.RateScope, vendorID *uuid.UUID, category *string) error {
	query := r.db.WithContext(ctx).
		Model(&models.CommissionRate{}).
		Where("scope = ? AND active", scope)
	switch scope {
	case enums.RateScopeVendor:
		query = query.Where("vendor_id = ?", vendorID)
	case enums.RateScopeCategory:
		query = query.Where("category = ?", category)
	}
	return query.UpdateColumn("active", false).Error
}

func (r *repository) Create(ctx context.Context, rate *models.CommissionRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.CommissionRate, error) {
	query := r.db.WithContext(ctx).Model(&models.CommissionRate{})
	if activeOnly {
		query = query.Where("active")
	}
	var rates []models.CommissionRate
	if err := query.Order("scope ASC, created_at DESC").Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

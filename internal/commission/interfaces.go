package commission

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

// Repository defines persistence operations for the commission rate table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveVendorRate(ctx context.Context, vendorID uuid.UUID) (*models.CommissionRate, error)
	FindActiveCategoryRate(ctx context.Context, category string) (*models.CommissionRate, error)
	FindActiveDefaultRate(ctx context.Context) (*models.CommissionRate, error)
	DeactivateScope(ctx context.Context, scope enums.RateScope, vendorID *uuid.UUID, category *string) error
	Create(ctx context.Context, rate *models.CommissionRate) error
	List(ctx context.Context, activeOnly bool) ([]models.CommissionRate, error)
}

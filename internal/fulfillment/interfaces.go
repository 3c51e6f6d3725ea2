package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

// Repository defines persistence operations for the item pipeline.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindItem(ctx context.Context, orderID, itemID uuid.UUID) (*models.OrderItem, error)
	AdvanceItem(ctx context.Context, itemID uuid.UUID, from, to enums.ItemFulfillmentStatus, now time.Time) (int64, error)
	AdvanceVendorItems(ctx context.Context, orderID, vendorID uuid.UUID, from, to enums.ItemFulfillmentStatus, courier CourierInfo, now time.Time) (int64, error)
	FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}

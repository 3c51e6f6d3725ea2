package fulfillment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a fulfillment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindItem(ctx context.Context, orderID, itemID uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", itemID, orderID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// AdvanceItem performs the conditional stage move; zero affected rows means
// the item was no longer in the expected state.
func (r *repository) AdvanceItem(ctx context.Context, itemID uuid.UUID, from, to enums.ItemFulfillmentStatus, now time.Time) (int64, error) {
	updates := map[string]any{"fulfillment_status": to}
	applyStageTimestamp(updates, to, now)
	result := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND fulfillment_status = ?", itemID, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repository) AdvanceVendorItems(ctx context.Context, orderID, vendorID uuid.UUID, from, to enums.ItemFulfillmentStatus, courier CourierInfo, now time.Time) (int64, error) {
	updates := map[string]any{"fulfillment_status": to}
	applyStageTimestamp(updates, to, now)
	if to == enums.ItemFulfillmentStatusHandedToCourier {
		if name := strings.TrimSpace(courier.CourierName); name != "" {
			updates["courier_name"] = name
		}
		if code := strings.TrimSpace(courier.TrackingCode); code != "" {
			updates["tracking_code"] = code
		}
	}
	result := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND vendor_id = ? AND fulfillment_status = ?", orderID, vendorID, from).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repository) FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func applyStageTimestamp(updates map[string]any, to enums.ItemFulfillmentStatus, now time.Time) {
	switch to {
	case enums.ItemFulfillmentStatusPacked:
		updates["packed_at"] = now
	case enums.ItemFulfillmentStatusHandedToCourier:
		updates["handed_to_courier_at"] = now
	case enums.ItemFulfillmentStatusDelivered:
		updates["delivered_at"] = now
	}
}

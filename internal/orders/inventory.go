package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type inventoryAdjusterImpl struct{}

// NewInventoryAdjuster returns the stock mover used on order open/cancel.
func NewInventoryAdjuster() InventoryAdjuster {
	return inventoryAdjusterImpl{}
}

// Reserve moves qty from available to reserved. The WHERE clause doubles as
// the stock check: zero rows means not enough available quantity.
func (inventoryAdjusterImpl) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if tx == nil {
		return fmt.Errorf("transaction handle required")
	}
	if qty <= 0 {
		return nil
	}
	result := tx.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET available_qty = available_qty - ?, reserved_qty = reserved_qty + ?, updated_at = NOW()
		WHERE product_id = ? AND available_qty >= ?`,
		qty, qty, productID, qty)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("insufficient stock for product %s", productID)
	}
	return nil
}

func (inventoryAdjusterImpl) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if tx == nil {
		return fmt.Errorf("transaction handle required")
	}
	if qty <= 0 {
		return nil
	}
	result := tx.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET reserved_qty = GREATEST(reserved_qty - ?, 0), available_qty = available_qty + ?, updated_at = NOW()
		WHERE product_id = ?`,
		qty, qty, productID)
	return result.Error
}

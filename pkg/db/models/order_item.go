package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

// OrderItem is the per-vendor fulfillment unit. CommissionRate is the rate
// snapshotted at order creation; CommissionCents + VendorEarningsCents always
// sum to FinalPriceCents.
type OrderItem struct {
	ID                  uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID                   `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID            uuid.UUID                   `gorm:"column:vendor_id;type:uuid;not null;index"`
	ProductID           uuid.UUID                   `gorm:"column:product_id;type:uuid;not null"`
	ProductName         string                      `gorm:"column:product_name;type:text;not null"`
	Category            string                      `gorm:"column:category;type:text;not null;default:''"`
	Quantity            int                         `gorm:"column:quantity;not null"`
	UnitPriceCents      int                         `gorm:"column:unit_price_cents;not null"`
	FinalPriceCents     int                         `gorm:"column:final_price_cents;not null"`
	CommissionRate      decimal.Decimal             `gorm:"column:commission_rate;type:numeric(6,5);not null"`
	CommissionCents     int                         `gorm:"column:commission_cents;not null"`
	VendorEarningsCents int                         `gorm:"column:vendor_earnings_cents;not null"`
	CommissionReversed  int                         `gorm:"column:commission_reversed_cents;not null;default:0"`
	FulfillmentStatus   enums.ItemFulfillmentStatus `gorm:"column:fulfillment_status;type:text;not null;default:'pending'"`
	CourierName         *string                     `gorm:"column:courier_name;type:text"`
	TrackingCode        *string                     `gorm:"column:tracking_code;type:text"`
	PackedAt            *time.Time                  `gorm:"column:packed_at"`
	HandedToCourierAt   *time.Time                  `gorm:"column:handed_to_courier_at"`
	DeliveredAt         *time.Time                  `gorm:"column:delivered_at"`
	CreatedAt           time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

// CommissionRate holds one tier of the rate table. Exactly one of VendorID or
// Category is set for the scoped tiers; both are null for the default tier.
type CommissionRate struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Scope       enums.RateScope `gorm:"column:scope;type:text;not null"`
	VendorID    *uuid.UUID      `gorm:"column:vendor_id;type:uuid"`
	Category    *string         `gorm:"column:category;type:text"`
	Rate        decimal.Decimal `gorm:"column:rate;type:numeric(6,5);not null"`
	Active      bool            `gorm:"column:active;not null;default:true"`
	EffectiveAt time.Time       `gorm:"column:effective_at;not null;default:now()"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

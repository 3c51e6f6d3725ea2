package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	dbtypes "github.com/luisareyes-dev/tianguis-backend/pkg/db/types"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

// Dispute tracks a buyer complaint against an order, including the refund
// bookkeeping for refund-bearing resolutions.
type Dispute struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	OpenedBy         uuid.UUID             `gorm:"column:opened_by;type:uuid;not null"`
	OpenedByRole     enums.ActorRole       `gorm:"column:opened_by_role;type:text;not null"`
	Type             enums.DisputeType     `gorm:"column:type;type:text;not null"`
	Status           enums.DisputeStatus   `gorm:"column:status;type:text;not null;default:'open'"`
	Priority         enums.DisputePriority `gorm:"column:priority;type:text;not null;default:'medium'"`
	Reason           string                `gorm:"column:reason;type:text;not null"`
	Evidence         pq.StringArray        `gorm:"column:evidence;type:text[];default:ARRAY[]::text[]"`
	ItemIDs          dbtypes.UUIDArray     `gorm:"column:item_ids;type:uuid[]"`
	AssignedTo       *uuid.UUID            `gorm:"column:assigned_to;type:uuid"`
	Resolution       *enums.ResolutionType `gorm:"column:resolution;type:text"`
	ResolutionNotes  *string               `gorm:"column:resolution_notes;type:text"`
	RefundAmount     *int                  `gorm:"column:refund_amount_cents"`
	RefundStatus     enums.RefundStatus    `gorm:"column:refund_status;type:text;not null;default:'none'"`
	RefundID         *string               `gorm:"column:refund_id"`
	RefundAttemptKey *string               `gorm:"column:refund_attempt_key"`
	ResolvedAt       *time.Time            `gorm:"column:resolved_at"`
	ClosedAt         *time.Time            `gorm:"column:closed_at"`
	Messages         []DisputeMessage      `gorm:"foreignKey:DisputeID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

// DisputeMessage is one entry in a dispute's message thread. Internal
// messages are visible to admins only.
type DisputeMessage struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisputeID  uuid.UUID       `gorm:"column:dispute_id;type:uuid;not null;index"`
	SenderID   uuid.UUID       `gorm:"column:sender_id;type:uuid;not null"`
	SenderRole enums.ActorRole `gorm:"column:sender_role;type:text;not null"`
	Body       string          `gorm:"column:body;type:text;not null"`
	Internal   bool            `gorm:"column:internal;not null;default:false"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

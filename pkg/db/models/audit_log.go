package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

// AuditLog records who did what to which entity. Detail carries the
// action-specific payload as raw JSON.
type AuditLog struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Category   enums.AuditCategory `gorm:"column:category;type:text;not null;index"`
	Action     string              `gorm:"column:action;type:text;not null"`
	ActorID    uuid.UUID           `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole  enums.ActorRole     `gorm:"column:actor_role;type:text;not null"`
	EntityType string              `gorm:"column:entity_type;type:text;not null"`
	EntityID   uuid.UUID           `gorm:"column:entity_id;type:uuid;not null;index"`
	Detail     json.RawMessage     `gorm:"column:detail;type:jsonb"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
}

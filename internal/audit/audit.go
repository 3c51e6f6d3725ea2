package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	"github.com/luisareyes-dev/tianguis-backend/pkg/logger"
)

// Entry describes one auditable action.
type Entry struct {
	Category   enums.AuditCategory
	Action     string
	ActorID    uuid.UUID
	ActorRole  enums.ActorRole
	EntityType string
	EntityID   uuid.UUID
	Detail     any
}

// Recorder persists audit entries after the owning transaction commits.
// Recording is best-effort: failures are logged, never propagated, so an
// audit outage cannot fail a business operation.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

type recorder struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewRecorder builds an audit recorder bound to the main DB handle.
func NewRecorder(db *gorm.DB, logg *logger.Logger) (Recorder, error) {
	if db == nil {
		return nil, fmt.Errorf("audit db handle required")
	}
	if logg == nil {
		return nil, fmt.Errorf("audit logger required")
	}
	return &recorder{db: db, logg: logg}, nil
}

func (r *recorder) Record(ctx context.Context, entry Entry) {
	var detail json.RawMessage
	if entry.Detail != nil {
		encoded, err := json.Marshal(entry.Detail)
		if err != nil {
			r.logg.Error(ctx, "audit detail marshal failed", err)
		} else {
			detail = encoded
		}
	}

	row := models.AuditLog{
		ID:         uuid.New(),
		Category:   entry.Category,
		Action:     entry.Action,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Detail:     detail,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		fields := map[string]any{
			"audit_action": entry.Action,
			"entity_id":    entry.EntityID.String(),
		}
		r.logg.Error(r.logg.WithFields(ctx, fields), "audit write failed", err)
	}
}

// List returns audit rows for an entity, newest first.
func List(ctx context.Context, db *gorm.DB, entityID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.AuditLog
	err := db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

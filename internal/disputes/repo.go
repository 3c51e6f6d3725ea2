package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	"github.com/luisareyes-dev/tianguis-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a disputes repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateDispute(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *repository) FindDispute(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", disputeID).
		First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) UpdateDispute(ctx context.Context, disputeID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ?", disputeID).
		Updates(updates).Error
}

// UpdateDisputeWhereStatus applies updates only when the row is still in one
// of the allowed states. Zero affected rows means the state moved underneath
// the caller.
func (r *repository) UpdateDisputeWhereStatus(ctx context.Context, disputeID uuid.UUID, allowed []enums.DisputeStatus, updates map[string]any) (int64, error) {
	statuses := make([]string, 0, len(allowed))
	for _, s := range allowed {
		statuses = append(statuses, s.String())
	}
	result := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ? AND status IN ?", disputeID, statuses).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) CountActiveForOrder(ctx context.Context, orderID uuid.UUID, exclude uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("order_id = ? AND id <> ? AND status NOT IN ?", orderID, exclude,
			[]string{enums.DisputeStatusResolved.String(), enums.DisputeStatusClosed.String()}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CreateMessage(ctx context.Context, message *models.DisputeMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *repository) ListDisputes(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	query := r.db.WithContext(ctx).Model(&models.Dispute{})

	if filters.Status != nil {
		query = query.Where("disputes.status = ?", *filters.Status)
	}
	if filters.Priority != nil {
		query = query.Where("disputes.priority = ?", *filters.Priority)
	}
	if filters.OrderID != nil {
		query = query.Where("disputes.order_id = ?", *filters.OrderID)
	}
	if filters.AssignedTo != nil {
		query = query.Where("disputes.assigned_to = ?", *filters.AssignedTo)
	}
	if filters.OpenedBy != nil {
		query = query.Where("disputes.opened_by = ?", *filters.OpenedBy)
	}
	if filters.VendorID != nil {
		query = query.Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = disputes.order_id AND oi.vendor_id = ?)", *filters.VendorID)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(disputes.created_at, disputes.id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	var rows []models.Dispute
	err = query.
		Order("disputes.created_at DESC, disputes.id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > normalized {
		rows = rows[:normalized]
		// The cursor points at the last row returned; the keyset predicate is
		// strict, so the next page starts just past it.
		last := rows[normalized-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]Summary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, Summary{
			ID:           row.ID,
			OrderID:      row.OrderID,
			Type:         row.Type,
			Status:       row.Status,
			Priority:     row.Priority,
			Reason:       row.Reason,
			AssignedTo:   row.AssignedTo,
			RefundStatus: row.RefundStatus,
			CreatedAt:    row.CreatedAt,
		})
	}
	return &List{Disputes: summaries, NextCursor: nextCursor}, nil
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

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

package refunds

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a refunds repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindDispute(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).Where("id = ?", disputeID).First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
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

// BeginProcessing claims the refund for this attempt. The conditional WHERE
// is the concurrency guard: zero affected rows means another attempt already
// holds or finished the refund.
func (r *repository) BeginProcessing(ctx context.Context, disputeID uuid.UUID, attemptKey string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ? AND refund_status IN ?", disputeID,
			[]string{enums.RefundStatusNone.String(), enums.RefundStatusFailed.String()}).
		Updates(map[string]any{
			"refund_status":      enums.RefundStatusProcessing,
			"refund_attempt_key": attemptKey,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) UpdateDispute(ctx context.Context, disputeID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ?", disputeID).
		Updates(updates).Error
}

func (r *repository) ApplyOrderRefund(ctx context.Context, orderID uuid.UUID, amountCents int, fullyRefunded bool) error {
	updates := map[string]any{
		"refunded_cents": gorm.Expr("refunded_cents + ?", amountCents),
	}
	if fullyRefunded {
		updates["payment_status"] = enums.PaymentStatusRefunded
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

// ApplyCommissionReversal moves the reversed share from platform commission
// back into vendor earnings and records the running total of what came back.
func (r *repository) ApplyCommissionReversal(ctx context.Context, itemID uuid.UUID, amountCents int) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"commission_cents":          gorm.Expr("commission_cents - ?", amountCents),
			"vendor_earnings_cents":     gorm.Expr("vendor_earnings_cents + ?", amountCents),
			"commission_reversed_cents": gorm.Expr("commission_reversed_cents + ?", amountCents),
		}).Error
}

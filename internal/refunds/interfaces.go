package refunds

import (
	"context"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/square"
)

// Repository defines the persistence operations backing refund reconciliation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindDispute(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	BeginProcessing(ctx context.Context, disputeID uuid.UUID, attemptKey string) (int64, error)
	UpdateDispute(ctx context.Context, disputeID uuid.UUID, updates map[string]any) error
	ApplyOrderRefund(ctx context.Context, orderID uuid.UUID, amountCents int, fullyRefunded bool) error
	ApplyCommissionReversal(ctx context.Context, itemID uuid.UUID, amountCents int) error
}

// Gateway is the slice of the Square wrapper the refund flow needs.
type Gateway interface {
	RefundPayment(ctx context.Context, params square.RefundParams) (*sq.PaymentRefund, error)
	GetRefund(ctx context.Context, refundID string) (*sq.PaymentRefund, error)
	Currency() string
}

package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	"github.com/luisareyes-dev/tianguis-backend/pkg/pagination"
)

// Repository defines persistence operations for disputes and their threads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateDispute(ctx context.Context, dispute *models.Dispute) error
	FindDispute(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error)
	UpdateDispute(ctx context.Context, disputeID uuid.UUID, updates map[string]any) error
	UpdateDisputeWhereStatus(ctx context.Context, disputeID uuid.UUID, allowed []enums.DisputeStatus, updates map[string]any) (int64, error)
	CountActiveForOrder(ctx context.Context, orderID uuid.UUID, exclude uuid.UUID) (int64, error)
	CreateMessage(ctx context.Context, message *models.DisputeMessage) error
	ListDisputes(ctx context.Context, params pagination.Params, filters Filters) (*List, error)

	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}

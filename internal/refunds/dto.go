package refunds

import (
	"github.com/google/uuid"

	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

// ProcessInput starts the refund for a resolved dispute.
type ProcessInput struct {
	DisputeID uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// ConfirmInput re-checks a pending refund against the gateway.
type ConfirmInput struct {
	DisputeID uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// Result reports the terminal or interim outcome of a refund attempt.
type Result struct {
	DisputeID   uuid.UUID          `json:"dispute_id"`
	Status      enums.RefundStatus `json:"status"`
	RefundID    string             `json:"refund_id,omitempty"`
	AmountCents int                `json:"amount_cents"`
}

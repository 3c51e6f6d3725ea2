package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
	"github.com/luisareyes-dev/tianguis-backend/pkg/types"
)

// CreateItemInput is one line of a new order.
type CreateItemInput struct {
	ProductID      uuid.UUID
	VendorID       uuid.UUID
	ProductName    string
	Category       string
	Quantity       int
	UnitPriceCents int
	DiscountCents  int
}

// CreateInput captures everything needed to open an order ledger row.
type CreateInput struct {
	BuyerID          uuid.UUID
	Currency         string
	DeliveryFeeCents int
	ShippingAddress  *types.Address
	Notes            *string
	Items            []CreateItemInput
}

// MarkPaidInput records a successful payment against an order.
type MarkPaidInput struct {
	OrderID   uuid.UUID
	PaymentID string
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// CancelInput captures an admin-initiated pre-delivery cancellation.
type CancelInput struct {
	OrderID   uuid.UUID
	Reason    string
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// CompleteInput closes a delivered order once its dispute window has passed.
type CompleteInput struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// Filters describe the inputs supported by the order lists.
type Filters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// Summary exposes the aggregated fields returned in order lists.
type Summary struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   int64               `json:"order_number"`
	CreatedAt     time.Time           `json:"created_at"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TotalCents    int                 `json:"total_cents"`
	RefundedCents int                 `json:"refunded_cents"`
	TotalItems    int                 `json:"total_items"`
}

// List wraps the paginated orders plus the next page cursor.
type List struct {
	Orders     []Summary `json:"orders"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

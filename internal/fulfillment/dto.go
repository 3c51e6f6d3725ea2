package fulfillment

import (
	"github.com/google/uuid"

	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

// AdvanceItemInput moves one item to the next pipeline stage.
type AdvanceItemInput struct {
	OrderID   uuid.UUID
	ItemID    uuid.UUID
	Target    enums.ItemFulfillmentStatus
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// CourierInfo carries optional courier metadata captured when items are
// handed to a courier.
type CourierInfo struct {
	CourierName  string
	TrackingCode string
}

// VendorActionInput applies a bulk stage move to the actor's items in one order.
type VendorActionInput struct {
	OrderID   uuid.UUID
	VendorID  uuid.UUID
	Courier   CourierInfo
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

// OrderActionInput applies an order-wide stage move. Only valid for orders
// whose items all belong to a single vendor.
type OrderActionInput struct {
	OrderID   uuid.UUID
	Courier   CourierInfo
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
}

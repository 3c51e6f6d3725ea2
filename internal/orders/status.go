package orders

import (
	"github.com/google/uuid"

	"github.com/luisareyes-dev/tianguis-backend/pkg/db/models"
	"github.com/luisareyes-dev/tianguis-backend/pkg/enums"
)

// DeriveStatus recomputes the order-level status from its item pipeline.
// The mapping is monotone in the item ranks: the order only reports a stage
// once every item (delivered, packed) or at least one item (courier, packing)
// has reached it.
func DeriveStatus(items []models.OrderItem, paid bool) enums.OrderStatus {
	if !paid {
		return enums.OrderStatusPendingPayment
	}
	if len(items) == 0 {
		return enums.OrderStatusConfirmed
	}

	allDelivered := true
	allPacked := true
	anyHanded := false
	anyPacked := false
	for _, item := range items {
		if item.FulfillmentStatus != enums.ItemFulfillmentStatusDelivered {
			allDelivered = false
		}
		if !item.FulfillmentStatus.AtLeast(enums.ItemFulfillmentStatusPacked) {
			allPacked = false
		} else {
			anyPacked = true
		}
		if item.FulfillmentStatus.AtLeast(enums.ItemFulfillmentStatusHandedToCourier) {
			anyHanded = true
		}
	}

	switch {
	case allDelivered:
		return enums.OrderStatusDelivered
	case anyHanded:
		return enums.OrderStatusOutForDelivery
	case allPacked:
		return enums.OrderStatusReadyForPickup
	case anyPacked:
		return enums.OrderStatusPreparing
	default:
		return enums.OrderStatusConfirmed
	}
}

// VendorIDs returns the distinct vendors present on the order, in item order.
func VendorIDs(items []models.OrderItem) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	out := []uuid.UUID{}
	for _, item := range items {
		if _, ok := seen[item.VendorID]; ok {
			continue
		}
		seen[item.VendorID] = struct{}{}
		out = append(out, item.VendorID)
	}
	return out
}

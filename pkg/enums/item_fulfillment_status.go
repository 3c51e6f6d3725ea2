package enums

import "fmt"

// ItemFulfillmentStatus tracks a single order item's progress through the
// owning vendor's fulfillment pipeline.
type ItemFulfillmentStatus string

const (
	ItemFulfillmentStatusPending         ItemFulfillmentStatus = "pending"
	ItemFulfillmentStatusPacked          ItemFulfillmentStatus = "packed"
	ItemFulfillmentStatusHandedToCourier ItemFulfillmentStatus = "handed_to_courier"
	ItemFulfillmentStatusDelivered       ItemFulfillmentStatus = "delivered"
)

var validItemFulfillmentStatuses = []ItemFulfillmentStatus{
	ItemFulfillmentStatusPending,
	ItemFulfillmentStatusPacked,
	ItemFulfillmentStatusHandedToCourier,
	ItemFulfillmentStatusDelivered,
}

var itemFulfillmentRank = map[ItemFulfillmentStatus]int{
	ItemFulfillmentStatusPending:         0,
	ItemFulfillmentStatusPacked:          1,
	ItemFulfillmentStatusHandedToCourier: 2,
	ItemFulfillmentStatusDelivered:       3,
}

// String implements fmt.Stringer.
func (i ItemFulfillmentStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known ItemFulfillmentStatus.
func (i ItemFulfillmentStatus) IsValid() bool {
	for _, candidate := range validItemFulfillmentStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// AtLeast reports whether the status has reached the given stage.
func (i ItemFulfillmentStatus) AtLeast(other ItemFulfillmentStatus) bool {
	return itemFulfillmentRank[i] >= itemFulfillmentRank[other]
}

// Next returns the only legal successor state, or false for terminal states.
func (i ItemFulfillmentStatus) Next() (ItemFulfillmentStatus, bool) {
	switch i {
	case ItemFulfillmentStatusPending:
		return ItemFulfillmentStatusPacked, true
	case ItemFulfillmentStatusPacked:
		return ItemFulfillmentStatusHandedToCourier, true
	case ItemFulfillmentStatusHandedToCourier:
		return ItemFulfillmentStatusDelivered, true
	default:
		return "", false
	}
}

// ParseItemFulfillmentStatus converts raw input into an ItemFulfillmentStatus.
// The legacy spelling "shipped" is accepted at the boundary as an alias of
// handed_to_courier; only the canonical value exists inside the state machine.
func ParseItemFulfillmentStatus(value string) (ItemFulfillmentStatus, error) {
	if value == "shipped" {
		return ItemFulfillmentStatusHandedToCourier, nil
	}
	for _, candidate := range validItemFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item fulfillment status %q", value)
}

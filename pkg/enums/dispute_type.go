package enums

import "fmt"

// DisputeType categorizes what the buyer is disputing.
type DisputeType string

const (
	DisputeTypeRefund   DisputeType = "refund"
	DisputeTypeQuality  DisputeType = "quality"
	DisputeTypeDelivery DisputeType = "delivery"
	DisputeTypeFraud    DisputeType = "fraud"
	DisputeTypeOther    DisputeType = "other"
)

var validDisputeTypes = []DisputeType{
	DisputeTypeRefund,
	DisputeTypeQuality,
	DisputeTypeDelivery,
	DisputeTypeFraud,
	DisputeTypeOther,
}

// String implements fmt.Stringer.
func (d DisputeType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DisputeType.
func (d DisputeType) IsValid() bool {
	for _, candidate := range validDisputeTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeType converts raw input into a DisputeType.
func ParseDisputeType(value string) (DisputeType, error) {
	for _, candidate := range validDisputeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute type %q", value)
}

package enums

import "fmt"

// ResolutionType records how an admin settled a dispute.
type ResolutionType string

const (
	ResolutionTypeFullRefund    ResolutionType = "full_refund"
	ResolutionTypePartialRefund ResolutionType = "partial_refund"
	ResolutionTypeReplacement   ResolutionType = "replacement"
	ResolutionTypeNoAction      ResolutionType = "no_action"
	ResolutionTypeOther         ResolutionType = "other"
)

var validResolutionTypes = []ResolutionType{
	ResolutionTypeFullRefund,
	ResolutionTypePartialRefund,
	ResolutionTypeReplacement,
	ResolutionTypeNoAction,
	ResolutionTypeOther,
}

// String implements fmt.Stringer.
func (r ResolutionType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ResolutionType.
func (r ResolutionType) IsValid() bool {
	for _, candidate := range validResolutionTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// RequiresRefund reports whether the resolution triggers a gateway refund.
func (r ResolutionType) RequiresRefund() bool {
	return r == ResolutionTypeFullRefund || r == ResolutionTypePartialRefund
}

// ParseResolutionType converts raw input into a ResolutionType.
func ParseResolutionType(value string) (ResolutionType, error) {
	for _, candidate := range validResolutionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resolution type %q", value)
}

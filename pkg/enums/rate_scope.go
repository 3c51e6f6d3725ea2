package enums

import "fmt"

// RateScope distinguishes the three commission rate tiers.
type RateScope string

const (
	RateScopeDefault  RateScope = "default"
	RateScopeCategory RateScope = "category"
	RateScopeVendor   RateScope = "vendor"
)

var validRateScopes = []RateScope{
	RateScopeDefault,
	RateScopeCategory,
	RateScopeVendor,
}

// String implements fmt.Stringer.
func (r RateScope) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RateScope.
func (r RateScope) IsValid() bool {
	for _, candidate := range validRateScopes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRateScope converts raw input into a RateScope.
func ParseRateScope(value string) (RateScope, error) {
	for _, candidate := range validRateScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rate scope %q", value)
}

package enums

import "fmt"

// AuditCategory groups audit log rows by subsystem.
type AuditCategory string

const (
	AuditCategoryOrders     AuditCategory = "orders"
	AuditCategoryDisputes   AuditCategory = "disputes"
	AuditCategoryRefunds    AuditCategory = "refunds"
	AuditCategoryCommission AuditCategory = "commission"
)

var validAuditCategories = []AuditCategory{
	AuditCategoryOrders,
	AuditCategoryDisputes,
	AuditCategoryRefunds,
	AuditCategoryCommission,
}

// String implements fmt.Stringer.
func (a AuditCategory) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditCategory.
func (a AuditCategory) IsValid() bool {
	for _, candidate := range validAuditCategories {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditCategory converts raw input into an AuditCategory.
func ParseAuditCategory(value string) (AuditCategory, error) {
	for _, candidate := range validAuditCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit category %q", value)
}

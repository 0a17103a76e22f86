package enums

// DiscountType selects how a promo code's value is interpreted.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// IsValid reports whether the value is a known discount type.
func (t DiscountType) IsValid() bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeFixed:
		return true
	default:
		return false
	}
}

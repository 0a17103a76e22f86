package enums

// Currency is the ISO currency code attached to monetary amounts.
// The storefront operates in a single currency today.
type Currency string

const (
	CurrencyINR Currency = "INR"
)

// IsValid reports whether the value is a supported currency.
func (c Currency) IsValid() bool {
	return c == CurrencyINR
}

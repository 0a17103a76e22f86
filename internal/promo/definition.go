package promo

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/urbankart/storefront-backend/pkg/enums"
)

// Definition describes a promo code. Definitions are fixed at process start
// and never mutated at runtime.
type Definition struct {
	Code           string
	Description    string
	IsNewUserOnly  bool
	MinOrderAmount *decimal.Decimal
	DiscountType   enums.DiscountType
	DiscountValue  decimal.Decimal
}

// Registry resolves promo codes case-insensitively.
type Registry struct {
	codes map[string]Definition
}

// NewRegistry builds a registry from the given definitions.
func NewRegistry(defs []Definition) *Registry {
	codes := make(map[string]Definition, len(defs))
	for _, def := range defs {
		codes[normalizeCode(def.Code)] = def
	}
	return &Registry{codes: codes}
}

// DefaultRegistry returns the storefront's built-in promo codes.
func DefaultRegistry() *Registry {
	min1200 := decimal.NewFromInt(1200)
	return NewRegistry([]Definition{
		{
			Code:           "SAMV20",
			Description:    "Flat 200 off on orders above 1200",
			MinOrderAmount: &min1200,
			DiscountType:   enums.DiscountTypeFixed,
			DiscountValue:  decimal.NewFromInt(200),
		},
		{
			Code:          "FLATS",
			Description:   "5% off for new customers",
			IsNewUserOnly: true,
			DiscountType:  enums.DiscountTypePercentage,
			DiscountValue: decimal.NewFromInt(5),
		},
	})
}

// Lookup returns the definition for the code, if registered.
func (r *Registry) Lookup(code string) (Definition, bool) {
	def, ok := r.codes[normalizeCode(code)]
	return def, ok
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

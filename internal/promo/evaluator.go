package promo

import (
	"github.com/shopspring/decimal"

	"github.com/urbankart/storefront-backend/pkg/enums"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
)

// Result is the outcome of evaluating a promo code against a subtotal.
type Result struct {
	Valid    bool
	Code     string
	Discount decimal.Decimal
	Reason   pkgerrors.Reason
}

// Evaluator computes discounts from the static registry. It performs no I/O;
// given the same inputs it always returns the same result.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator builds an evaluator over the given registry.
func NewEvaluator(registry *Registry) *Evaluator {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Evaluator{registry: registry}
}

// Evaluate validates eligibility and computes the discount for the code.
// Eligibility only: redemption history is the materializer's concern.
func (e *Evaluator) Evaluate(code string, subtotal decimal.Decimal, isNewUser bool) Result {
	def, ok := e.registry.Lookup(code)
	if !ok {
		return Result{Reason: pkgerrors.ReasonUnknownCode}
	}
	if def.IsNewUserOnly && !isNewUser {
		return Result{Code: def.Code, Reason: pkgerrors.ReasonNotEligible}
	}
	if def.MinOrderAmount != nil && subtotal.LessThan(*def.MinOrderAmount) {
		return Result{Code: def.Code, Reason: pkgerrors.ReasonBelowMinimum}
	}

	discount := computeDiscount(def, subtotal)
	return Result{Valid: true, Code: def.Code, Discount: discount}
}

// computeDiscount never exceeds the subtotal, so totals stay non-negative.
func computeDiscount(def Definition, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch def.DiscountType {
	case enums.DiscountTypePercentage:
		discount = subtotal.Mul(def.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
	case enums.DiscountTypeFixed:
		discount = def.DiscountValue
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount
}

// ErrorFor translates an invalid result into a coded error for the API
// boundary. Valid results return nil.
func ErrorFor(result Result) error {
	if result.Valid {
		return nil
	}
	switch result.Reason {
	case pkgerrors.ReasonUnknownCode:
		return pkgerrors.New(pkgerrors.CodeValidation, "promo code not recognized").
			WithReason(pkgerrors.ReasonUnknownCode)
	case pkgerrors.ReasonNotEligible:
		return pkgerrors.New(pkgerrors.CodeValidation, "promo code is limited to new customers").
			WithReason(pkgerrors.ReasonNotEligible)
	case pkgerrors.ReasonBelowMinimum:
		return pkgerrors.New(pkgerrors.CodeValidation, "order does not meet the promo minimum").
			WithReason(pkgerrors.ReasonBelowMinimum)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "promo code cannot be applied")
	}
}

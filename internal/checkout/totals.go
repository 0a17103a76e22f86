package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/urbankart/storefront-backend/internal/cart"
	"github.com/urbankart/storefront-backend/internal/promo"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
)

// Policy holds the storefront pricing knobs. Values come from config with
// the defaults of 100 flat shipping and free shipping from 1000 up.
type Policy struct {
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

// Totals is the authoritative money breakdown for a checkout.
type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	PromoCode *string         `json:"promoCode,omitempty"`
}

// Calculator derives order totals from a priced cart snapshot.
type Calculator struct {
	evaluator *promo.Evaluator
	policy    Policy
}

// NewCalculator builds a totals calculator.
func NewCalculator(evaluator *promo.Evaluator, policy Policy) *Calculator {
	if evaluator == nil {
		evaluator = promo.NewEvaluator(nil)
	}
	return &Calculator{evaluator: evaluator, policy: policy}
}

// ComputeTotals prices the snapshot. An empty snapshot fails: the cart may
// have been cleared by a concurrent request between page load and submit.
// An invalid promo code fails with its specific reason, never silently
// ignored.
func (c *Calculator) ComputeTotals(snapshot cart.Snapshot, promoCode *string, isNewUser bool) (Totals, error) {
	if snapshot.IsEmpty() {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty").
			WithReason(pkgerrors.ReasonEmptyCart)
	}

	subtotal := snapshot.Subtotal
	shipping := c.policy.ShippingFee
	if subtotal.GreaterThanOrEqual(c.policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	totals := Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Discount: decimal.Zero,
	}

	if promoCode != nil && *promoCode != "" {
		result := c.evaluator.Evaluate(*promoCode, subtotal, isNewUser)
		if err := promo.ErrorFor(result); err != nil {
			return Totals{}, err
		}
		totals.Discount = result.Discount
		code := result.Code
		totals.PromoCode = &code
	}

	totals.Total = subtotal.Add(shipping).Sub(totals.Discount)
	return totals, nil
}

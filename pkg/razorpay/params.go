package razorpay

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/urbankart/storefront-backend/pkg/enums"
)

// OrderCreateParams carries the inputs for a payment session. Amount is in
// major currency units and must already be rounded to two decimal places.
type OrderCreateParams struct {
	Amount   decimal.Decimal
	Currency enums.Currency
	Receipt  string
	Notes    map[string]string
}

type orderCreateBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

func (p OrderCreateParams) requestBody() (*orderCreateBody, error) {
	if !p.Currency.IsValid() {
		return nil, fmt.Errorf("unsupported currency %q", p.Currency)
	}
	paise, err := ToMinorUnits(p.Amount)
	if err != nil {
		return nil, err
	}
	if paise <= 0 {
		return nil, fmt.Errorf("order amount must be positive, got %s", p.Amount)
	}
	return &orderCreateBody{
		Amount:   paise,
		Currency: string(p.Currency),
		Receipt:  strings.TrimSpace(p.Receipt),
		Notes:    p.Notes,
	}, nil
}

// ToMinorUnits converts a major-unit amount into paise. The conversion must
// be exact: amounts carrying sub-paise precision are a bug upstream.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-paise precision", amount)
	}
	return shifted.IntPart(), nil
}

package enums

// PaymentStatus tracks the money side of an order independently of fulfillment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// IsValid reports whether the value is a known payment status.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// PaymentMethod selects how an order is settled.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

// IsValid reports whether the value is a known payment method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodOnline:
		return true
	default:
		return false
	}
}

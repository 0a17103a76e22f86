package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/urbankart/storefront-backend/pkg/enums"
)

// OrderCreatedEvent signals a checkout that materialized into an order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.OrderStatus   `json:"status"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Discount      decimal.Decimal     `json:"discount"`
	ShippingFee   decimal.Decimal     `json:"shipping_fee"`
	Total         decimal.Decimal     `json:"total"`
	Currency      string              `json:"currency"`
	PromoCode     *string             `json:"promo_code,omitempty"`
	ItemCount     int                 `json:"item_count"`
}

// OrderPaidEvent is emitted once a verified online payment lands.
type OrderPaidEvent struct {
	OrderID           uuid.UUID       `json:"order_id"`
	UserID            uuid.UUID       `json:"user_id"`
	RazorpayOrderID   string          `json:"razorpay_order_id"`
	RazorpayPaymentID string          `json:"razorpay_payment_id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	PaidAt            time.Time       `json:"paid_at"`
}

// OrderCancelledEvent is emitted whenever a buyer or admin cancels a pre-shipment order.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderExpiredEvent describes the payload when a pending online order times out
// without payment.
type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"orderId"`
	UserID    uuid.UUID `json:"userId"`
	ExpiredAt time.Time `json:"expiredAt"`
	TTLHours  *int      `json:"ttl_hours,omitempty"`
}

// OrderReturnRequestedEvent signals a delivered order entering the return flow.
type OrderReturnRequestedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderReturnedEvent is emitted when admin accepts the return and the refund is owed.
type OrderReturnedEvent struct {
	OrderID      uuid.UUID       `json:"order_id"`
	UserID       uuid.UUID       `json:"user_id"`
	ReturnedAt   time.Time       `json:"returned_at"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Currency     string          `json:"currency"`
}

// OrderStatusChangedEvent mirrors every fulfillment transition for downstream consumers.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"orderId"`
	UserID    uuid.UUID         `json:"userId"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ChangedAt time.Time         `json:"changedAt"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/urbankart/storefront-backend/pkg/enums"
	"github.com/urbankart/storefront-backend/pkg/types"
)

// Order is the materialized checkout result. Monetary columns are stored in
// major currency units; the payment session bridge converts to paise.
type Order struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index:orders_user_id_idx"`
	Status            enums.OrderStatus     `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentMethod     enums.PaymentMethod   `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentStatus     enums.PaymentStatus   `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	Currency          enums.Currency        `gorm:"column:currency;type:text;not null;default:'INR'"`
	Subtotal          decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount          decimal.Decimal       `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	ShippingFee       decimal.Decimal       `gorm:"column:shipping_fee;type:numeric(12,2);not null;default:0"`
	Total             decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	PromoCode         *string               `gorm:"column:promo_code"`
	ShippingAddress   types.AddressSnapshot `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	RazorpayOrderID   *string               `gorm:"column:razorpay_order_id;uniqueIndex:ux_orders_razorpay_order_id"`
	RazorpayPaymentID *string               `gorm:"column:razorpay_payment_id"`
	IdempotencyKey    *string               `gorm:"column:idempotency_key;uniqueIndex:ux_orders_idempotency_key"`
	Items             []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaidAt            *time.Time            `gorm:"column:paid_at"`
	DeliveredAt       *time.Time            `gorm:"column:delivered_at"`
	CancelledAt       *time.Time            `gorm:"column:cancelled_at"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// AwaitingOnlinePayment reports whether the order is still parked on an
// unfinished online payment session.
func (o Order) AwaitingOnlinePayment() bool {
	return o.PaymentMethod == enums.PaymentMethodOnline &&
		o.Status == enums.OrderStatusPending &&
		o.PaymentStatus == enums.PaymentStatusPending
}

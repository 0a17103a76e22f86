package enums

// OrderStatus tracks an order through its fulfillment lifecycle.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusConfirmed       OrderStatus = "confirmed"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusReturnRequested OrderStatus = "return_requested"
	OrderStatusReturned        OrderStatus = "returned"
)

// IsValid reports whether the value is a known order status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusReturnRequested,
		OrderStatusReturned:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusReturned:
		return true
	default:
		return false
	}
}

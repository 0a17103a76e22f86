package orders

import (
	"time"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/enums"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
)

// DefaultReturnWindow is how long after the last order update a delivered
// order can still be sent back.
const DefaultReturnWindow = 30 * 24 * time.Hour

// transitions is the single allow-list every mutating path consults,
// admin included.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:         {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:       {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing:      {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:         {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered:       {enums.OrderStatusReturnRequested},
	enums.OrderStatusReturnRequested: {enums.OrderStatusReturned},
}

// CanTransition reports whether the edge exists in the lifecycle table. It
// ignores time-based preconditions; GuardTransition applies those.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GuardTransition validates the requested edge against the lifecycle table
// and its preconditions. A nil return means the transition may proceed.
func GuardTransition(order *models.Order, to enums.OrderStatus, now time.Time, returnWindow time.Duration) error {
	if returnWindow <= 0 {
		returnWindow = DefaultReturnWindow
	}
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": to})
	}
	if !CanTransition(order.Status, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
			WithReason(pkgerrors.ReasonInvalidTransition).
			WithDetails(map[string]any{
				"orderId": order.ID,
				"from":    order.Status,
				"to":      to,
			})
	}
	if order.Status == enums.OrderStatusDelivered && to == enums.OrderStatusReturnRequested {
		if now.Sub(order.UpdatedAt) > returnWindow {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return window has expired").
				WithReason(pkgerrors.ReasonReturnWindowExpired).
				WithDetails(map[string]any{
					"orderId":       order.ID,
					"lastUpdatedAt": order.UpdatedAt,
				})
		}
	}
	return nil
}

package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/enums"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/outbox"
	"github.com/urbankart/storefront-backend/pkg/outbox/payloads"
	"github.com/urbankart/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies who is driving a transition, for event attribution.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Service walks orders through the lifecycle table and records the side
// effects each edge demands.
type Service struct {
	tx           txRunner
	repo         Repository
	outbox       outboxPublisher
	returnWindow time.Duration
	now          func() time.Time
}

// NewService builds the orders service.
func NewService(tx txRunner, repo Repository, publisher outboxPublisher, returnWindow time.Duration) (*Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if returnWindow <= 0 {
		returnWindow = DefaultReturnWindow
	}
	return &Service{tx: tx, repo: repo, outbox: publisher, returnWindow: returnWindow, now: time.Now}, nil
}

// ListForUser returns one page of the user's own orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	return s.repo.ListByUser(ctx, userID, params, filters)
}

// GetForUser returns one of the user's orders with its items.
func (s *Service) GetForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// ListAll returns one page across all users. Admin surface.
func (s *Service) ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	return s.repo.ListAll(ctx, params, filters)
}

// Get returns any order by id. Admin surface.
func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// Cancel moves one of the user's own orders to CANCELLED and returns its
// stock. Permitted while the order has not shipped.
func (s *Service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, enums.OrderStatusCancelled, "cancelled by customer", true)
}

// RequestReturn moves a delivered order to RETURN_REQUESTED while the return
// window is still open.
func (s *Service) RequestReturn(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, enums.OrderStatusReturnRequested, "return requested by customer", true)
}

// Transition applies an admin-driven lifecycle edge. The same table guards
// it; admins get no bypass.
func (s *Service) Transition(ctx context.Context, actor Actor, orderID uuid.UUID, to enums.OrderStatus) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, to, "", false)
}

func (s *Service) transition(ctx context.Context, actor Actor, orderID uuid.UUID, to enums.OrderStatus, reason string, ownedOnly bool) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		if ownedOnly {
			order, err = repo.FindByIDForUser(ctx, orderID, actor.UserID)
		} else {
			order, err = repo.FindByID(ctx, orderID)
		}
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		now := s.now().UTC()
		if err := GuardTransition(order, to, now, s.returnWindow); err != nil {
			return err
		}

		from := order.Status
		order.Status = to
		switch to {
		case enums.OrderStatusCancelled:
			order.CancelledAt = &now
			for _, item := range order.Items {
				if err := repo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		case enums.OrderStatusDelivered:
			order.DeliveredAt = &now
		case enums.OrderStatusReturned:
			for _, item := range order.Items {
				if err := repo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		if _, err := repo.UpdateOrder(ctx, order); err != nil {
			return err
		}

		actorRef := &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
		if err := s.emitEdgeEvent(ctx, tx, order, from, now, reason, actorRef); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:   order.ID,
				UserID:    order.UserID,
				From:      from,
				To:        to,
				ChangedAt: now,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// emitEdgeEvent records the edge-specific event for terminal and return
// transitions. Fulfillment progression only carries order.status_changed.
func (s *Service) emitEdgeEvent(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus, now time.Time, reason string, actor *outbox.ActorRef) error {
	switch order.Status {
	case enums.OrderStatusCancelled:
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				CancelledAt: now,
				Reason:      reason,
			},
			Version: 1,
		})
	case enums.OrderStatusReturnRequested:
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderReturnRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderReturnRequestedEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				RequestedAt: now,
				Reason:      reason,
			},
			Version: 1,
		})
	case enums.OrderStatusReturned:
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderReturned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: payloads.OrderReturnedEvent{
				OrderID:      order.ID,
				UserID:       order.UserID,
				ReturnedAt:   now,
				RefundAmount: order.Total,
				Currency:     string(order.Currency),
			},
			Version: 1,
		})
	default:
		return nil
	}
}

// ExpirePendingOnline cancels online orders that have sat unpaid past the
// cutoff. It returns how many orders were reaped. Each order settles in its
// own transaction so one failure does not poison the batch.
func (s *Service) ExpirePendingOnline(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	cutoff := s.now().UTC().Add(-ttl)
	stale, err := s.repo.FindPendingOnlineBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for i := range stale {
		if err := s.expireOne(ctx, &stale[i], ttl); err != nil {
			return reaped, err
		}
		reaped++
	}
	return reaped, nil
}

func (s *Service) expireOne(ctx context.Context, candidate *models.Order, ttl time.Duration) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Re-read inside the tx; the payment may have landed since the scan.
		order, err := repo.FindByID(ctx, candidate.ID)
		if err != nil {
			return err
		}
		if order == nil || !order.AwaitingOnlinePayment() {
			return nil
		}

		now := s.now().UTC()
		if err := GuardTransition(order, enums.OrderStatusCancelled, now, s.returnWindow); err != nil {
			return err
		}
		order.Status = enums.OrderStatusCancelled
		order.PaymentStatus = enums.PaymentStatusFailed
		order.CancelledAt = &now
		for _, item := range order.Items {
			if err := repo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if _, err := repo.UpdateOrder(ctx, order); err != nil {
			return err
		}

		ttlHours := int(ttl.Hours())
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderExpiredEvent{
				OrderID:   order.ID,
				UserID:    order.UserID,
				ExpiredAt: now,
				TTLHours:  &ttlHours,
			},
			Version: 1,
		})
	})
}

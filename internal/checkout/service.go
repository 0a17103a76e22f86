package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/internal/cart"
	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/enums"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/outbox"
	"github.com/urbankart/storefront-backend/pkg/outbox/payloads"
	"github.com/urbankart/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type addressLoader interface {
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error)
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateOrderInput captures the client-controlled parts of a checkout.
// Amounts are never part of it; totals are recomputed server-side.
type CreateOrderInput struct {
	AddressID      uuid.UUID
	PaymentMethod  enums.PaymentMethod
	PromoCode      *string
	IdempotencyKey *string
}

// Service materializes orders from cart snapshots.
type Service struct {
	tx            txRunner
	repo          Repository
	cartRepo      cart.CartRepository
	users         userLoader
	addresses     addressLoader
	calculator    *Calculator
	outbox        outboxPublisher
	newUserWindow time.Duration
	now           func() time.Time
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	repo Repository,
	cartRepo cart.CartRepository,
	users userLoader,
	addresses addressLoader,
	calculator *Calculator,
	publisher outboxPublisher,
	newUserWindow time.Duration,
) (*Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address loader required")
	}
	if calculator == nil {
		return nil, fmt.Errorf("totals calculator required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if newUserWindow <= 0 {
		return nil, fmt.Errorf("new user window must be positive")
	}
	return &Service{
		tx:            tx,
		repo:          repo,
		cartRepo:      cartRepo,
		users:         users,
		addresses:     addresses,
		calculator:    calculator,
		outbox:        publisher,
		newUserWindow: newUserWindow,
		now:           time.Now,
	}, nil
}

// Quote prices the user's current cart with an optional promo code without
// touching durable state. Promo validate and the checkout preview share it.
func (s *Service) Quote(ctx context.Context, userID uuid.UUID, promoCode *string) (Totals, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return Totals{}, err
	}
	snapshot, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return Totals{}, err
	}
	isNewUser := user.RegisteredWithin(s.newUserWindow, s.now())
	return s.calculator.ComputeTotals(snapshot, promoCode, isNewUser)
}

// CreateOrder materializes the user's cart into an order. Header, items,
// promo usage, and stock movement commit or roll back as one unit. A supplied
// idempotency key re-targets the user's unfinished online draft instead of
// creating a second order.
func (s *Service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*models.Order, error) {
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method must be cod or online")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	address, err := s.addresses.FindByIDForUser(ctx, input.AddressID, userID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}

	snapshot, err := s.loadSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	isNewUser := user.RegisteredWithin(s.newUserWindow, s.now())
	totals, err := s.calculator.ComputeTotals(snapshot, input.PromoCode, isNewUser)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		draft, err := s.resolveDraft(ctx, repo, userID, input.IdempotencyKey)
		if err != nil {
			return err
		}

		// The draft's earlier stock hold is released before re-taking stock
		// for the fresh snapshot, so retried checkouts never double-count.
		var draftPromo *string
		if draft != nil {
			draftPromo = draft.PromoCode
			for _, item := range draft.Items {
				if err := repo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		// A retry that drops or swaps the draft's promo must release the
		// usage the first pass consumed, or the old code stays burned by an
		// order that no longer applies it.
		if draft != nil && draftPromo != nil {
			kept := totals.PromoCode != nil && *totals.PromoCode == *draftPromo && totals.Discount.IsPositive()
			if !kept {
				if err := repo.DeletePromoUsage(ctx, userID, draft.ID, *draftPromo); err != nil {
					return err
				}
			}
		}
		for _, line := range snapshot.Lines {
			if err := repo.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		order, err = s.writeOrder(ctx, repo, draft, userID, address, snapshot, totals, input)
		if err != nil {
			return err
		}

		if totals.PromoCode != nil && totals.Discount.IsPositive() {
			if err := s.recordPromoUsage(ctx, repo, draftPromo, userID, order.ID, *totals.PromoCode); err != nil {
				return err
			}
		}

		if input.PaymentMethod == enums.PaymentMethodCOD {
			if err := cartRepo.Clear(ctx, userID); err != nil {
				return err
			}
		}

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(user.Role)},
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				UserID:        userID,
				PaymentMethod: order.PaymentMethod,
				Status:        order.Status,
				Subtotal:      order.Subtotal,
				Discount:      order.Discount,
				ShippingFee:   order.ShippingFee,
				Total:         order.Total,
				Currency:      string(order.Currency),
				PromoCode:     order.PromoCode,
				ItemCount:     len(order.Items),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) resolveDraft(ctx context.Context, repo Repository, userID uuid.UUID, key *string) (*models.Order, error) {
	if key == nil || *key == "" {
		return nil, nil
	}
	draft, err := repo.FindOrderByIdempotencyKey(ctx, userID, *key)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, nil
	}
	if !draft.AwaitingOnlinePayment() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already finalized").
			WithDetails(map[string]any{"orderId": draft.ID})
	}
	return draft, nil
}

func (s *Service) writeOrder(
	ctx context.Context,
	repo Repository,
	draft *models.Order,
	userID uuid.UUID,
	address *models.Address,
	snapshot cart.Snapshot,
	totals Totals,
	input CreateOrderInput,
) (*models.Order, error) {
	status := enums.OrderStatusPending
	if input.PaymentMethod == enums.PaymentMethodCOD {
		status = enums.OrderStatusConfirmed
	}

	items := make([]models.OrderItem, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		items = append(items, models.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			LineTotal:   line.LineTotal,
		})
	}

	if draft == nil {
		order := &models.Order{
			UserID:          userID,
			Status:          status,
			PaymentMethod:   input.PaymentMethod,
			PaymentStatus:   enums.PaymentStatusPending,
			Currency:        enums.CurrencyINR,
			Subtotal:        totals.Subtotal,
			Discount:        totals.Discount,
			ShippingFee:     totals.Shipping,
			Total:           totals.Total,
			PromoCode:       totals.PromoCode,
			ShippingAddress: snapshotAddress(address),
			IdempotencyKey:  input.IdempotencyKey,
			Items:           items,
		}
		return repo.CreateOrder(ctx, order)
	}

	draft.Status = status
	draft.PaymentMethod = input.PaymentMethod
	draft.PaymentStatus = enums.PaymentStatusPending
	draft.Subtotal = totals.Subtotal
	draft.Discount = totals.Discount
	draft.ShippingFee = totals.Shipping
	draft.Total = totals.Total
	draft.PromoCode = totals.PromoCode
	draft.ShippingAddress = snapshotAddress(address)
	if _, err := repo.UpdateOrder(ctx, draft); err != nil {
		return nil, err
	}
	if err := repo.ReplaceOrderItems(ctx, draft.ID, items); err != nil {
		return nil, err
	}
	draft.Items = items
	return draft, nil
}

func (s *Service) recordPromoUsage(ctx context.Context, repo Repository, draftPromo *string, userID, orderID uuid.UUID, code string) error {
	// The draft already consumed this code on its first pass.
	if draftPromo != nil && *draftPromo == code {
		return nil
	}
	return repo.InsertPromoUsage(ctx, &models.PromoCodeUsage{
		UserID:  userID,
		Code:    code,
		OrderID: orderID,
	})
}

func (s *Service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
	}
	return user, nil
}

func (s *Service) loadSnapshot(ctx context.Context, userID uuid.UUID) (cart.Snapshot, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return cart.Snapshot{}, err
	}
	return cart.BuildSnapshot(items)
}

func snapshotAddress(address *models.Address) types.AddressSnapshot {
	return types.AddressSnapshot{
		Name:       address.Name,
		Phone:      address.Phone,
		Line1:      address.Line1,
		Line2:      address.Line2,
		City:       address.City,
		State:      address.State,
		PostalCode: address.PostalCode,
	}
}

package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/internal/cart"
	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/enums"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/outbox"
	"github.com/urbankart/storefront-backend/pkg/outbox/payloads"
	"github.com/urbankart/storefront-backend/pkg/razorpay"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentGateway interface {
	CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	KeyID() string
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Session carries everything the client SDK needs to collect a payment.
type Session struct {
	OrderID         uuid.UUID `json:"orderId"`
	RazorpayOrderID string    `json:"razorpayOrderId"`
	AmountPaise     int64     `json:"amountPaise"`
	Currency        string    `json:"currency"`
	KeyID           string    `json:"keyId"`
}

// VerifyInput is the callback payload the client posts after the gateway
// checkout completes.
type VerifyInput struct {
	OrderID           uuid.UUID
	RazorpayOrderID   string
	RazorpayPaymentID string
	Signature         string
}

// Service bridges pending online orders to the payment gateway and settles
// them when the signed callback arrives.
type Service struct {
	tx       txRunner
	repo     Repository
	cartRepo cart.CartRepository
	gateway  paymentGateway
	outbox   outboxPublisher
	now      func() time.Time
}

// NewService builds the payment service.
func NewService(
	tx txRunner,
	repo Repository,
	cartRepo cart.CartRepository,
	gateway paymentGateway,
	publisher outboxPublisher,
) (*Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Service{
		tx:       tx,
		repo:     repo,
		cartRepo: cartRepo,
		gateway:  gateway,
		outbox:   publisher,
		now:      time.Now,
	}, nil
}

// CreateSession opens a gateway order for a pending online order. Each call
// mints a fresh receipt, so a stalled session can be retried; the latest
// gateway order supersedes any earlier one. A gateway failure leaves the
// order untouched and pending.
func (s *Service) CreateSession(ctx context.Context, userID, orderID uuid.UUID) (*Session, error) {
	order, err := s.loadOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if !order.AwaitingOnlinePayment() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting online payment").
			WithDetails(map[string]any{"orderId": order.ID, "status": order.Status})
	}

	gatewayOrder, err := s.gateway.CreateOrder(ctx, razorpay.OrderCreateParams{
		Amount:   order.Total,
		Currency: order.Currency,
		Receipt:  s.receiptFor(order.ID),
		Notes: map[string]string{
			"order_id": order.ID.String(),
			"user_id":  userID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	order.RazorpayOrderID = &gatewayOrder.ID
	if _, err := s.repo.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	return &Session{
		OrderID:         order.ID,
		RazorpayOrderID: gatewayOrder.ID,
		AmountPaise:     gatewayOrder.AmountPaise,
		Currency:        gatewayOrder.Currency,
		KeyID:           s.gateway.KeyID(),
	}, nil
}

// VerifyPayment settles a pending online order from the gateway callback.
// The signature is checked before any state changes; a replayed callback for
// an already settled order is a no-op.
func (s *Service) VerifyPayment(ctx context.Context, userID uuid.UUID, input VerifyInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.RazorpayOrderID == "" || input.RazorpayPaymentID == "" || input.Signature == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment verification fields required")
	}

	order, err := s.loadOrder(ctx, input.OrderID, userID)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus == enums.PaymentStatusPaid {
		return order, nil
	}
	if order.RazorpayOrderID == nil || *order.RazorpayOrderID != input.RazorpayOrderID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment session does not match order").
			WithDetails(map[string]any{"orderId": order.ID})
	}
	if !order.AwaitingOnlinePayment() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting online payment").
			WithDetails(map[string]any{"orderId": order.ID, "status": order.Status})
	}

	if !s.gateway.VerifyPaymentSignature(input.RazorpayOrderID, input.RazorpayPaymentID, input.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment signature verification failed").
			WithReason(pkgerrors.ReasonSignatureInvalid).
			WithDetails(map[string]any{"orderId": order.ID})
	}

	paidAt := s.now().UTC()
	var settled *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Re-read inside the tx; the reaper may have cancelled the order
		// since the pre-checks ran.
		order, err := repo.FindOrderForUser(ctx, input.OrderID, userID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			settled = order
			return nil
		}
		if !order.AwaitingOnlinePayment() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting online payment").
				WithDetails(map[string]any{"orderId": order.ID, "status": order.Status})
		}

		order.PaymentStatus = enums.PaymentStatusPaid
		order.Status = enums.OrderStatusConfirmed
		order.RazorpayPaymentID = &input.RazorpayPaymentID
		order.PaidAt = &paidAt
		if _, err := repo.UpdateOrder(ctx, order); err != nil {
			return err
		}
		settled = order

		if err := s.cartRepo.WithTx(tx).Clear(ctx, userID); err != nil {
			return err
		}

		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.OrderPaidEvent{
				OrderID:           order.ID,
				UserID:            userID,
				RazorpayOrderID:   input.RazorpayOrderID,
				RazorpayPaymentID: input.RazorpayPaymentID,
				Amount:            order.Total,
				Currency:          string(order.Currency),
				PaidAt:            paidAt,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return settled, nil
}

func (s *Service) loadOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// receiptFor builds a receipt unique per attempt. Razorpay caps receipts at
// 40 characters, so the order id is truncated.
func (s *Service) receiptFor(orderID uuid.UUID) string {
	short := strings.ReplaceAll(orderID.String(), "-", "")[:12]
	return fmt.Sprintf("uk_%s_%d", short, s.now().UnixNano()%1_000_000_000)
}

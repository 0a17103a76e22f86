package payments

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/internal/cart"
	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/enums"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/outbox"
	"github.com/urbankart/storefront-backend/pkg/razorpay"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// hookTxRunner runs a hook before the tx body, standing in for writes
// committed by another worker between the pre-checks and the transaction.
type hookTxRunner struct {
	before func()
}

func (h hookTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if h.before != nil {
		h.before()
	}
	return fn(nil)
}

type stubPaymentsRepo struct {
	order   *models.Order
	updated []*models.Order
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPaymentsRepo) FindOrderForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID || s.order.UserID != userID {
		return nil, nil
	}
	return s.order, nil
}

func (s *stubPaymentsRepo) UpdateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.updated = append(s.updated, order)
	return order, nil
}

type stubGateway struct {
	createFn func(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.Order, error)
	verifyFn func(orderID, paymentID, signature string) bool

	createParams []razorpay.OrderCreateParams
}

func (s *stubGateway) CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.Order, error) {
	s.createParams = append(s.createParams, params)
	if s.createFn != nil {
		return s.createFn(ctx, params)
	}
	return &razorpay.Order{
		ID:          "order_RZP123",
		AmountPaise: 130000,
		Currency:    "INR",
		Status:      "created",
	}, nil
}

func (s *stubGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	if s.verifyFn != nil {
		return s.verifyFn(orderID, paymentID, signature)
	}
	return true
}

func (s *stubGateway) KeyID() string { return "rzp_test_key" }

type stubCartRepo struct {
	cleared bool
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) cart.CartRepository { return s }

func (s *stubCartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return nil, nil
}

func (s *stubCartRepo) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error) {
	return nil, nil
}

func (s *stubCartRepo) Upsert(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	return item, nil
}

func (s *stubCartRepo) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	return nil
}

func (s *stubCartRepo) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return nil
}

func (s *stubCartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	s.cleared = true
	return nil
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func pendingOnlineOrder(userID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		Status:        enums.OrderStatusPending,
		PaymentMethod: enums.PaymentMethodOnline,
		PaymentStatus: enums.PaymentStatusPending,
		Currency:      enums.CurrencyINR,
		Total:         decimal.NewFromInt(1300),
	}
}

type paymentsFixture struct {
	service  *Service
	repo     *stubPaymentsRepo
	gateway  *stubGateway
	cartRepo *stubCartRepo
	outbox   *stubOutbox
	userID   uuid.UUID
}

func newPaymentsFixture(t *testing.T, order *models.Order) *paymentsFixture {
	t.Helper()
	repo := &stubPaymentsRepo{order: order}
	gateway := &stubGateway{}
	cartRepo := &stubCartRepo{}
	pub := &stubOutbox{}
	svc, err := NewService(stubTxRunner{}, repo, cartRepo, gateway, pub)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	userID := uuid.Nil
	if order != nil {
		userID = order.UserID
	}
	return &paymentsFixture{
		service:  svc,
		repo:     repo,
		gateway:  gateway,
		cartRepo: cartRepo,
		outbox:   pub,
		userID:   userID,
	}
}

func TestCreateSessionOpensGatewayOrder(t *testing.T) {
	order := pendingOnlineOrder(uuid.New())
	fx := newPaymentsFixture(t, order)

	session, err := fx.service.CreateSession(context.Background(), fx.userID, order.ID)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.RazorpayOrderID != "order_RZP123" {
		t.Fatalf("unexpected gateway order id %q", session.RazorpayOrderID)
	}
	if session.AmountPaise != 130000 || session.Currency != "INR" {
		t.Fatalf("unexpected session amount: %+v", session)
	}
	if session.KeyID != "rzp_test_key" {
		t.Fatalf("unexpected key id %q", session.KeyID)
	}
	if order.RazorpayOrderID == nil || *order.RazorpayOrderID != "order_RZP123" {
		t.Fatal("expected gateway order id persisted on the order")
	}
	if len(fx.repo.updated) != 1 {
		t.Fatalf("expected one order update, got %d", len(fx.repo.updated))
	}
}

func TestCreateSessionFreshReceiptPerAttempt(t *testing.T) {
	order := pendingOnlineOrder(uuid.New())
	fx := newPaymentsFixture(t, order)

	if _, err := fx.service.CreateSession(context.Background(), fx.userID, order.ID); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	// Still pending, retry opens a superseding session.
	if _, err := fx.service.CreateSession(context.Background(), fx.userID, order.ID); err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if len(fx.gateway.createParams) != 2 {
		t.Fatalf("expected two gateway orders, got %d", len(fx.gateway.createParams))
	}
	first, second := fx.gateway.createParams[0].Receipt, fx.gateway.createParams[1].Receipt
	if first == second {
		t.Fatalf("receipts must differ per attempt, both %q", first)
	}
	for _, receipt := range []string{first, second} {
		if len(receipt) > 40 {
			t.Fatalf("receipt %q exceeds 40 characters", receipt)
		}
		if !strings.HasPrefix(receipt, "uk_") {
			t.Fatalf("unexpected receipt format %q", receipt)
		}
	}
}

func TestCreateSessionGatewayFailureLeavesOrderPending(t *testing.T) {
	order := pendingOnlineOrder(uuid.New())
	fx := newPaymentsFixture(t, order)
	fx.gateway.createFn = func(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.Order, error) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay create order failed")
	}

	_, err := fx.service.CreateSession(context.Background(), fx.userID, order.ID)
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if order.RazorpayOrderID != nil {
		t.Fatal("failed session must not stamp a gateway order id")
	}
	if len(fx.repo.updated) != 0 {
		t.Fatal("failed session must not update the order")
	}
	if !order.AwaitingOnlinePayment() {
		t.Fatal("order must remain pending after a gateway failure")
	}
}

func TestCreateSessionRejectsSettledOrder(t *testing.T) {
	order := pendingOnlineOrder(uuid.New())
	order.Status = enums.OrderStatusConfirmed
	order.PaymentStatus = enums.PaymentStatusPaid
	fx := newPaymentsFixture(t, order)

	_, err := fx.service.CreateSession(context.Background(), fx.userID, order.ID)
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
}

func TestCreateSessionUnknownOrder(t *testing.T) {
	fx := newPaymentsFixture(t, pendingOnlineOrder(uuid.New()))

	_, err := fx.service.CreateSession(context.Background(), fx.userID, uuid.New())
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func verifyInputFor(order *models.Order) VerifyInput {
	return VerifyInput{
		OrderID:           order.ID,
		RazorpayOrderID:   "order_RZP123",
		RazorpayPaymentID: "pay_ABC789",
		Signature:         "deadbeef",
	}
}

func TestVerifyPaymentSettlesOrder(t *testing.T) {
	order := pendingOnlineOrder(uuid.New())
	rzpID := "order_RZP123"
	order.RazorpayOrderID = &rzpID
	fx := newPaymentsFixture(t, order)

	settled, err := fx.service.VerifyPayment(context.Background(), fx.userID, verifyInputFor(order))
	if err != nil {
		t.Fatalf("VerifyPayment: %v", err)
	}
	if settled.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", settled.PaymentStatus)
	}
	if settled.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", settled.Status)
	}
	if settled.RazorpayPaymentID == nil || *settled.RazorpayPaymentID != "pay_ABC789" {
		t.Fatal("expected payment id stamped on the order")
	}
	if settled.PaidAt == nil {
		t.Fatal("expected paid_at stamped on the order")
	}
	if !fx.cartRepo.cleared {
		t.Fatal("expected cart cleared on settlement")
	}
	if len(fx.outbox.events) != 1 || fx.outbox.events[0].EventType != enums.EventOrderPaid {
		t.Fatalf("expected one order.paid event, got %+v", fx.outbox.events)
	}
}

func TestVerifyPaymentInvalidSignature(t *testing.T) {
	order := pendingOnlineOrder(uuid.New())
	rzpID := "order_RZP123"
	order.RazorpayOrderID = &rzpID
	fx := newPaymentsFixture(t, order)
	fx.gateway.verifyFn = func(orderID, paymentID, signature string) bool { return false }

	_, err := fx.service.VerifyPayment(context.Background(), fx.userID, verifyInputFor(order))
	if !pkgerrors.HasReason(err, pkgerrors.ReasonSignatureInvalid) {
		t.Fatalf("expected SIGNATURE_INVALID, got %v", err)
	}
	if order.PaymentStatus != enums.PaymentStatusPending || order.Status != enums.OrderStatusPending {
		t.Fatal("rejected signature must not mutate the order")
	}
	if len(fx.repo.updated) != 0 {
		t.Fatal("rejected signature must not write the order")
	}
	if fx.cartRepo.cleared {
		t.Fatal("rejected signature must not clear the cart")
	}
	if len(fx.outbox.events) != 0 {
		t.Fatal("rejected signature must not emit events")
	}
}

func TestVerifyPaymentReplayIsNoOp(t *testing.T) {
	order := pendingOnlineOrder(uuid.New())
	rzpID := "order_RZP123"
	order.RazorpayOrderID = &rzpID
	fx := newPaymentsFixture(t, order)

	if _, err := fx.service.VerifyPayment(context.Background(), fx.userID, verifyInputFor(order)); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	settled, err := fx.service.VerifyPayment(context.Background(), fx.userID, verifyInputFor(order))
	if err != nil {
		t.Fatalf("replayed verify: %v", err)
	}
	if settled.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", settled.PaymentStatus)
	}
	if len(fx.repo.updated) != 1 {
		t.Fatalf("replay must not write again, got %d updates", len(fx.repo.updated))
	}
	if len(fx.outbox.events) != 1 {
		t.Fatalf("replay must not emit again, got %d events", len(fx.outbox.events))
	}
}

func TestVerifyPaymentRejectsOrderReapedMidFlight(t *testing.T) {
	order := pendingOnlineOrder(uuid.New())
	rzpID := "order_RZP123"
	order.RazorpayOrderID = &rzpID
	repo := &stubPaymentsRepo{order: order}
	cartRepo := &stubCartRepo{}
	pub := &stubOutbox{}
	runner := hookTxRunner{before: func() {
		// A reaper sweep lands after the pre-checks: the order is
		// cancelled and its stock restored before the tx opens.
		order.Status = enums.OrderStatusCancelled
		order.PaymentStatus = enums.PaymentStatusFailed
	}}
	svc, err := NewService(runner, repo, cartRepo, &stubGateway{}, pub)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.VerifyPayment(context.Background(), order.UserID, verifyInputFor(order))
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT for a reaped order, got %v", err)
	}
	if len(repo.updated) != 0 {
		t.Fatal("a cancelled order must not be rewritten as paid")
	}
	if cartRepo.cleared {
		t.Fatal("a cancelled order must not clear the cart")
	}
	if len(pub.events) != 0 {
		t.Fatal("a cancelled order must not emit order.paid")
	}
}

func TestVerifyPaymentSessionMismatch(t *testing.T) {
	order := pendingOnlineOrder(uuid.New())
	rzpID := "order_OTHER"
	order.RazorpayOrderID = &rzpID
	fx := newPaymentsFixture(t, order)

	_, err := fx.service.VerifyPayment(context.Background(), fx.userID, verifyInputFor(order))
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT for mismatched session, got %v", err)
	}
}

func TestVerifyPaymentValidatesInput(t *testing.T) {
	order := pendingOnlineOrder(uuid.New())
	fx := newPaymentsFixture(t, order)

	_, err := fx.service.VerifyPayment(context.Background(), fx.userID, VerifyInput{OrderID: order.ID})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

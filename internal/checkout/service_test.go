package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/internal/cart"
	"github.com/urbankart/storefront-backend/internal/promo"
	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/enums"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/outbox"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubCheckoutRepo struct {
	findDraftFn   func(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error)
	insertUsageFn func(ctx context.Context, usage *models.PromoCodeUsage) error
	decrementFn   func(ctx context.Context, productID uuid.UUID, quantity int) error

	created      []*models.Order
	updated      []*models.Order
	replaced     map[uuid.UUID][]models.OrderItem
	usages       []*models.PromoCodeUsage
	usageDeletes []models.PromoCodeUsage
	decrements   map[uuid.UUID]int
	restores     map[uuid.UUID]int
}

func newStubCheckoutRepo() *stubCheckoutRepo {
	return &stubCheckoutRepo{
		replaced:   map[uuid.UUID][]models.OrderItem{},
		decrements: map[uuid.UUID]int{},
		restores:   map[uuid.UUID]int{},
	}
}

func (s *stubCheckoutRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCheckoutRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.created = append(s.created, order)
	return order, nil
}

func (s *stubCheckoutRepo) UpdateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.updated = append(s.updated, order)
	return order, nil
}

func (s *stubCheckoutRepo) FindOrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	if s.findDraftFn != nil {
		return s.findDraftFn(ctx, userID, key)
	}
	return nil, nil
}

func (s *stubCheckoutRepo) ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	s.replaced[orderID] = items
	return nil
}

func (s *stubCheckoutRepo) InsertPromoUsage(ctx context.Context, usage *models.PromoCodeUsage) error {
	if s.insertUsageFn != nil {
		return s.insertUsageFn(ctx, usage)
	}
	s.usages = append(s.usages, usage)
	return nil
}

func (s *stubCheckoutRepo) DeletePromoUsage(ctx context.Context, userID, orderID uuid.UUID, code string) error {
	s.usageDeletes = append(s.usageDeletes, models.PromoCodeUsage{UserID: userID, OrderID: orderID, Code: code})
	return nil
}

func (s *stubCheckoutRepo) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	if s.decrementFn != nil {
		return s.decrementFn(ctx, productID, quantity)
	}
	s.decrements[productID] += quantity
	return nil
}

func (s *stubCheckoutRepo) RestoreStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	s.restores[productID] += quantity
	return nil
}

type stubCheckoutCartRepo struct {
	items   []models.CartItem
	cleared bool
}

func (s *stubCheckoutCartRepo) WithTx(tx *gorm.DB) cart.CartRepository { return s }

func (s *stubCheckoutCartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return s.items, nil
}

func (s *stubCheckoutCartRepo) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error) {
	return nil, nil
}

func (s *stubCheckoutCartRepo) Upsert(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	return item, nil
}

func (s *stubCheckoutCartRepo) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	return nil
}

func (s *stubCheckoutCartRepo) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return nil
}

func (s *stubCheckoutCartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	s.cleared = true
	return nil
}

type stubUserLoader struct {
	user *models.User
}

func (s *stubUserLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.user, nil
}

type stubAddressLoader struct {
	address *models.Address
}

func (s *stubAddressLoader) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	return s.address, nil
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type checkoutFixture struct {
	service  *Service
	repo     *stubCheckoutRepo
	cartRepo *stubCheckoutCartRepo
	outbox   *stubOutbox
	userID   uuid.UUID
	address  *models.Address
}

func newCheckoutFixture(t *testing.T, registeredAt time.Time, items []models.CartItem) *checkoutFixture {
	t.Helper()
	userID := uuid.New()
	address := &models.Address{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       "Priya Nair",
		Phone:      "+919800112233",
		Line1:      "14 Residency Road",
		City:       "Bengaluru",
		State:      "Karnataka",
		PostalCode: "560025",
	}
	repo := newStubCheckoutRepo()
	cartRepo := &stubCheckoutCartRepo{items: items}
	pub := &stubOutbox{}
	svc, err := NewService(
		stubTxRunner{},
		repo,
		cartRepo,
		&stubUserLoader{user: &models.User{ID: userID, Role: enums.UserRoleCustomer, CreatedAt: registeredAt}},
		&stubAddressLoader{address: address},
		NewCalculator(promo.NewEvaluator(nil), testPolicy()),
		pub,
		30*24*time.Hour,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &checkoutFixture{
		service:  svc,
		repo:     repo,
		cartRepo: cartRepo,
		outbox:   pub,
		userID:   userID,
		address:  address,
	}
}

func cartItem(productID uuid.UUID, name string, price string, stock, quantity int) models.CartItem {
	return models.CartItem{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  quantity,
		Product: &models.Product{
			ID:       productID,
			Name:     name,
			Price:    decimal.RequireFromString(price),
			Stock:    stock,
			IsActive: true,
		},
	}
}

func oldAccount() time.Time { return time.Now().Add(-90 * 24 * time.Hour) }

func TestCreateOrderCODConfirmsAndClearsCart(t *testing.T) {
	productID := uuid.New()
	fx := newCheckoutFixture(t, oldAccount(), []models.CartItem{
		cartItem(productID, "Ceramic Dinner Set", "750", 10, 2),
	})

	order, err := fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		AddressID:     fx.address.ID,
		PaymentMethod: enums.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed COD order, got %s", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("expected pending payment status, got %s", order.PaymentStatus)
	}
	if !order.Total.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expected total 1500, got %s", order.Total)
	}
	if !fx.cartRepo.cleared {
		t.Fatal("expected cart cleared for COD order")
	}
	if fx.repo.decrements[productID] != 2 {
		t.Fatalf("expected stock decrement of 2, got %d", fx.repo.decrements[productID])
	}
	if len(fx.outbox.events) != 1 || fx.outbox.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected one order.created event, got %+v", fx.outbox.events)
	}
}

func TestCreateOrderOnlineStaysPendingAndKeepsCart(t *testing.T) {
	productID := uuid.New()
	fx := newCheckoutFixture(t, oldAccount(), []models.CartItem{
		cartItem(productID, "Teak Bookshelf", "1200", 5, 1),
	})

	order, err := fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		AddressID:     fx.address.ID,
		PaymentMethod: enums.PaymentMethodOnline,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending online order, got %s", order.Status)
	}
	if fx.cartRepo.cleared {
		t.Fatal("cart must survive until online payment is verified")
	}
}

func TestCreateOrderAppliesPromoTotals(t *testing.T) {
	productID := uuid.New()
	fx := newCheckoutFixture(t, oldAccount(), []models.CartItem{
		cartItem(productID, "Linen Bedsheet", "1500", 3, 1),
	})

	order, err := fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		AddressID:     fx.address.ID,
		PaymentMethod: enums.PaymentMethodCOD,
		PromoCode:     str("SAMV20"),
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !order.Discount.Equal(decimal.NewFromInt(200)) || !order.Total.Equal(decimal.NewFromInt(1300)) {
		t.Fatalf("expected 1500 - 200 = 1300, got discount %s total %s", order.Discount, order.Total)
	}
	if len(fx.repo.usages) != 1 || fx.repo.usages[0].Code != "SAMV20" {
		t.Fatalf("expected one SAMV20 usage row, got %+v", fx.repo.usages)
	}
	if fx.repo.usages[0].OrderID != order.ID {
		t.Fatal("usage row must reference the created order")
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	fx := newCheckoutFixture(t, oldAccount(), nil)

	_, err := fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		AddressID:     fx.address.ID,
		PaymentMethod: enums.PaymentMethodCOD,
	})
	if !pkgerrors.HasReason(err, pkgerrors.ReasonEmptyCart) {
		t.Fatalf("expected EMPTY_CART, got %v", err)
	}
	if len(fx.repo.created) != 0 {
		t.Fatal("no order may be created from an empty cart")
	}
	if len(fx.outbox.events) != 0 {
		t.Fatal("no event may be emitted for a rejected checkout")
	}
}

func TestCreateOrderPromoAlreadyUsedRollsBack(t *testing.T) {
	productID := uuid.New()
	fx := newCheckoutFixture(t, oldAccount(), []models.CartItem{
		cartItem(productID, "Linen Bedsheet", "1500", 3, 1),
	})
	fx.repo.insertUsageFn = func(ctx context.Context, usage *models.PromoCodeUsage) error {
		return pkgerrors.New(pkgerrors.CodeConflict, "promo code already used").
			WithReason(pkgerrors.ReasonPromoAlreadyUsed)
	}

	_, err := fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		AddressID:     fx.address.ID,
		PaymentMethod: enums.PaymentMethodCOD,
		PromoCode:     str("SAMV20"),
	})
	if !pkgerrors.HasReason(err, pkgerrors.ReasonPromoAlreadyUsed) {
		t.Fatalf("expected PROMO_ALREADY_USED, got %v", err)
	}
}

func TestCreateOrderOutOfStockAborts(t *testing.T) {
	productID := uuid.New()
	fx := newCheckoutFixture(t, oldAccount(), []models.CartItem{
		cartItem(productID, "Cast Iron Skillet", "600", 1, 1),
	})
	fx.repo.decrementFn = func(ctx context.Context, id uuid.UUID, quantity int) error {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithReason(pkgerrors.ReasonOutOfStock)
	}

	_, err := fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		AddressID:     fx.address.ID,
		PaymentMethod: enums.PaymentMethodCOD,
	})
	if !pkgerrors.HasReason(err, pkgerrors.ReasonOutOfStock) {
		t.Fatalf("expected OUT_OF_STOCK, got %v", err)
	}
	if len(fx.repo.created) != 0 {
		t.Fatal("no order may be written when stock reservation fails")
	}
}

func TestCreateOrderReusesDraftByIdempotencyKey(t *testing.T) {
	productID := uuid.New()
	fx := newCheckoutFixture(t, oldAccount(), []models.CartItem{
		cartItem(productID, "Bamboo Cutting Board", "450", 10, 3),
	})
	key := "chk_7f2a"
	draftID := uuid.New()
	fx.repo.findDraftFn = func(ctx context.Context, userID uuid.UUID, k string) (*models.Order, error) {
		if k != key {
			t.Fatalf("unexpected idempotency key lookup %q", k)
		}
		return &models.Order{
			ID:            draftID,
			UserID:        userID,
			Status:        enums.OrderStatusPending,
			PaymentMethod: enums.PaymentMethodOnline,
			PaymentStatus: enums.PaymentStatusPending,
			Items: []models.OrderItem{{
				ProductID: productID,
				Quantity:  2,
			}},
		}, nil
	}

	order, err := fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		AddressID:      fx.address.ID,
		PaymentMethod:  enums.PaymentMethodOnline,
		IdempotencyKey: &key,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID != draftID {
		t.Fatal("expected the draft order to be reused, not a new one")
	}
	if len(fx.repo.created) != 0 {
		t.Fatal("draft reuse must not create a second order")
	}
	if len(fx.repo.updated) != 1 {
		t.Fatalf("expected one draft update, got %d", len(fx.repo.updated))
	}
	if fx.repo.restores[productID] != 2 {
		t.Fatalf("expected the draft's hold of 2 restored, got %d", fx.repo.restores[productID])
	}
	if fx.repo.decrements[productID] != 3 {
		t.Fatalf("expected fresh decrement of 3, got %d", fx.repo.decrements[productID])
	}
	if got := fx.repo.replaced[draftID]; len(got) != 1 || got[0].Quantity != 3 {
		t.Fatalf("expected draft items replaced with the fresh snapshot, got %+v", got)
	}
}

func TestCreateOrderDraftKeepsPromoUsage(t *testing.T) {
	productID := uuid.New()
	fx := newCheckoutFixture(t, oldAccount(), []models.CartItem{
		cartItem(productID, "Linen Bedsheet", "1500", 5, 1),
	})
	key := "chk_9c41"
	code := "SAMV20"
	fx.repo.findDraftFn = func(ctx context.Context, userID uuid.UUID, k string) (*models.Order, error) {
		return &models.Order{
			ID:            uuid.New(),
			UserID:        userID,
			Status:        enums.OrderStatusPending,
			PaymentMethod: enums.PaymentMethodOnline,
			PaymentStatus: enums.PaymentStatusPending,
			PromoCode:     &code,
		}, nil
	}

	_, err := fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		AddressID:      fx.address.ID,
		PaymentMethod:  enums.PaymentMethodOnline,
		PromoCode:      &code,
		IdempotencyKey: &key,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if len(fx.repo.usages) != 0 {
		t.Fatalf("draft already consumed the code, expected no new usage row, got %+v", fx.repo.usages)
	}
	if len(fx.repo.usageDeletes) != 0 {
		t.Fatalf("retry with the same code must keep its usage, got deletes %+v", fx.repo.usageDeletes)
	}
}

func TestCreateOrderDraftDroppedPromoReleasesUsage(t *testing.T) {
	productID := uuid.New()
	fx := newCheckoutFixture(t, oldAccount(), []models.CartItem{
		cartItem(productID, "Linen Bedsheet", "1500", 5, 1),
	})
	key := "chk_2b88"
	code := "SAMV20"
	draftID := uuid.New()
	fx.repo.findDraftFn = func(ctx context.Context, userID uuid.UUID, k string) (*models.Order, error) {
		return &models.Order{
			ID:            draftID,
			UserID:        userID,
			Status:        enums.OrderStatusPending,
			PaymentMethod: enums.PaymentMethodOnline,
			PaymentStatus: enums.PaymentStatusPending,
			PromoCode:     &code,
		}, nil
	}

	order, err := fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		AddressID:      fx.address.ID,
		PaymentMethod:  enums.PaymentMethodOnline,
		IdempotencyKey: &key,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if len(fx.repo.usageDeletes) != 1 {
		t.Fatalf("expected the draft's usage released, got %+v", fx.repo.usageDeletes)
	}
	released := fx.repo.usageDeletes[0]
	if released.UserID != fx.userID || released.OrderID != draftID || released.Code != "SAMV20" {
		t.Fatalf("release must target the draft's own usage row, got %+v", released)
	}
	if len(fx.repo.usages) != 0 {
		t.Fatalf("retry without a code must not record usage, got %+v", fx.repo.usages)
	}
	if order.PromoCode != nil {
		t.Fatalf("expected no promo on the retried order, got %q", *order.PromoCode)
	}
}

func TestCreateOrderDraftSwappedPromoReleasesOldUsage(t *testing.T) {
	productID := uuid.New()
	fx := newCheckoutFixture(t, time.Now().Add(-24*time.Hour), []models.CartItem{
		cartItem(productID, "Linen Bedsheet", "1500", 5, 1),
	})
	key := "chk_5d07"
	oldCode := "SAMV20"
	draftID := uuid.New()
	fx.repo.findDraftFn = func(ctx context.Context, userID uuid.UUID, k string) (*models.Order, error) {
		return &models.Order{
			ID:            draftID,
			UserID:        userID,
			Status:        enums.OrderStatusPending,
			PaymentMethod: enums.PaymentMethodOnline,
			PaymentStatus: enums.PaymentStatusPending,
			PromoCode:     &oldCode,
		}, nil
	}

	order, err := fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		AddressID:      fx.address.ID,
		PaymentMethod:  enums.PaymentMethodOnline,
		PromoCode:      str("FLATS"),
		IdempotencyKey: &key,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if len(fx.repo.usageDeletes) != 1 || fx.repo.usageDeletes[0].Code != "SAMV20" {
		t.Fatalf("expected the superseded SAMV20 usage released, got %+v", fx.repo.usageDeletes)
	}
	if len(fx.repo.usages) != 1 || fx.repo.usages[0].Code != "FLATS" {
		t.Fatalf("expected a FLATS usage row, got %+v", fx.repo.usages)
	}
	if fx.repo.usages[0].OrderID != draftID {
		t.Fatal("new usage must reference the reused draft")
	}
	if order.PromoCode == nil || *order.PromoCode != "FLATS" {
		t.Fatalf("expected FLATS on the retried order, got %v", order.PromoCode)
	}
}

func TestCreateOrderFinalizedDraftConflicts(t *testing.T) {
	productID := uuid.New()
	fx := newCheckoutFixture(t, oldAccount(), []models.CartItem{
		cartItem(productID, "Bamboo Cutting Board", "450", 10, 1),
	})
	key := "chk_done"
	fx.repo.findDraftFn = func(ctx context.Context, userID uuid.UUID, k string) (*models.Order, error) {
		return &models.Order{
			ID:            uuid.New(),
			UserID:        userID,
			Status:        enums.OrderStatusConfirmed,
			PaymentMethod: enums.PaymentMethodOnline,
			PaymentStatus: enums.PaymentStatusPaid,
		}, nil
	}

	_, err := fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		AddressID:      fx.address.ID,
		PaymentMethod:  enums.PaymentMethodOnline,
		IdempotencyKey: &key,
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected STATE_CONFLICT for finalized draft, got %v", err)
	}
}

func TestCreateOrderValidatesInput(t *testing.T) {
	productID := uuid.New()
	fx := newCheckoutFixture(t, oldAccount(), []models.CartItem{
		cartItem(productID, "Cast Iron Skillet", "600", 5, 1),
	})

	_, err := fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		PaymentMethod: enums.PaymentMethodCOD,
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing address, got %v", err)
	}

	_, err = fx.service.CreateOrder(context.Background(), fx.userID, CreateOrderInput{
		AddressID:     fx.address.ID,
		PaymentMethod: enums.PaymentMethod("wallet"),
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown payment method, got %v", err)
	}
}

func TestQuotePricesLiveCart(t *testing.T) {
	productID := uuid.New()
	fx := newCheckoutFixture(t, time.Now().Add(-2*24*time.Hour), []models.CartItem{
		cartItem(productID, "Jute Rug", "900", 5, 1),
	})

	totals, err := fx.service.Quote(context.Background(), fx.userID, str("FLATS"))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !totals.Total.Equal(decimal.RequireFromString("955")) {
		t.Fatalf("expected quoted total 955, got %s", totals.Total)
	}
	if len(fx.repo.created) != 0 || len(fx.outbox.events) != 0 {
		t.Fatal("quoting must not touch durable state")
	}
}

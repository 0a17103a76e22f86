package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/enums"
	"github.com/urbankart/storefront-backend/pkg/pagination"
)

const ordersTestSchema = `
CREATE TABLE orders (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    status TEXT NOT NULL,
    payment_method TEXT NOT NULL,
    payment_status TEXT NOT NULL,
    currency TEXT NOT NULL DEFAULT 'INR',
    subtotal NUMERIC NOT NULL DEFAULT 0,
    discount NUMERIC NOT NULL DEFAULT 0,
    shipping_fee NUMERIC NOT NULL DEFAULT 0,
    total NUMERIC NOT NULL DEFAULT 0,
    promo_code TEXT,
    shipping_address TEXT,
    razorpay_order_id TEXT,
    razorpay_payment_id TEXT,
    idempotency_key TEXT,
    paid_at DATETIME,
    delivered_at DATETIME,
    cancelled_at DATETIME,
    created_at DATETIME,
    updated_at DATETIME
);
CREATE TABLE order_items (
    id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL,
    product_id TEXT NOT NULL,
    product_name TEXT NOT NULL DEFAULT '',
    unit_price NUMERIC NOT NULL DEFAULT 0,
    quantity INTEGER NOT NULL DEFAULT 0,
    line_total NUMERIC NOT NULL DEFAULT 0,
    created_at DATETIME
);
CREATE TABLE products (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    category TEXT NOT NULL DEFAULT '',
    price NUMERIC NOT NULL DEFAULT 0,
    stock INTEGER NOT NULL DEFAULT 0,
    image_url TEXT,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME,
    updated_at DATETIME
);
`

func newOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.Exec(ordersTestSchema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return conn
}

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		Status:        enums.OrderStatusConfirmed,
		PaymentMethod: enums.PaymentMethodCOD,
		PaymentStatus: enums.PaymentStatusPending,
		Currency:      enums.CurrencyINR,
		Subtotal:      decimal.NewFromInt(500),
		Total:         decimal.NewFromInt(600),
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestListByUserPaginatesWithCursor(t *testing.T) {
	db := newOrdersTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var seeded []*models.Order
	for i := 0; i < 5; i++ {
		seeded = append(seeded, seedOrder(t, db, userID, base.Add(time.Duration(i)*time.Hour)))
	}
	// Another user's order must never leak into the page.
	seedOrder(t, db, uuid.New(), base.Add(10*time.Hour))

	first, err := repo.ListByUser(context.Background(), userID, pagination.Params{Limit: 2}, ListFilters{})
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(first.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(first.Orders))
	}
	if first.Orders[0].ID != seeded[4].ID || first.Orders[1].ID != seeded[3].ID {
		t.Fatal("expected newest-first ordering")
	}
	if first.NextCursor == "" {
		t.Fatal("expected a next cursor")
	}

	second, err := repo.ListByUser(context.Background(), userID, pagination.Params{Limit: 2, Cursor: first.NextCursor}, ListFilters{})
	if err != nil {
		t.Fatalf("ListByUser page 2: %v", err)
	}
	if len(second.Orders) != 2 || second.Orders[0].ID != seeded[2].ID {
		t.Fatalf("expected page 2 to continue from the cursor, got %d rows", len(second.Orders))
	}

	third, err := repo.ListByUser(context.Background(), userID, pagination.Params{Limit: 2, Cursor: second.NextCursor}, ListFilters{})
	if err != nil {
		t.Fatalf("ListByUser page 3: %v", err)
	}
	if len(third.Orders) != 1 || third.NextCursor != "" {
		t.Fatalf("expected final page of 1 with no cursor, got %d rows cursor %q", len(third.Orders), third.NextCursor)
	}
}

func TestListAllFiltersByStatus(t *testing.T) {
	db := newOrdersTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedOrder(t, db, uuid.New(), base)
	shipped := seedOrder(t, db, uuid.New(), base.Add(time.Hour))
	db.Model(&models.Order{}).Where("id = ?", shipped.ID).Update("status", enums.OrderStatusShipped)

	status := enums.OrderStatusShipped
	page, err := repo.ListAll(context.Background(), pagination.Params{}, ListFilters{Status: &status})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(page.Orders) != 1 || page.Orders[0].ID != shipped.ID {
		t.Fatalf("expected only the shipped order, got %d rows", len(page.Orders))
	}
}

func TestFindPendingOnlineBefore(t *testing.T) {
	db := newOrdersTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	stale := seedOrder(t, db, uuid.New(), now.Add(-48*time.Hour))
	db.Model(&models.Order{}).Where("id = ?", stale.ID).Updates(map[string]any{
		"status":         enums.OrderStatusPending,
		"payment_method": enums.PaymentMethodOnline,
	})
	fresh := seedOrder(t, db, uuid.New(), now.Add(-time.Hour))
	db.Model(&models.Order{}).Where("id = ?", fresh.ID).Updates(map[string]any{
		"status":         enums.OrderStatusPending,
		"payment_method": enums.PaymentMethodOnline,
	})

	rows, err := repo.FindPendingOnlineBefore(context.Background(), now.Add(-24*time.Hour), 100)
	if err != nil {
		t.Fatalf("FindPendingOnlineBefore: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != stale.ID {
		t.Fatalf("expected only the stale order, got %d rows", len(rows))
	}
}

func TestRestoreStockAddsUnits(t *testing.T) {
	db := newOrdersTestDB(t)
	repo := NewRepository(db)

	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Copper Water Bottle",
		Price:    decimal.NewFromInt(350),
		Stock:    4,
		IsActive: true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	if err := repo.RestoreStock(context.Background(), product.ID, 3); err != nil {
		t.Fatalf("RestoreStock: %v", err)
	}
	// Non-positive quantities are a no-op.
	if err := repo.RestoreStock(context.Background(), product.ID, 0); err != nil {
		t.Fatalf("RestoreStock zero: %v", err)
	}

	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if reloaded.Stock != 7 {
		t.Fatalf("expected stock 7, got %d", reloaded.Stock)
	}
}

package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
)

type stubCartRepo struct {
	items    map[uuid.UUID]*models.CartItem
	products map[uuid.UUID]*models.Product
	cleared  bool
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{
		items:    map[uuid.UUID]*models.CartItem{},
		products: map[uuid.UUID]*models.Product{},
	}
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) CartRepository { return s }

func (s *stubCartRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	for _, item := range s.items {
		if item.UserID == userID {
			copied := *item
			copied.Product = s.products[item.ProductID]
			rows = append(rows, copied)
		}
	}
	return rows, nil
}

func (s *stubCartRepo) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error) {
	for _, item := range s.items {
		if item.UserID == userID && item.ProductID == productID {
			copied := *item
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *stubCartRepo) Upsert(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	for id, existing := range s.items {
		if existing.UserID == item.UserID && existing.ProductID == item.ProductID {
			existing.Quantity = item.Quantity
			return s.items[id], nil
		}
	}
	item.ID = uuid.New()
	s.items[item.ID] = item
	return item, nil
}

func (s *stubCartRepo) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	for _, item := range s.items {
		if item.UserID == userID && item.ProductID == productID {
			item.Quantity = quantity
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *stubCartRepo) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	for id, item := range s.items {
		if item.UserID == userID && item.ProductID == productID {
			delete(s.items, id)
		}
	}
	return nil
}

func (s *stubCartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	s.cleared = true
	for id, item := range s.items {
		if item.UserID == userID {
			delete(s.items, id)
		}
	}
	return nil
}

type stubProductLoader struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProductLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.products[id], nil
}

func newTestCartService(t *testing.T) (*Service, *stubCartRepo, *models.Product) {
	t.Helper()
	repo := newStubCartRepo()
	product := &models.Product{
		ID:       uuid.New(),
		Name:     "Ceramic Mug",
		Price:    decimal.RequireFromString("250.00"),
		Stock:    10,
		IsActive: true,
	}
	repo.products[product.ID] = product
	svc, err := NewService(repo, &stubProductLoader{products: repo.products})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo, product
}

func TestAddItemPricesSnapshotFromCatalog(t *testing.T) {
	svc, _, product := newTestCartService(t)
	userID := uuid.New()

	snapshot, err := svc.AddItem(context.Background(), userID, product.ID, 2)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(snapshot.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(snapshot.Lines))
	}
	line := snapshot.Lines[0]
	if !line.UnitPrice.Equal(product.Price) {
		t.Fatalf("unit price must come from catalog, got %s", line.UnitPrice)
	}
	if !snapshot.Subtotal.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("expected subtotal 500.00, got %s", snapshot.Subtotal)
	}
}

func TestAddItemMergesExistingRow(t *testing.T) {
	svc, repo, product := newTestCartService(t)
	userID := uuid.New()

	if _, err := svc.AddItem(context.Background(), userID, product.ID, 2); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := svc.AddItem(context.Background(), userID, product.ID, 3); err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected a single row, got %d", len(repo.items))
	}
	for _, item := range repo.items {
		if item.Quantity != 5 {
			t.Fatalf("expected merged quantity 5, got %d", item.Quantity)
		}
	}
}

func TestAddItemRejectsInvalidQuantity(t *testing.T) {
	svc, _, product := newTestCartService(t)

	for _, qty := range []int{0, -1, 100} {
		_, err := svc.AddItem(context.Background(), uuid.New(), product.ID, qty)
		if err == nil {
			t.Fatalf("expected error for quantity %d", qty)
		}
		if te := pkgerrors.As(err); te == nil || te.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for quantity %d, got %v", qty, err)
		}
	}
}

func TestAddItemRejectsInsufficientStock(t *testing.T) {
	svc, _, product := newTestCartService(t)
	product.Stock = 1

	_, err := svc.AddItem(context.Background(), uuid.New(), product.ID, 2)
	if err == nil {
		t.Fatal("expected error")
	}
	if !pkgerrors.HasReason(err, pkgerrors.ReasonOutOfStock) {
		t.Fatalf("expected OUT_OF_STOCK, got %v", err)
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc, _, _ := newTestCartService(t)

	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if te := pkgerrors.As(err); te == nil || te.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateItemMissingRow(t *testing.T) {
	svc, _, product := newTestCartService(t)

	_, err := svc.UpdateItem(context.Background(), uuid.New(), product.ID, 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if te := pkgerrors.As(err); te == nil || te.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClearEmptyCartIsNoop(t *testing.T) {
	svc, repo, _ := newTestCartService(t)

	if err := svc.Clear(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if !repo.cleared {
		t.Fatal("expected clear to be forwarded")
	}
}

func TestBuildSnapshotRejectsInactiveProduct(t *testing.T) {
	product := &models.Product{ID: uuid.New(), Name: "Gone", Price: decimal.NewFromInt(10), IsActive: false}
	items := []models.CartItem{{UserID: uuid.New(), ProductID: product.ID, Quantity: 1, Product: product}}

	_, err := BuildSnapshot(items)
	if err == nil {
		t.Fatal("expected error for inactive product")
	}
}

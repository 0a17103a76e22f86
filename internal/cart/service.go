package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
)

const (
	minQuantity = 1
	maxQuantity = 99
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes cart operations for the storefront.
type Service struct {
	repo     CartRepository
	products productLoader
}

// NewService builds the cart service.
func NewService(repo CartRepository, products productLoader) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &Service{repo: repo, products: products}, nil
}

// Get returns the priced snapshot of the user's cart.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return BuildSnapshot(items)
}

// AddItem puts a product in the cart, merging with an existing row.
func (s *Service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (Snapshot, error) {
	if err := validateQuantity(quantity); err != nil {
		return Snapshot{}, err
	}

	product, err := s.loadActiveProduct(ctx, productID)
	if err != nil {
		return Snapshot{}, err
	}

	existing, err := s.repo.FindByUserAndProduct(ctx, userID, productID)
	if err != nil {
		return Snapshot{}, err
	}
	merged := quantity
	if existing != nil {
		merged += existing.Quantity
	}
	if merged > maxQuantity {
		merged = maxQuantity
	}
	if !product.InStock(merged) {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeConflict, "not enough stock for requested quantity").
			WithReason(pkgerrors.ReasonOutOfStock).
			WithDetails(map[string]any{"productId": productID, "available": product.Stock})
	}

	item := &models.CartItem{UserID: userID, ProductID: productID, Quantity: merged}
	if _, err := s.repo.Upsert(ctx, item); err != nil {
		return Snapshot{}, err
	}
	return s.Get(ctx, userID)
}

// UpdateItem replaces the quantity of an existing cart row.
func (s *Service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (Snapshot, error) {
	if err := validateQuantity(quantity); err != nil {
		return Snapshot{}, err
	}

	product, err := s.loadActiveProduct(ctx, productID)
	if err != nil {
		return Snapshot{}, err
	}
	if !product.InStock(quantity) {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeConflict, "not enough stock for requested quantity").
			WithReason(pkgerrors.ReasonOutOfStock).
			WithDetails(map[string]any{"productId": productID, "available": product.Stock})
	}

	if err := s.repo.UpdateQuantity(ctx, userID, productID, quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Snapshot{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return Snapshot{}, err
	}
	return s.Get(ctx, userID)
}

// RemoveItem drops a product from the cart.
func (s *Service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (Snapshot, error) {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return Snapshot{}, err
	}
	return s.Get(ctx, userID)
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.repo.Clear(ctx, userID)
}

func (s *Service) loadActiveProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func validateQuantity(quantity int) error {
	if quantity < minQuantity || quantity > maxQuantity {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity must be between %d and %d", minQuantity, maxQuantity))
	}
	return nil
}

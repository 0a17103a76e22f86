package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/pagination"
)

// WishlistPage is one page of a user's wishlist.
type WishlistPage struct {
	Items      []models.WishlistItem `json:"items"`
	NextCursor string                `json:"nextCursor,omitempty"`
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type wishlistRepository interface {
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*WishlistPage, error)
}

// Service exposes wishlist operations for the storefront.
type Service struct {
	repo     wishlistRepository
	products productLoader
}

// NewService builds the wishlist service.
func NewService(repo wishlistRepository, products productLoader) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wishlist repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &Service{repo: repo, products: products}, nil
}

// Add puts the product on the user's wishlist. Adding it twice is a no-op.
func (s *Service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil || !product.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.repo.Add(ctx, userID, productID)
}

// Remove takes the product off the user's wishlist.
func (s *Service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	err := s.repo.Remove(ctx, userID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
	}
	return err
}

// List returns one page of the user's wishlist.
func (s *Service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*WishlistPage, error) {
	return s.repo.ListByUser(ctx, userID, params)
}

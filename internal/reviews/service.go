package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/pagination"
)

const (
	minRating = 1
	maxRating = 5
)

// ReviewInput carries the client-editable fields of a review.
type ReviewInput struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// ReviewList is one page of a product's reviews.
type ReviewList struct {
	Reviews    []models.ProductReview `json:"reviews"`
	NextCursor string                 `json:"nextCursor,omitempty"`
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type reviewRepository interface {
	FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*models.ProductReview, error)
	Upsert(ctx context.Context, row *models.ProductReview) error
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error)
	Delete(ctx context.Context, userID, productID uuid.UUID) error
}

// Service exposes review operations for the storefront.
type Service struct {
	repo     reviewRepository
	products productLoader
}

// NewService builds the reviews service.
func NewService(repo reviewRepository, products productLoader) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &Service{repo: repo, products: products}, nil
}

// Put writes the user's review of the product. A second submission from the
// same user replaces the first; there is never more than one row per
// (user, product).
func (s *Service) Put(ctx context.Context, userID, productID uuid.UUID, input ReviewInput) (*models.ProductReview, error) {
	if input.Rating < minRating || input.Rating > maxRating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("rating must be between %d and %d", minRating, maxRating))
	}
	if input.Comment != nil && strings.TrimSpace(*input.Comment) == "" {
		input.Comment = nil
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	row := &models.ProductReview{
		ProductID: productID,
		UserID:    userID,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}
	if err := s.repo.Upsert(ctx, row); err != nil {
		return nil, err
	}
	return s.repo.FindByUserAndProduct(ctx, userID, productID)
}

// ListForProduct returns one page of the product's reviews.
func (s *Service) ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error) {
	return s.repo.ListByProduct(ctx, productID, params)
}

// Delete removes the user's review of the product.
func (s *Service) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	err := s.repo.Delete(ctx, userID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	return err
}

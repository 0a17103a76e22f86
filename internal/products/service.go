package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
	"github.com/urbankart/storefront-backend/pkg/logger"
)

// DefaultBrowseTimeout bounds how long a storefront browse query may run
// before the page degrades to an empty result.
const DefaultBrowseTimeout = 8 * time.Second

type catalogRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, input BrowseInput) (*ProductList, error)
	Create(ctx context.Context, row *models.Product) error
	Update(ctx context.Context, row *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (bool, error)
}

// Service exposes catalog browse and admin management operations.
type Service struct {
	repo          catalogRepository
	log           *logger.Logger
	browseTimeout time.Duration
}

// NewService builds the catalog service.
func NewService(repo catalogRepository, log *logger.Logger, browseTimeout time.Duration) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if browseTimeout <= 0 {
		browseTimeout = DefaultBrowseTimeout
	}
	return &Service{repo: repo, log: log, browseTimeout: browseTimeout}, nil
}

// Browse returns one storefront catalog page. A query that outlives the
// browse timeout degrades to an empty page instead of holding the request;
// write paths never take this branch.
func (s *Service) Browse(ctx context.Context, input BrowseInput) (*ProductList, error) {
	input.Filters.IncludeInactive = false

	browseCtx, cancel := context.WithTimeout(ctx, s.browseTimeout)
	defer cancel()

	list, err := s.repo.List(browseCtx, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.log.Warn(ctx, "catalog browse timed out, serving degraded page")
			return &ProductList{Products: []models.Product{}, Degraded: true}, nil
		}
		return nil, err
	}
	return list, nil
}

// ListAll returns one catalog page for the back office, inactive rows
// included. No degradation on this path.
func (s *Service) ListAll(ctx context.Context, input BrowseInput) (*ProductList, error) {
	input.Filters.IncludeInactive = true
	return s.repo.List(ctx, input)
}

// Get returns an active product for the storefront detail page.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil || !row.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return row, nil
}

// GetAny returns the product regardless of active state, for the back office.
func (s *Service) GetAny(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return row, nil
}

// Create adds a catalog listing.
func (s *Service) Create(ctx context.Context, input ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	row := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Category:    strings.TrimSpace(input.Category),
		Price:       input.Price,
		Stock:       input.Stock,
		ImageURL:    input.ImageURL,
		IsActive:    true,
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}

	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// Update replaces the editable fields of a listing.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*models.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	row, err := s.GetAny(ctx, id)
	if err != nil {
		return nil, err
	}

	row.Name = strings.TrimSpace(input.Name)
	row.Description = input.Description
	row.Category = strings.TrimSpace(input.Category)
	row.Price = input.Price
	row.Stock = input.Stock
	row.ImageURL = input.ImageURL
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// Delete removes a listing.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return err
}

// AdjustStock applies a signed stock delta. The counter never goes below
// zero; an overdraw is rejected with the available quantity in the details.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock delta must be nonzero")
	}

	row, err := s.GetAny(ctx, id)
	if err != nil {
		return nil, err
	}

	applied, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "stock adjustment would overdraw inventory").
			WithReason(pkgerrors.ReasonOutOfStock).
			WithDetails(map[string]any{"productId": id, "available": row.Stock, "delta": delta})
	}
	return s.GetAny(ctx, id)
}

func validateProductInput(input ProductInput) error {
	missing := []string{}
	if strings.TrimSpace(input.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(input.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is missing required fields").
			WithDetails(map[string]any{"fields": missing})
	}
	if input.Price.IsNegative() || input.Price.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	return nil
}

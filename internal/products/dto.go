package product

import (
	"github.com/shopspring/decimal"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/pagination"
)

// BrowseFilters describe the filter knobs for the storefront browse endpoint.
type BrowseFilters struct {
	Category string           `json:"category,omitempty"`
	Query    string           `json:"q,omitempty"`
	PriceMin *decimal.Decimal `json:"priceMin,omitempty"`
	PriceMax *decimal.Decimal `json:"priceMax,omitempty"`
	// IncludeInactive is only honored on the admin listing path.
	IncludeInactive bool `json:"-"`
}

// BrowseInput bundles pagination and filters for a catalog page.
type BrowseInput struct {
	Filters    BrowseFilters
	Pagination pagination.Params
}

// ProductList is one page of catalog results. Degraded marks a page that was
// served empty because the backing query exceeded the browse timeout.
type ProductList struct {
	Products   []models.Product `json:"products"`
	NextCursor string           `json:"nextCursor,omitempty"`
	Degraded   bool             `json:"degraded,omitempty"`
}

// ProductInput carries the admin-editable fields of a catalog listing.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description *string         `json:"description,omitempty"`
	Category    string          `json:"category" validate:"required,max=120"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	IsActive    *bool           `json:"isActive,omitempty"`
}

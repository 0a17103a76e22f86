package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a storefront catalog listing.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Description *string         `gorm:"column:description"`
	Category    string          `gorm:"column:category;not null;index:products_category_idx"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	ImageURL    *string         `gorm:"column:image_url"`
	// No gorm default tag: a defaulted bool would drop explicit false on
	// insert. The column default lives in the migration.
	IsActive  bool            `gorm:"column:is_active;not null"`
	Reviews   []ProductReview `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// InStock reports whether the listing can satisfy the requested quantity.
func (p Product) InStock(quantity int) bool {
	return quantity > 0 && p.Stock >= quantity
}

package product

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/pagination"
)

// Repository exposes persistence operations for catalog listings.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads the product, nil when absent.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var row models.Product
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// List returns one catalog page. Inactive listings are excluded unless the
// filters ask for them.
func (r *Repository) List(ctx context.Context, input BrowseInput) (*ProductList, error) {
	pageSize := pagination.NormalizeLimit(input.Pagination.Limit)
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Product{})

	filters := input.Filters
	if !filters.IncludeInactive {
		qb = qb.Where("is_active = ?", true)
	}
	if category := strings.TrimSpace(filters.Category); category != "" {
		qb = qb.Where("category = ?", category)
	}
	if search := strings.TrimSpace(filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("LOWER(name) LIKE ?", pattern)
	}
	if filters.PriceMin != nil {
		qb = qb.Where("price >= ?", *filters.PriceMin)
	}
	if filters.PriceMax != nil {
		qb = qb.Where("price <= ?", *filters.PriceMax)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	err = qb.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ProductList{Products: rows, NextCursor: nextCursor}, nil
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, row *models.Product) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// Update saves the full product row.
func (r *Repository) Update(ctx context.Context, row *models.Product) error {
	return r.db.WithContext(ctx).Save(row).Error
}

// Delete removes a product by ID. Returns gorm.ErrRecordNotFound when no row
// matched.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AdjustStock applies a signed delta to the stock counter. The predicate
// keeps the counter from going negative; zero rows affected means the product
// is missing or the delta would overdraw.
func (r *Repository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

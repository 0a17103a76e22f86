package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/pagination"
)

// Repository exposes persistence operations for product reviews.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a review repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByUserAndProduct returns the user's review for the product, nil when
// absent.
func (r *Repository) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*models.ProductReview, error) {
	var row models.ProductReview
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Upsert writes the review, replacing the rating and comment on the
// (product, user) conflict. The unique index is the at-most-one guarantee;
// a concurrent first write turns into an update here instead of a duplicate.
func (r *Repository) Upsert(ctx context.Context, row *models.ProductReview) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"rating":  row.Rating,
				"comment": row.Comment,
			}),
		}).
		Create(row).Error
}

// ListByProduct returns one page of a product's reviews, newest first.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.ProductReview
	err = qb.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
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

	return &ReviewList{Reviews: rows, NextCursor: nextCursor}, nil
}

// Delete removes the user's review for the product. Returns
// gorm.ErrRecordNotFound when no row matched.
func (r *Repository) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.ProductReview{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

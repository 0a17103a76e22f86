package address

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
)

// Repository exposes persistence operations for shipping addresses.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an address repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) AddressRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByUser returns the user's addresses, default first, newest first after.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByIDForUser returns the address if it belongs to the user, nil otherwise.
func (r *Repository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	var row models.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// CountByUser returns how many addresses the user has.
func (r *Repository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// Create inserts a new address row.
func (r *Repository) Create(ctx context.Context, row *models.Address) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// Update saves the full address row.
func (r *Repository) Update(ctx context.Context, row *models.Address) error {
	return r.db.WithContext(ctx).Save(row).Error
}

// Delete removes the user's address. Returns gorm.ErrRecordNotFound when no
// row matched.
func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Address{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearDefault unsets the default flag on every address the user owns.
func (r *Repository) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

// MarkDefault sets the default flag on the user's address. Returns
// gorm.ErrRecordNotFound when no row matched.
func (r *Repository) MarkDefault(ctx context.Context, id, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_default", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

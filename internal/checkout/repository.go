package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/urbankart/storefront-backend/pkg/db"
	"github.com/urbankart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
)

// Repository defines the persistence surface used by the order materializer.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error)
	ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error
	InsertPromoUsage(ctx context.Context, usage *models.PromoCodeUsage) error
	DeletePromoUsage(ctx context.Context, userID, orderID uuid.UUID, code string) error
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
	RestoreStock(ctx context.Context, productID uuid.UUID, quantity int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindOrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) ReplaceOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
	}
	return tx.Create(&items).Error
}

// InsertPromoUsage attempts the unique-constrained insert that serves as the
// at-most-once redemption gate. The duplicate-key failure, not a prior read,
// decides "already used".
func (r *repository) InsertPromoUsage(ctx context.Context, usage *models.PromoCodeUsage) error {
	err := r.db.WithContext(ctx).Create(usage).Error
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_promo_usages_user_code") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "promo code already used").
				WithReason(pkgerrors.ReasonPromoAlreadyUsed)
		}
		return err
	}
	return nil
}

// DeletePromoUsage releases a usage held by the given order, freeing the
// code for a later checkout. Usages consumed by other orders are untouched.
func (r *repository) DeletePromoUsage(ctx context.Context, userID, orderID uuid.UUID, code string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND order_id = ? AND code = ?", userID, orderID, code).
		Delete(&models.PromoCodeUsage{}).Error
}

// DecrementStock takes stock only when enough remains. Zero rows affected
// means a concurrent checkout got there first.
func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithReason(pkgerrors.ReasonOutOfStock).
			WithDetails(map[string]any{"productId": productID})
	}
	return nil
}

func (r *repository) RestoreStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", quantity)).Error
}

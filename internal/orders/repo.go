package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/enums"
	"github.com/urbankart/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ?", orderID)
}

func (r *repository) FindByIDForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	return r.findOne(ctx, "id = ? AND user_id = ?", orderID, userID)
}

func (r *repository) findOne(ctx context.Context, query string, args ...any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where(query, args...).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	return r.list(query, params, filters)
}

func (r *repository) ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	return r.list(query, params, filters)
}

func (r *repository) list(query *gorm.DB, params pagination.Params, filters ListFilters) (*OrderList, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = query.
		Preload("Items").
		Order("created_at DESC").Order("id DESC").
		Limit(limitWithBuffer).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &OrderList{Orders: rows, NextCursor: nextCursor}, nil
}

// FindPendingOnlineBefore returns online orders still awaiting payment whose
// creation predates the cutoff. The reaper feeds on it.
func (r *repository) FindPendingOnlineBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("payment_method = ? AND status = ? AND payment_status = ? AND created_at < ?",
			enums.PaymentMethodOnline, enums.OrderStatusPending, enums.PaymentStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items").Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// RestoreStock returns held units to the listing after a cancel or expiry.
func (r *repository) RestoreStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity)).
		Error
}

package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	"github.com/urbankart/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for the order lifecycle.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByIDForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	FindPendingOnlineBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	RestoreStock(ctx context.Context, productID uuid.UUID, quantity int) error
}

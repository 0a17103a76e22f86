package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service
// and by checkout.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error)
	Upsert(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

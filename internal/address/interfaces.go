package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
)

// AddressRepository is the persistence surface the service depends on.
type AddressRepository interface {
	WithTx(tx *gorm.DB) AddressRepository
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Create(ctx context.Context, row *models.Address) error
	Update(ctx context.Context, row *models.Address) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	ClearDefault(ctx context.Context, userID uuid.UUID) error
	MarkDefault(ctx context.Context, id, userID uuid.UUID) error
}

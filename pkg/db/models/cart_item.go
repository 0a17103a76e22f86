package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem links a user to a product they intend to buy. Quantities are
// upserted, so one row exists per (user, product) pair.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:cart_items_user_id_idx;uniqueIndex:ux_cart_items_user_product"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_items_user_product"`
	Quantity  int       `gorm:"column:quantity;not null"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// PromoCodeUsage marks a promo code as consumed by a user. The unique index
// on (user_id, code) is the concurrency gate: the second insert for the same
// pair fails and the losing checkout is rejected.
type PromoCodeUsage struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID  uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_promo_usages_user_code"`
	Code    string    `gorm:"column:code;not null;uniqueIndex:ux_promo_usages_user_code"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	UsedAt  time.Time `gorm:"column:used_at;autoCreateTime"`
}

package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
)

// Line is a priced cart line. Unit prices come from the catalog at read
// time; nothing client-supplied ever reaches a Line.
type Line struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Snapshot is the ephemeral priced view of a user's cart.
type Snapshot struct {
	Lines    []Line          `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// IsEmpty reports whether the snapshot holds no lines.
func (s Snapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// BuildSnapshot prices cart rows against their preloaded products. Rows whose
// product has been deactivated since they were added are rejected, not
// silently dropped: the user must see what fell out of the cart.
func BuildSnapshot(items []models.CartItem) (Snapshot, error) {
	snapshot := Snapshot{Subtotal: decimal.Zero}
	for _, item := range items {
		if item.Product == nil {
			return Snapshot{}, pkgerrors.New(pkgerrors.CodeInternal, "cart item missing product row")
		}
		if !item.Product.IsActive {
			return Snapshot{}, pkgerrors.New(pkgerrors.CodeConflict, "product is no longer available").
				WithDetails(map[string]any{"productId": item.ProductID})
		}
		lineTotal := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		snapshot.Lines = append(snapshot.Lines, Line{
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			UnitPrice:   item.Product.Price,
			Quantity:    item.Quantity,
			LineTotal:   lineTotal,
		})
		snapshot.Subtotal = snapshot.Subtotal.Add(lineTotal)
	}
	return snapshot, nil
}

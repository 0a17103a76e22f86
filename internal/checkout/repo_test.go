package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/urbankart/storefront-backend/pkg/db/models"
	pkgerrors "github.com/urbankart/storefront-backend/pkg/errors"
)

const promoUsageTestSchema = `
CREATE TABLE promo_code_usages (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    code TEXT NOT NULL,
    order_id TEXT NOT NULL,
    used_at DATETIME
);
CREATE UNIQUE INDEX ux_promo_usages_user_code ON promo_code_usages (user_id, code);
`

func newPromoUsageTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.Exec(promoUsageTestSchema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return conn
}

func usageRow(userID uuid.UUID, code string) *models.PromoCodeUsage {
	return &models.PromoCodeUsage{
		ID:      uuid.New(),
		UserID:  userID,
		Code:    code,
		OrderID: uuid.New(),
	}
}

func TestInsertPromoUsageSecondInsertLosesGate(t *testing.T) {
	repo := NewRepository(newPromoUsageTestDB(t))
	userID := uuid.New()

	if err := repo.InsertPromoUsage(context.Background(), usageRow(userID, "WELCOME15")); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	err := repo.InsertPromoUsage(context.Background(), usageRow(userID, "WELCOME15"))
	if !pkgerrors.HasReason(err, pkgerrors.ReasonPromoAlreadyUsed) {
		t.Fatalf("expected PROMO_ALREADY_USED from the duplicate insert, got %v", err)
	}
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}

	var count int64
	if err := repo.(*repository).db.Model(&models.PromoCodeUsage{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one recorded usage, got %d", count)
	}
}

func TestInsertPromoUsageScopedPerUserAndCode(t *testing.T) {
	repo := NewRepository(newPromoUsageTestDB(t))
	userID := uuid.New()

	if err := repo.InsertPromoUsage(context.Background(), usageRow(userID, "WELCOME15")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// A different code for the same user, and the same code for a
	// different user, both pass the gate.
	if err := repo.InsertPromoUsage(context.Background(), usageRow(userID, "FLAT100")); err != nil {
		t.Fatalf("different code: %v", err)
	}
	if err := repo.InsertPromoUsage(context.Background(), usageRow(uuid.New(), "WELCOME15")); err != nil {
		t.Fatalf("different user: %v", err)
	}
}

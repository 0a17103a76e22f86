package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urbankart/storefront-backend/pkg/migrate"
)

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"subtotal numeric(12,2) NOT NULL CHECK (subtotal >= 0)",
		"total numeric(12,2) NOT NULL CHECK (total >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_razorpay_order_id",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_idempotency_key",
		"orders_pending_online_idx",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPromoUsageMigrationHasUniqueGate(t *testing.T) {
	content := readMigration(t, "*_create_promo_code_usages.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS promo_code_usages",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_promo_usages_user_code ON promo_code_usages (user_id, code)",
		"DROP TABLE IF EXISTS promo_code_usages",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirectoryValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations directory invalid: %v", err)
	}
}

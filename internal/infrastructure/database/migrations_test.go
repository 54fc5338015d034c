package database

import (
	"context"
	"testing"
	"time"
)

// TestMigrate verifies migration application.
func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Verify the state history table was created
	var tableName string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='state_history'",
	).Scan(&tableName)
	if err != nil {
		t.Fatalf("table state_history not created: %v", err)
	}

	// Verify all migrations were recorded
	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != len(migrations) {
		t.Errorf("expected %d applied migrations, got %d", len(migrations), len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("expected 0 pending migrations, got %d", len(pending))
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestMigrate_AppliedAt verifies migration records carry a parseable timestamp.
func TestMigrate_AppliedAt(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	applied, _, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	for _, record := range applied {
		if record.AppliedAt.IsZero() {
			t.Errorf("migration %s has zero AppliedAt", record.Version)
		}
	}
}

// TestMigrate_InsertDefaults verifies the schema defaults used by the
// history repository.
func TestMigrate_InsertDefaults(t *testing.T) {
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO state_history (device_id, category, state) VALUES (?, ?, ?)",
		"001e5e090214ffff", "climate", "{}",
	)
	if err != nil {
		t.Fatalf("INSERT error = %v", err)
	}

	var source, createdAt string
	err = db.QueryRowContext(ctx,
		"SELECT source, created_at FROM state_history WHERE device_id = ?",
		"001e5e090214ffff",
	).Scan(&source, &createdAt)
	if err != nil {
		t.Fatalf("SELECT error = %v", err)
	}
	if source != "poll" {
		t.Errorf("default source = %q, want %q", source, "poll")
	}
	if _, err := time.Parse(time.RFC3339, createdAt); err != nil {
		t.Errorf("created_at %q is not RFC3339: %v", createdAt, err)
	}
}

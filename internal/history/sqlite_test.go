package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the state_history table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE state_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			category TEXT NOT NULL,
			state TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'poll',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		);
		CREATE INDEX idx_state_history_device ON state_history (device_id, created_at);
		CREATE INDEX idx_state_history_created ON state_history (created_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// insertRow inserts a state history row with a specific timestamp.
func insertRow(t *testing.T, db *sql.DB, deviceID, category, stateJSON, source string, createdAt time.Time) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO state_history (device_id, category, state, source, created_at) VALUES (?, ?, ?, ?, ?)",
		deviceID,
		category,
		stateJSON,
		source,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("failed to insert state history row: %v", err)
	}
}

// TestRecordStateChange verifies state history writes and retrieval.
func TestRecordStateChange(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	state := State{"temperature": 21.5, "hvac_mode": "heat"}
	if err := repo.RecordStateChange(ctx, "001e5e090214ffff", "climate", state, SourcePoll); err != nil {
		t.Fatalf("RecordStateChange() error = %v", err)
	}

	entries, err := repo.GetHistory(ctx, "001e5e090214ffff", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries length = %d, want 1", len(entries))
	}

	entry := entries[0]
	if entry.DeviceID != "001e5e090214ffff" {
		t.Errorf("DeviceID = %q, want %q", entry.DeviceID, "001e5e090214ffff")
	}
	if entry.Category != "climate" {
		t.Errorf("Category = %q, want %q", entry.Category, "climate")
	}
	if entry.Source != SourcePoll {
		t.Errorf("Source = %q, want %q", entry.Source, SourcePoll)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero, want non-zero")
	}
	if temp, ok := entry.State["temperature"].(float64); !ok || temp != 21.5 {
		t.Errorf("State[\"temperature\"] = %v, want 21.5", entry.State["temperature"])
	}
	if mode, ok := entry.State["hvac_mode"].(string); !ok || mode != "heat" {
		t.Errorf("State[\"hvac_mode\"] = %v, want %q", entry.State["hvac_mode"], "heat")
	}
}

// TestRecordStateChange_Validation verifies required field checks.
func TestRecordStateChange_Validation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.RecordStateChange(ctx, "", "climate", State{}, SourcePoll); err == nil {
		t.Error("expected error for empty device id")
	}
	if err := repo.RecordStateChange(ctx, "001e5e090214ffff", "", State{}, SourcePoll); err == nil {
		t.Error("expected error for empty category")
	}

	// Empty source defaults to poll, nil state persists as an empty object
	if err := repo.RecordStateChange(ctx, "001e5e090214ffff", "climate", nil, ""); err != nil {
		t.Fatalf("RecordStateChange() error = %v", err)
	}
	entries, err := repo.GetHistory(ctx, "001e5e090214ffff", 1)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if entries[0].Source != SourcePoll {
		t.Errorf("Source = %q, want %q", entries[0].Source, SourcePoll)
	}
	if len(entries[0].State) != 0 {
		t.Errorf("State = %v, want empty", entries[0].State)
	}
}

// TestGetHistory verifies ordering and limit enforcement.
func TestGetHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	insertRow(t, db, "th-1", "climate", `{"hvac_mode":"off"}`, SourceCommand, now.Add(-2*time.Hour))
	insertRow(t, db, "th-1", "climate", `{"hvac_mode":"heat"}`, SourcePoll, now.Add(-1*time.Hour))
	insertRow(t, db, "th-1", "climate", `{"hvac_mode":"auto"}`, SourcePoll, now)
	insertRow(t, db, "sw-1", "switch", `{"is_on":true}`, SourcePoll, now)

	entries, err := repo.GetHistory(ctx, "th-1", 2)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries length = %d, want 2", len(entries))
	}

	if !entries[0].CreatedAt.Equal(now) {
		t.Errorf("entry[0] CreatedAt = %s, want %s", entries[0].CreatedAt, now)
	}
	if !entries[1].CreatedAt.Equal(now.Add(-1 * time.Hour)) {
		t.Errorf("entry[1] CreatedAt = %s, want %s", entries[1].CreatedAt, now.Add(-1*time.Hour))
	}
}

// TestGetHistory_LimitClamp verifies the default and maximum limits.
func TestGetHistory_LimitClamp(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 60; i++ {
		insertRow(t, db, "th-1", "climate", `{}`, SourcePoll, now.Add(-time.Duration(i)*time.Minute))
	}

	entries, err := repo.GetHistory(ctx, "th-1", 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 50 {
		t.Errorf("entries length = %d, want default limit 50", len(entries))
	}

	entries, err = repo.GetHistory(ctx, "th-1", 1000)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 60 {
		t.Errorf("entries length = %d, want all 60 rows below max limit", len(entries))
	}
}

// TestPruneHistory verifies old entries are removed.
func TestPruneHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	insertRow(t, db, "th-1", "climate", `{"hvac_mode":"heat"}`, SourcePoll, now.Add(-40*24*time.Hour))
	insertRow(t, db, "th-1", "climate", `{"hvac_mode":"off"}`, SourcePoll, now.Add(-12*time.Hour))

	deleted, err := repo.PruneHistory(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("PruneHistory() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	entries, err := repo.GetHistory(ctx, "th-1", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries length = %d, want 1", len(entries))
	}
	if !entries[0].CreatedAt.Equal(now.Add(-12 * time.Hour)) {
		t.Errorf("remaining CreatedAt = %s, want %s", entries[0].CreatedAt, now.Add(-12*time.Hour))
	}

	if _, err := repo.PruneHistory(ctx, 0); err == nil {
		t.Error("expected error for non-positive retention")
	}
}

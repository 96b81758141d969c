package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// openTestDB opens a WAL-mode database in a temp dir, the way the daemon does.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), Config{
		Path:        filepath.Join(t.TempDir(), "afaudio.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// createHistoryTable creates the change-history shape the daemon stores:
// per-device snapshot and mask JSON rows, newest-first by timestamp.
func createHistoryTable(t *testing.T, db *DB) {
	t.Helper()

	_, err := db.ExecContext(context.Background(), `
		CREATE TABLE change_history (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id  TEXT NOT NULL,
			snapshot   TEXT NOT NULL,
			mask       TEXT NOT NULL,
			created_at TEXT NOT NULL
		) STRICT
	`)
	if err != nil {
		t.Fatalf("creating change_history table: %v", err)
	}
}

func TestOpen_CreatesFileAndNestedDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "nested", "afaudio.db")

	db, err := Open(context.Background(), Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %v, want %v", db.Path(), dbPath)
	}
}

func TestOpen_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Open(ctx, Config{
		Path:        filepath.Join(t.TempDir(), "afaudio.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err == nil {
		t.Fatal("Open() with cancelled context should fail the verification ping")
	}
}

func TestOpen_WALMode(t *testing.T) {
	db := openTestDB(t)

	var mode string
	if err := db.QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("reading journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose_NilSafe(t *testing.T) {
	db, err := Open(context.Background(), Config{
		Path:        filepath.Join(t.TempDir(), "afaudio.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	db.DB = nil
	if err := db.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

func TestExecContext_HistoryInsert(t *testing.T) {
	db := openTestDB(t)
	createHistoryTable(t, db)
	ctx := context.Background()

	result, err := db.ExecContext(ctx,
		"INSERT INTO change_history (device_id, snapshot, mask, created_at) VALUES (?, ?, ?, ?)",
		"dev-1",
		`{"id":"dev-1","volume":55,"muted":false}`,
		`{"volume":true}`,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("ExecContext() INSERT error = %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("LastInsertId() error = %v", err)
	}
	if id != 1 {
		t.Errorf("LastInsertId() = %v, want 1", id)
	}
}

func TestBeginTx_PruneCommitAndRollback(t *testing.T) {
	db := openTestDB(t)
	createHistoryTable(t, db)
	ctx := context.Background()

	// Two entries for one device; the older one is prune-eligible.
	old := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
	recent := time.Now().UTC().Format(time.RFC3339)
	for _, ts := range []string{old, recent} {
		_, err := db.ExecContext(ctx,
			"INSERT INTO change_history (device_id, snapshot, mask, created_at) VALUES (?, ?, ?, ?)",
			"dev-1", `{"id":"dev-1","volume":40,"muted":false}`, `{"volume":true}`, ts,
		)
		if err != nil {
			t.Fatalf("seeding history: %v", err)
		}
	}

	cutoff := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)

	// A rolled-back prune must leave both rows.
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM change_history WHERE created_at < ?", cutoff); err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	if err = tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	var count int
	if err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM change_history").Scan(&count); err != nil {
		t.Fatalf("COUNT error = %v", err)
	}
	if count != 2 {
		t.Fatalf("rows after rollback = %d, want 2", count)
	}

	// A committed prune removes only the stale row.
	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM change_history WHERE created_at < ?", cutoff); err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	if err = tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM change_history").Scan(&count); err != nil {
		t.Fatalf("COUNT error = %v", err)
	}
	if count != 1 {
		t.Errorf("rows after prune = %d, want 1", count)
	}
}

func TestStats_SingleWriter(t *testing.T) {
	db := openTestDB(t)

	stats := db.Stats()
	if stats.MaxOpenConnections != 1 {
		t.Errorf("MaxOpenConnections = %v, want 1 (SQLite single writer)", stats.MaxOpenConnections)
	}
}

package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/WebAFilippov/af-win-audio/internal/protocol"
)

// setupTestRepo creates an in-memory SQLite repository with the schema applied.
func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	repo := NewSQLiteRepository(db)
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return repo
}

// insertEntryAt inserts a history row with a specific timestamp.
func insertEntryAt(t *testing.T, repo *SQLiteRepository, deviceID, snapJSON string, createdAt time.Time) {
	t.Helper()

	_, err := repo.db.Exec(
		"INSERT INTO change_history (device_id, snapshot, changed, source, created_at) VALUES (?, ?, ?, ?, ?)",
		deviceID,
		snapJSON,
		`{}`,
		SourceSnapshot,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("failed to insert history row: %v", err)
	}
}

// TestInit_Idempotent verifies the schema can be applied twice.
func TestInit_Idempotent(t *testing.T) {
	repo := setupTestRepo(t)

	if err := repo.Init(context.Background()); err != nil {
		t.Errorf("second Init() error = %v", err)
	}
}

// TestRecord verifies history writes and retrieval round-trip.
func TestRecord(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	snapshot := protocol.DeviceSnapshot{
		ID:     "dev-1",
		Name:   "Speakers",
		Volume: 75,
		Muted:  false,
	}
	changed := protocol.ChangeMask{Volume: true}

	if err := repo.Record(ctx, snapshot, changed, SourceSnapshot); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.Recent(ctx, "dev-1", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries length = %d, want 1", len(entries))
	}

	entry := entries[0]
	if entry.DeviceID != "dev-1" {
		t.Errorf("DeviceID = %q, want %q", entry.DeviceID, "dev-1")
	}
	if entry.Snapshot != snapshot {
		t.Errorf("Snapshot = %+v, want %+v", entry.Snapshot, snapshot)
	}
	if entry.Changed != changed {
		t.Errorf("Changed = %+v, want %+v", entry.Changed, changed)
	}
	if entry.Source != SourceSnapshot {
		t.Errorf("Source = %q, want %q", entry.Source, SourceSnapshot)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero, want non-zero")
	}
}

// TestRecord_MissingDeviceID verifies the device id requirement.
func TestRecord_MissingDeviceID(t *testing.T) {
	repo := setupTestRepo(t)

	err := repo.Record(context.Background(), protocol.DeviceSnapshot{Name: "anon"}, protocol.ChangeMask{}, SourceSnapshot)
	if err == nil {
		t.Error("Record() expected error for empty device id, got nil")
	}
}

// TestRecord_DefaultSource verifies empty source falls back to snapshot.
func TestRecord_DefaultSource(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	snapshot := protocol.DeviceSnapshot{ID: "dev-1", Name: "Speakers", Volume: 10}
	if err := repo.Record(ctx, snapshot, protocol.ChangeMask{}, ""); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := repo.Recent(ctx, "dev-1", 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if entries[0].Source != SourceSnapshot {
		t.Errorf("Source = %q, want %q", entries[0].Source, SourceSnapshot)
	}
}

// TestRecent verifies ordering and limit enforcement.
func TestRecent(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	insertEntryAt(t, repo, "dev-1", `{"id":"dev-1","name":"S","volume":10,"muted":false}`, now.Add(-2*time.Hour))
	insertEntryAt(t, repo, "dev-1", `{"id":"dev-1","name":"S","volume":20,"muted":false}`, now.Add(-1*time.Hour))
	insertEntryAt(t, repo, "dev-1", `{"id":"dev-1","name":"S","volume":30,"muted":false}`, now)
	insertEntryAt(t, repo, "dev-2", `{"id":"dev-2","name":"H","volume":50,"muted":true}`, now)

	entries, err := repo.Recent(ctx, "dev-1", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries length = %d, want 2", len(entries))
	}

	if !entries[0].CreatedAt.Equal(now) {
		t.Errorf("entry[0] CreatedAt = %s, want %s", entries[0].CreatedAt, now)
	}
	if entries[0].Snapshot.Volume != 30 {
		t.Errorf("entry[0] volume = %d, want 30", entries[0].Snapshot.Volume)
	}
	if !entries[1].CreatedAt.Equal(now.Add(-1 * time.Hour)) {
		t.Errorf("entry[1] CreatedAt = %s, want %s", entries[1].CreatedAt, now.Add(-1*time.Hour))
	}
}

// TestRecent_EmptyResult verifies an unknown device yields an empty slice.
func TestRecent_EmptyResult(t *testing.T) {
	repo := setupTestRepo(t)

	entries, err := repo.Recent(context.Background(), "no-such-device", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries length = %d, want 0", len(entries))
	}
}

// TestPrune verifies old entries are removed.
func TestPrune(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	insertEntryAt(t, repo, "dev-1", `{"id":"dev-1","name":"S","volume":10,"muted":false}`, now.Add(-40*24*time.Hour))
	insertEntryAt(t, repo, "dev-1", `{"id":"dev-1","name":"S","volume":20,"muted":false}`, now.Add(-12*time.Hour))

	deleted, err := repo.Prune(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	entries, err := repo.Recent(ctx, "dev-1", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries length = %d, want 1", len(entries))
	}
	if !entries[0].CreatedAt.Equal(now.Add(-12 * time.Hour)) {
		t.Errorf("remaining CreatedAt = %s, want %s", entries[0].CreatedAt, now.Add(-12*time.Hour))
	}
}

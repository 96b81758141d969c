package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/WebAFilippov/af-win-audio/internal/protocol"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// SQLiteRepository implements Repository using SQLite.
//
// It stores device snapshots and change masks as JSON in the change_history
// table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite change history repository.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteRepository: Repository instance; call Init before first use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Init creates the change_history table and its indexes if they do not exist.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) Init(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS change_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			snapshot TEXT NOT NULL,
			changed TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'snapshot',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX IF NOT EXISTS idx_change_history_device ON change_history(device_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_change_history_time ON change_history(created_at DESC);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating change_history schema: %w", err)
	}
	return nil
}

// Record inserts a new change history entry for a device.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - snapshot: Full device state at the time of the change
//   - changed: Mask of fields that differed from the previous state
//   - source: Record kind the change came from (snapshot, action)
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) Record(ctx context.Context, snapshot protocol.DeviceSnapshot, changed protocol.ChangeMask, source string) error {
	if snapshot.ID == "" {
		return fmt.Errorf("device id is required")
	}
	if source == "" {
		source = SourceSnapshot
	}

	snapJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}
	maskJSON, err := json.Marshal(changed)
	if err != nil {
		return fmt.Errorf("marshalling change mask: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO change_history (device_id, snapshot, changed, source) VALUES (?, ?, ?, ?)",
		snapshot.ID,
		string(snapJSON),
		string(maskJSON),
		source,
	)
	if err != nil {
		return fmt.Errorf("inserting change history: %w", err)
	}

	return nil
}

// Recent returns recent change history entries for a device, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Audio device identifier
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: History entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteRepository) Recent(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, snapshot, changed, source, created_at
		 FROM change_history
		 WHERE device_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying change history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var snapJSON, maskJSON, createdAt string

		if err := rows.Scan(&entry.ID, &entry.DeviceID, &snapJSON, &maskJSON, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning change history: %w", err)
		}

		if err := json.Unmarshal([]byte(snapJSON), &entry.Snapshot); err != nil {
			return nil, fmt.Errorf("unmarshalling snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(maskJSON), &entry.Changed); err != nil {
			return nil, fmt.Errorf("unmarshalling change mask: %w", err)
		}

		timestamp, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change history: %w", err)
	}

	return entries, nil
}

// Prune deletes history entries older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain (entries older than now-olderThan are deleted)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM change_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting change history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// parseTimestamp parses a timestamp stored in SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}

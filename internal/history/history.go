package history

import (
	"context"
	"time"

	"github.com/WebAFilippov/af-win-audio/internal/protocol"
)

// History source values.
const (
	// SourceSnapshot marks entries recorded from flat snapshot records.
	SourceSnapshot = "snapshot"

	// SourceAction marks entries recorded from action envelope records.
	SourceAction = "action"
)

// Entry represents a single recorded device change.
//
// Each entry stores the full device snapshot at the time the change was
// observed together with the mask of fields that changed. This provides a
// local audit trail even when the time-series database is unavailable.
type Entry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// DeviceID is the audio device identifier.
	DeviceID string `json:"device_id"`

	// Snapshot is the full device state at the time of the change.
	Snapshot protocol.DeviceSnapshot `json:"snapshot"`

	// Changed marks which snapshot fields differed from the previous state.
	Changed protocol.ChangeMask `json:"changed"`

	// Source identifies the record kind the change came from (snapshot, action).
	Source string `json:"source"`

	// CreatedAt is the timestamp of the change (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores and retrieves device change history.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// Record persists one device change.
	Record(ctx context.Context, snapshot protocol.DeviceSnapshot, changed protocol.ChangeMask, source string) error

	// Recent returns recent change history for the device, newest first.
	// A non-positive limit selects the default; oversized limits are clamped.
	Recent(ctx context.Context, deviceID string, limit int) ([]Entry, error)
}

// Package history persists device change events to SQLite.
//
// Every change event carries a full device snapshot plus the mask of fields
// that changed; this package records both so the daemon can answer "what did
// the device look like, and when" without the time-series database.
//
// The schema is owned here: call (*SQLiteRepository).Init once at startup.
package history

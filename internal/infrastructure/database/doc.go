// Package database provides SQLite database connectivity for the afaudio daemon.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Connection pooling and lifecycle management
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - Busy timeout prevents lock contention errors
//   - Connection pooling reduces overhead
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
// Schema ownership lives with the repositories that use the database;
// each repository creates its own tables with CREATE TABLE IF NOT EXISTS.
package database

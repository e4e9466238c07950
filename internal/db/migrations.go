package db

import (
	"context"
	"fmt"
)

// migrations are applied in order on top of the base schema. The index of a
// migration plus one is the schema version it produces.
var migrations = []string{
	// v1: poll timestamps written by older builds carried a " +0000 UTC" suffix.
	`UPDATE quota_polls
	 SET timestamp = SUBSTR(timestamp, 1, 19)
	 WHERE length(timestamp) > 19 AND timestamp LIKE '% UTC'`,
}

// SchemaVersion returns the applied schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	if err := db.QueryRowContext(context.Background(), "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// migrate applies every migration newer than the stored schema version.
func (db *DB) migrate() error {
	version, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		if _, err := db.ExecContext(context.Background(), migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.ExecContext(context.Background(), fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("failed to record schema version %d: %w", i+1, err)
		}
	}

	return nil
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a couple of directory entries so a dev server
// resolves names out of the box.
func SeedDev(ctx context.Context, conn *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	seed := []struct{ identity, name string }{
		{"card-0001", "Dev Admin"},
		{"card-0002", "Front Desk"},
	}
	for _, p := range seed {
		if _, err := conn.ExecContext(ctx, `
INSERT INTO people(identity, display_name, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(identity) DO UPDATE SET
  display_name  = excluded.display_name,
  updated_at_ms = excluded.updated_at_ms;
`, p.identity, p.name, now, now); err != nil {
			return fmt.Errorf("seed person %s: %w", p.identity, err)
		}
	}

	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/facegate/facegate/internal/db"
	"github.com/facegate/facegate/internal/facegate/store"
)

// DirectoryStore is the sqlite-backed identity directory. Reads go
// straight to the connection; writes are serialized through the db
// worker.
type DirectoryStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewDirectoryStore(conn *sql.DB, writer *dbpkg.Worker) *DirectoryStore {
	return &DirectoryStore{db: conn, writer: writer}
}

func (s *DirectoryStore) Lookup(ctx context.Context, identity string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", store.ErrNotFound
	}

	var name string
	err := s.db.QueryRowContext(ctx, `
SELECT display_name FROM people WHERE identity = ?;
`, identity).Scan(&name)

	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("Lookup %s: %w", identity, err)
	}
	return name, nil
}

func (s *DirectoryStore) Names(ctx context.Context, identities []string) (map[string]string, error) {
	out := make(map[string]string, len(identities))
	for _, id := range identities {
		name, err := s.Lookup(ctx, id)
		if err == store.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, nil
}

func (s *DirectoryStore) Upsert(ctx context.Context, rec store.PersonRecord) error {
	identity := strings.TrimSpace(rec.Identity)
	if identity == "" {
		return nil
	}
	t := rec.UpdatedAt
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO people(identity, display_name, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?)
ON CONFLICT(identity) DO UPDATE SET
  display_name  = excluded.display_name,
  updated_at_ms = excluded.updated_at_ms;
`, identity, rec.DisplayName, ms, ms); err != nil {
			return fmt.Errorf("Upsert %s: %w", identity, err)
		}
		return nil
	})
}

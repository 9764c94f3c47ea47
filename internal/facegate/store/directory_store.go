// Package store defines the persistence boundaries of the decision
// server.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Lookup when the identity is not in the
// directory.
var ErrNotFound = errors.New("directory: identity not found")

// PersonRecord maps one card identity to its display name.
type PersonRecord struct {
	Identity    string
	DisplayName string
	UpdatedAt   time.Time
}

// DirectoryStore is the identity directory: card-id → display-name
// lookups used for presentation only, never for authorization.
type DirectoryStore interface {
	Lookup(ctx context.Context, identity string) (string, error)
	// Names resolves a batch, silently skipping unknown identities.
	Names(ctx context.Context, identities []string) (map[string]string, error)
	Upsert(ctx context.Context, rec PersonRecord) error
}

package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/facegate/facegate/internal/facegate/store"
	"github.com/facegate/facegate/internal/facegate/store/sqlite"
)

func newTestDirectory(t *testing.T) *sqlite.DirectoryStore {
	t.Helper()
	conn := openTestDB(t)
	return sqlite.NewDirectoryStore(conn, newTestWriter(t, conn))
}

func TestDirectoryStore_UpsertThenLookup(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	if err := dir.Upsert(ctx, store.PersonRecord{Identity: "card-0001", DisplayName: "Ada"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	name, err := dir.Lookup(ctx, "card-0001")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if name != "Ada" {
		t.Errorf("expected Ada, got %q", name)
	}
}

func TestDirectoryStore_Upsert_OverwritesName(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	if err := dir.Upsert(ctx, store.PersonRecord{Identity: "card-0001", DisplayName: "Ada"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := dir.Upsert(ctx, store.PersonRecord{Identity: "card-0001", DisplayName: "Ada L."}); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}

	name, err := dir.Lookup(ctx, "card-0001")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if name != "Ada L." {
		t.Errorf("expected updated name, got %q", name)
	}
}

func TestDirectoryStore_Lookup_Unknown_ReturnsNotFound(t *testing.T) {
	dir := newTestDirectory(t)

	_, err := dir.Lookup(context.Background(), "card-9999")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDirectoryStore_Names_SkipsUnknownIdentities(t *testing.T) {
	dir := newTestDirectory(t)
	ctx := context.Background()

	if err := dir.Upsert(ctx, store.PersonRecord{Identity: "card-0001", DisplayName: "Ada"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	names, err := dir.Names(ctx, []string{"card-0001", "card-9999"})
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) != 1 || names["card-0001"] != "Ada" {
		t.Errorf("expected only card-0001 resolved, got %v", names)
	}
}

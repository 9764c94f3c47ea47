package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/facegate/facegate/internal/facegate/store"
)

// DirectoryStore is the in-memory identity directory used by tests and
// card-less dev setups.
type DirectoryStore struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewDirectoryStore seeds the directory from an identity→name map.
func NewDirectoryStore(seed map[string]string) *DirectoryStore {
	names := make(map[string]string, len(seed))
	for id, name := range seed {
		id = strings.TrimSpace(id)
		if id != "" {
			names[id] = name
		}
	}
	return &DirectoryStore{names: names}
}

func (s *DirectoryStore) Lookup(_ context.Context, identity string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.names[identity]
	if !ok {
		return "", store.ErrNotFound
	}
	return name, nil
}

func (s *DirectoryStore) Names(_ context.Context, identities []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(identities))
	for _, id := range identities {
		if name, ok := s.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (s *DirectoryStore) Upsert(_ context.Context, rec store.PersonRecord) error {
	id := strings.TrimSpace(rec.Identity)
	if id == "" {
		return nil
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[id] = rec.DisplayName
	return nil
}

package selection

import (
	"context"
	"sync"

	"github.com/zen-systems/tripmate/pkg/place"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu         sync.Mutex
	candidates map[Key][]place.Place
	saved      map[Key][]place.Place
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candidates: make(map[Key][]place.Place),
		saved:      make(map[Key][]place.Place),
	}
}

// UpsertCandidates replaces the candidate set.
func (s *MemoryStore) UpsertCandidates(_ context.Context, key Key, places []place.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[key] = clonePlaces(places)
	return nil
}

// Candidates returns the candidate set.
func (s *MemoryStore) Candidates(_ context.Context, key Key) ([]place.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	places, ok := s.candidates[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePlaces(places), nil
}

// AppendSaved appends to the saved set.
func (s *MemoryStore) AppendSaved(_ context.Context, key Key, places []place.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[key] = append(clonePlaces(s.saved[key]), places...)
	return nil
}

// Saved returns the saved set.
func (s *MemoryStore) Saved(_ context.Context, key Key) ([]place.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	places, ok := s.saved[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePlaces(places), nil
}

// ClearSaved deletes the saved set.
func (s *MemoryStore) ClearSaved(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, key)
	return nil
}

func clonePlaces(in []place.Place) []place.Place {
	out := make([]place.Place, len(in))
	copy(out, in)
	return out
}

package update

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/zen-systems/tripmate/pkg/plan"
)

// ErrNoPending means the user has no staged edit.
var ErrNoPending = errors.New("update: nothing pending")

// Pending is an edit staged for a user, waiting for confirmation.
type Pending struct {
	UserID   string      `json:"userId"`
	TripID   string      `json:"tripId"`
	PlanID   string      `json:"planId"`
	Before   plan.Plan   `json:"before"`
	Change   plan.Change `json:"change"`
	Version  int64       `json:"version"`
	StagedAt time.Time   `json:"stagedAt"`
}

// PendingStore holds at most one staged edit per user.
type PendingStore interface {
	// Put replaces the user's staged edit and returns it with its new
	// version, one higher than the one it replaced.
	Put(ctx context.Context, p Pending) (Pending, error)
	Get(ctx context.Context, userID string) (*Pending, error)
	// Take removes and returns the staged edit. Of two concurrent calls at
	// most one succeeds.
	Take(ctx context.Context, userID string) (*Pending, error)
}

// MemoryPendingStore keeps staged edits in process with a TTL.
type MemoryPendingStore struct {
	mu       sync.Mutex
	items    *cache.Cache
	versions map[string]int64
}

// NewMemoryPendingStore creates a store whose entries expire after ttl.
// A zero ttl never expires.
func NewMemoryPendingStore(ttl time.Duration) *MemoryPendingStore {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryPendingStore{
		items:    cache.New(ttl, time.Minute),
		versions: make(map[string]int64),
	}
}

func (s *MemoryPendingStore) Put(_ context.Context, p Pending) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[p.UserID]++
	p.Version = s.versions[p.UserID]
	s.items.SetDefault(p.UserID, p)
	return p, nil
}

func (s *MemoryPendingStore) Get(_ context.Context, userID string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items.Get(userID)
	if !ok {
		return nil, ErrNoPending
	}
	p := v.(Pending)
	return &p, nil
}

func (s *MemoryPendingStore) Take(_ context.Context, userID string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items.Get(userID)
	if !ok {
		return nil, ErrNoPending
	}
	s.items.Delete(userID)
	p := v.(Pending)
	return &p, nil
}

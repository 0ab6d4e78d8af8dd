// Package memory keeps the running conversation of each user.
package memory

import (
	"sync"
	"time"
)

// Roles used in transcripts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store holds an ordered, bounded message log per user.
type Store struct {
	mu       sync.RWMutex
	logs     map[string][]Message
	maxItems int
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxItems sets the maximum number of messages kept per user.
func WithMaxItems(max int) Option {
	return func(s *Store) {
		s.maxItems = max
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty conversation store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		logs:     make(map[string][]Message),
		maxItems: 40,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds a turn to the user's log. Empty content is ignored.
func (s *Store) Append(userID, role, content string) {
	if content == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	log := append(s.logs[userID], Message{Role: role, Content: content, Timestamp: s.now()})

	// Trim if over capacity (remove oldest entries)
	if s.maxItems > 0 && len(log) > s.maxItems {
		log = log[len(log)-s.maxItems:]
	}
	s.logs[userID] = log
}

// Transcript returns a copy of the user's log, oldest first.
func (s *Store) Transcript(userID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[userID]
	out := make([]Message, len(log))
	copy(out, log)
	return out
}

// Recent returns the n most recent messages for the user. A non-positive n
// returns none.
func (s *Store) Recent(userID string, n int) []Message {
	if n <= 0 {
		return []Message{}
	}
	all := s.Transcript(userID)
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Reset forgets the user's conversation.
func (s *Store) Reset(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, userID)
}

// Count returns the number of messages stored for the user.
func (s *Store) Count(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs[userID])
}

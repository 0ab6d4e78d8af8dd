// Package selection holds the per-trip candidate and saved place sets.
package selection

import (
	"context"
	"errors"

	"github.com/zen-systems/tripmate/pkg/place"
)

// ErrNotFound means no document exists for the key.
var ErrNotFound = errors.New("selection: document not found")

// Key identifies a user's trip.
type Key struct {
	UserID string
	TripID string
}

// Store keeps two distinct documents per key: the candidate set from the
// latest search, replaced on every write, and the saved set, which only
// grows until cleared.
type Store interface {
	// UpsertCandidates replaces the candidate set.
	UpsertCandidates(ctx context.Context, key Key, places []place.Place) error
	// Candidates returns the candidate set or ErrNotFound.
	Candidates(ctx context.Context, key Key) ([]place.Place, error)
	// AppendSaved appends to the saved set, creating it if absent.
	AppendSaved(ctx context.Context, key Key, places []place.Place) error
	// Saved returns the saved set or ErrNotFound. An existing but empty
	// document yields an empty slice and no error.
	Saved(ctx context.Context, key Key) ([]place.Place, error)
	// ClearSaved deletes the saved set.
	ClearSaved(ctx context.Context, key Key) error
}

package selection

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zen-systems/tripmate/pkg/place"
)

func pl(ids ...string) []place.Place {
	out := make([]place.Place, len(ids))
	for i, id := range ids {
		out[i] = place.Place{ID: id, Title: "Title " + id, Address: "addr", Latitude: 1, Longitude: 2}
	}
	return out
}

func ids(places []place.Place) []string {
	out := make([]string, len(places))
	for i, p := range places {
		out[i] = p.ID
	}
	return out
}

// runStoreContract exercises the Store semantics every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("upsert candidates is last write wins", func(t *testing.T) {
		s := newStore(t)
		key := Key{UserID: "u1", TripID: "t1"}
		require.NoError(t, s.UpsertCandidates(ctx, key, pl("a1", "a2")))
		require.NoError(t, s.UpsertCandidates(ctx, key, pl("b1")))

		got, err := s.Candidates(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []string{"b1"}, ids(got))
	})

	t.Run("append saved accumulates in order", func(t *testing.T) {
		s := newStore(t)
		key := Key{UserID: "u1", TripID: "t1"}
		require.NoError(t, s.AppendSaved(ctx, key, pl("a1", "a2")))
		require.NoError(t, s.AppendSaved(ctx, key, pl("b1")))

		got, err := s.Saved(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []string{"a1", "a2", "b1"}, ids(got))
	})

	t.Run("candidate and saved documents are distinct", func(t *testing.T) {
		s := newStore(t)
		key := Key{UserID: "u1", TripID: "t1"}
		require.NoError(t, s.UpsertCandidates(ctx, key, pl("c1")))
		_, err := s.Saved(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.AppendSaved(ctx, key, pl("s1")))
		got, err := s.Candidates(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []string{"c1"}, ids(got))
	})

	t.Run("keys are isolated", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.UpsertCandidates(ctx, Key{UserID: "u1", TripID: "t1"}, pl("x")))
		_, err := s.Candidates(ctx, Key{UserID: "u1", TripID: "t2"})
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Candidates(ctx, Key{UserID: "u2", TripID: "t1"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("clear saved removes the document", func(t *testing.T) {
		s := newStore(t)
		key := Key{UserID: "u1", TripID: "t1"}
		require.NoError(t, s.AppendSaved(ctx, key, pl("a1")))
		require.NoError(t, s.ClearSaved(ctx, key))
		_, err := s.Saved(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, s.ClearSaved(ctx, key))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := Key{UserID: "u1", TripID: "t1"}
	require.NoError(t, s.UpsertCandidates(ctx, key, pl("a")))
	got, err := s.Candidates(ctx, key)
	require.NoError(t, err)
	got[0].Title = "changed"
	again, _ := s.Candidates(ctx, key)
	assert.Equal(t, "Title a", again[0].Title)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TRIPMATE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TRIPMATE_TEST_MONGO_URI not set")
	}
	runStoreContract(t, func(t *testing.T) Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		dbName := fmt.Sprintf("tripmate_test_%d", time.Now().UnixNano())
		s, err := DialMongo(ctx, uri, dbName)
		require.NoError(t, err)
		require.NoError(t, s.EnsureIndexes(ctx))
		t.Cleanup(func() {
			ctx := context.Background()
			_ = s.candidates.Database().Drop(ctx)
			_ = s.Close(ctx)
		})
		return s
	})
}

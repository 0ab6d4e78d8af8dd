package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIndexes(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		n         int
		want      []int
		hasDigits bool
	}{
		{"single", "1번 저장해줘", 3, []int{0}, true},
		{"comma list", "1,3", 3, []int{0, 2}, true},
		{"out of range dropped", "1번이랑 4번", 3, []int{0}, true},
		{"zero dropped", "0", 3, []int{}, true},
		{"all out of range", "7, 9", 3, []int{}, true},
		{"duplicates collapse", "2 2 2", 3, []int{1}, true},
		{"no digits", "저장할게", 3, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hasDigits := ResolveIndexes(tt.query, tt.n)
			assert.Equal(t, tt.hasDigits, hasDigits)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaverSavesResolvedIndexes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := Key{UserID: "u1", TripID: "t1"}
	require.NoError(t, store.UpsertCandidates(ctx, key, pl("a", "b", "c")))

	saver := NewSaver(store)
	saved, err := saver.Save(ctx, key, "1,3")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(saved))

	stored, err := store.Saved(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(stored))

	candidates, err := store.Candidates(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(candidates), "save must not mutate candidates")
}

func TestSaverOutOfRangeKeepsValid(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := Key{UserID: "u1", TripID: "t1"}
	require.NoError(t, store.UpsertCandidates(ctx, key, pl("a", "b")))

	saved, err := NewSaver(store).Save(ctx, key, "1 and 3")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(saved))
}

func TestSaverInvalidSelection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := Key{UserID: "u1", TripID: "t1"}
	require.NoError(t, store.UpsertCandidates(ctx, key, pl("a", "b")))

	_, err := NewSaver(store).Save(ctx, key, "5번, 6번")
	var invalid *InvalidSelectionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, []int{5, 6}, invalid.Requested)
	assert.Equal(t, 2, invalid.Available)

	_, err = store.Saved(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound, "nothing may be written on invalid selection")
}

func TestSaverNoCandidates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := Key{UserID: "u1", TripID: "t1"}

	_, err := NewSaver(store).Save(ctx, key, "1")
	assert.ErrorIs(t, err, ErrNoCandidates)

	require.NoError(t, store.UpsertCandidates(ctx, key, nil))
	_, err = NewSaver(store).Save(ctx, key, "1")
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestSaverWithoutDigitsSavesAllCandidates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	key := Key{UserID: "u1", TripID: "t1"}
	require.NoError(t, store.UpsertCandidates(ctx, key, pl("detail")))

	saved, err := NewSaver(store).Save(ctx, key, "저장할게")
	require.NoError(t, err)
	assert.Equal(t, []string{"detail"}, ids(saved))
}

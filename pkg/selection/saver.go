package selection

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/samber/lo"
	"github.com/zen-systems/tripmate/pkg/place"
)

// ErrNoCandidates means a save was requested before any search.
var ErrNoCandidates = errors.New("selection: nothing searched for this trip")

// InvalidSelectionError means every requested number was out of range.
type InvalidSelectionError struct {
	Requested []int
	Available int
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("selection: none of %v within 1..%d", e.Requested, e.Available)
}

var digitPattern = regexp.MustCompile(`\d+`)

// Saver moves chosen candidates into the saved set.
type Saver struct {
	store Store
}

// NewSaver creates a saver on store.
func NewSaver(store Store) *Saver {
	return &Saver{store: store}
}

// Save resolves the 1-based numbers in query against the candidate set and
// appends the chosen places to the saved set. A query without numbers saves
// every candidate. Out-of-range numbers are ignored; if none remain, an
// *InvalidSelectionError is returned and nothing is written.
func (s *Saver) Save(ctx context.Context, key Key, query string) ([]place.Place, error) {
	candidates, err := s.store.Candidates(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoCandidates
	}
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	indexes, hasDigits := ResolveIndexes(query, len(candidates))
	var selected []place.Place
	switch {
	case !hasDigits:
		selected = candidates
	case len(indexes) == 0:
		return nil, &InvalidSelectionError{Requested: RequestedNumbers(query), Available: len(candidates)}
	default:
		selected = lo.Map(indexes, func(i int, _ int) place.Place { return candidates[i] })
	}

	if err := s.store.AppendSaved(ctx, key, selected); err != nil {
		return nil, err
	}
	return selected, nil
}

// RequestedNumbers extracts every integer in query, in order.
func RequestedNumbers(query string) []int {
	return lo.FilterMap(digitPattern.FindAllString(query, -1), func(s string, _ int) (int, bool) {
		n, err := strconv.Atoi(s)
		return n, err == nil
	})
}

// ResolveIndexes converts the 1-based numbers in query into distinct 0-based
// indexes within [0, n). hasDigits reports whether query had any number.
func ResolveIndexes(query string, n int) (indexes []int, hasDigits bool) {
	if !digitPattern.MatchString(query) {
		return nil, false
	}
	nums := RequestedNumbers(query)
	valid := lo.FilterMap(nums, func(num int, _ int) (int, bool) {
		return num - 1, num-1 >= 0 && num-1 < n
	})
	return lo.Uniq(valid), true
}

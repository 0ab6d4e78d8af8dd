package place

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/text/language"
)

type fakeProvider struct {
	results *Results
	err     error
	queries []Query
}

func (p *fakeProvider) Search(_ context.Context, q Query) (*Results, error) {
	p.queries = append(p.queries, q)
	return p.results, p.err
}

type upperTranslator struct {
	calls atomic.Int32
	fail  string
}

func (t *upperTranslator) Translate(_ context.Context, text string, source, target language.Tag) (string, error) {
	t.calls.Add(1)
	if text == t.fail {
		return "", errors.New("quota exceeded")
	}
	return target.String() + ":" + strings.ToUpper(text), nil
}

func quiet(string, ...any) {}

func TestSearcherPlacesFiltersAndTranslates(t *testing.T) {
	provider := &fakeProvider{results: &Results{Local: []RawPlace{
		{PlaceID: "1", Title: "A", Address: "addr a", Latitude: fp(1), Longitude: fp(1), Description: "nice"},
		{PlaceID: "2", Title: "B", Latitude: fp(2), Longitude: fp(2)},
		{PlaceID: "3", Title: "C", Address: "addr c", Latitude: fp(3), Longitude: fp(3), Description: "broken"},
	}}}
	tr := &upperTranslator{fail: "broken"}
	s := NewSearcher(provider, WithTranslator(tr), WithZoom(12), WithLogger(quiet))

	places, err := s.Places(context.Background(), "cafes", 41.0, 2.0)
	if err != nil {
		t.Fatalf("places: %v", err)
	}
	if len(places) != 2 {
		t.Fatalf("expected 2 places, got %d", len(places))
	}
	if places[0].Description != "ko:NICE" {
		t.Fatalf("expected translated description, got %q", places[0].Description)
	}
	if places[1].Description != "broken" {
		t.Fatalf("failed translation must keep original, got %q", places[1].Description)
	}
	q := provider.queries[0]
	if q.Text != "cafes" || q.Zoom != 12 || q.Locale != "en" || q.Latitude != 41.0 {
		t.Fatalf("unexpected provider query %+v", q)
	}
}

func TestSearcherSameLanguageSkipsTranslation(t *testing.T) {
	provider := &fakeProvider{results: &Results{Local: []RawPlace{
		{Title: "A", Address: "addr", Latitude: fp(1), Longitude: fp(1), Description: "x"},
	}}}
	tr := &upperTranslator{}
	s := NewSearcher(provider, WithTranslator(tr), WithLanguages(language.English, language.English), WithLogger(quiet))
	if _, err := s.Places(context.Background(), "q", 0, 0); err != nil {
		t.Fatalf("places: %v", err)
	}
	if tr.calls.Load() != 0 {
		t.Fatalf("expected no translation calls")
	}
}

func TestSearcherDetails(t *testing.T) {
	exact := RawPlace{PlaceID: "exact", Title: "Sagrada", Address: "Mallorca 401", Latitude: fp(41.4), Longitude: fp(2.17)}
	unusableExact := RawPlace{Title: "Sagrada"}
	listing := RawPlace{PlaceID: "list", Title: "Sagrada Shop", Address: "Mallorca 400", Latitude: fp(41.4), Longitude: fp(2.17)}

	tests := []struct {
		name    string
		results *Results
		wantID  string
		wantErr error
	}{
		{name: "exact match", results: &Results{Place: &exact, Local: []RawPlace{listing}}, wantID: "exact"},
		{name: "falls back to listing", results: &Results{Place: &unusableExact, Local: []RawPlace{listing}}, wantID: "list"},
		{name: "nothing usable", results: &Results{Place: &unusableExact}, wantErr: ErrNoMatch},
		{name: "empty", results: &Results{}, wantErr: ErrNoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSearcher(&fakeProvider{results: tt.results}, WithLogger(quiet))
			got, err := s.Details(context.Background(), "sagrada", 41.4, 2.17)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("details: %v", err)
			}
			if got.ID != tt.wantID {
				t.Fatalf("expected %s, got %s", tt.wantID, got.ID)
			}
		})
	}
}

func TestSearcherPropagatesProviderError(t *testing.T) {
	s := NewSearcher(&fakeProvider{err: errors.New("provider down")}, WithLogger(quiet))
	if _, err := s.Places(context.Background(), "q", 0, 0); err == nil {
		t.Fatalf("expected provider error")
	}
}

func TestCachedTranslator(t *testing.T) {
	inner := &upperTranslator{}
	c := NewCachedTranslator(inner, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		out, err := c.Translate(ctx, "hello", language.English, language.Korean)
		if err != nil || out != "ko:HELLO" {
			t.Fatalf("unexpected %q %v", out, err)
		}
	}
	if inner.calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", inner.calls.Load())
	}
}

package place

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
)

// ErrNoMatch is returned by Details when the provider yields nothing usable.
var ErrNoMatch = errors.New("place: no usable result")

// Searcher runs provider queries and produces translated, validated places.
type Searcher struct {
	provider    Provider
	translator  Translator
	source      language.Tag
	target      language.Tag
	zoom        int
	parallelism int
	logger      func(format string, args ...any)
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithTranslator sets the description translator.
func WithTranslator(t Translator) SearcherOption {
	return func(s *Searcher) {
		s.translator = t
	}
}

// WithLanguages sets the provider locale and the translation target.
func WithLanguages(source, target language.Tag) SearcherOption {
	return func(s *Searcher) {
		s.source = source
		s.target = target
	}
}

// WithZoom sets the viewport zoom level.
func WithZoom(zoom int) SearcherOption {
	return func(s *Searcher) {
		s.zoom = zoom
	}
}

// WithParallelism bounds concurrent translation calls.
func WithParallelism(n int) SearcherOption {
	return func(s *Searcher) {
		s.parallelism = n
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger func(format string, args ...any)) SearcherOption {
	return func(s *Searcher) {
		s.logger = logger
	}
}

// NewSearcher creates a searcher over provider.
func NewSearcher(provider Provider, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		provider:    provider,
		translator:  NopTranslator{},
		source:      language.English,
		target:      language.Korean,
		zoom:        14,
		parallelism: 4,
		logger:      log.Printf,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Places returns every usable listing for text around the coordinates, in
// provider order, with translated descriptions.
func (s *Searcher) Places(ctx context.Context, text string, lat, lon float64) ([]Place, error) {
	res, err := s.provider.Search(ctx, s.query(text, lat, lon))
	if err != nil {
		return nil, err
	}
	places := Normalize(res.Local)
	if dropped := len(res.Local) - len(places); dropped > 0 {
		s.logger("[search] dropped %d of %d listings without address or coordinates", dropped, len(res.Local))
	}
	if err := s.translateAll(ctx, places); err != nil {
		return nil, err
	}
	return places, nil
}

// Details returns the single best listing for a named place. The exact match
// is preferred; otherwise the first usable list result is used.
func (s *Searcher) Details(ctx context.Context, text string, lat, lon float64) (*Place, error) {
	res, err := s.provider.Search(ctx, s.query(text, lat, lon))
	if err != nil {
		return nil, err
	}

	var candidates []RawPlace
	if res.Place != nil {
		candidates = append(candidates, *res.Place)
	}
	candidates = append(candidates, res.Local...)

	places := Normalize(candidates)
	if len(places) == 0 {
		return nil, ErrNoMatch
	}
	best := places[:1]
	if err := s.translateAll(ctx, best); err != nil {
		return nil, err
	}
	return &best[0], nil
}

func (s *Searcher) query(text string, lat, lon float64) Query {
	return Query{Text: text, Latitude: lat, Longitude: lon, Zoom: s.zoom, Locale: s.source.String()}
}

// translateAll rewrites descriptions in place. A failed translation keeps the
// original text.
func (s *Searcher) translateAll(ctx context.Context, places []Place) error {
	if s.source == s.target {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	if s.parallelism > 0 {
		g.SetLimit(s.parallelism)
	}
	for i := range places {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := s.translator.Translate(gctx, places[i].Description, s.source, s.target)
			if err != nil {
				s.logger("[search] translation failed for %q: %v", places[i].Title, err)
				return nil
			}
			places[i].Description = out
			return nil
		})
	}
	return g.Wait()
}

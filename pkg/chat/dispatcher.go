// Package chat routes conversational turns to the assistant's actions and
// turns their outcomes into replies.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/zen-systems/tripmate/pkg/adapter"
	"github.com/zen-systems/tripmate/pkg/intent"
	"github.com/zen-systems/tripmate/pkg/itinerary"
	"github.com/zen-systems/tripmate/pkg/memory"
	"github.com/zen-systems/tripmate/pkg/metrics"
	"github.com/zen-systems/tripmate/pkg/place"
	"github.com/zen-systems/tripmate/pkg/rerank"
	"github.com/zen-systems/tripmate/pkg/selection"
	"github.com/zen-systems/tripmate/pkg/update"
)

// ChatSystemPrompt frames free-form answers.
const ChatSystemPrompt = "You are a helpful assistant."

// DefaultConfirmToken is the utterance that commits a staged plan edit.
const DefaultConfirmToken = "확인"

var errNoLocation = errors.New("chat: no coordinates for search")

// Searcher finds places.
type Searcher interface {
	Places(ctx context.Context, text string, lat, lon float64) ([]place.Place, error)
	Details(ctx context.Context, text string, lat, lon float64) (*place.Place, error)
}

// Reranker orders places for a personality.
type Reranker interface {
	Rerank(ctx context.Context, places []place.Place, p rerank.Personality) ([]place.Place, error)
}

// Synthesizer builds itineraries from saved places.
type Synthesizer interface {
	Synthesize(ctx context.Context, userID, tripID string) (*itinerary.Result, error)
}

// Updater runs the plan edit flow.
type Updater interface {
	RequestUpdate(ctx context.Context, req update.Request) (*update.Staged, error)
	ConfirmUpdate(ctx context.Context, userID string) (*update.Applied, error)
}

// PersonalitySource loads a user's stored personality JSON.
type PersonalitySource interface {
	UserPersonality(ctx context.Context, userID string) (string, error)
}

// Request is one user turn.
type Request struct {
	Query       string             `json:"query" binding:"required"`
	UserID      string             `json:"userId" binding:"required"`
	TripID      string             `json:"tripId" binding:"required"`
	Latitude    *float64           `json:"latitude"`
	Longitude   *float64           `json:"longitude"`
	Personality rerank.Personality `json:"personality"`
}

// Result is the reply to a turn. GeoCoordinates is meaningful only when
// IsSerp is set.
type Result struct {
	Result         string         `json:"result"`
	GeoCoordinates []place.LatLng `json:"geo_coordinates"`
	IsSerp         bool           `json:"isSerp"`
	FunctionName   *string        `json:"function_name"`
}

// Deps are the collaborators of a Dispatcher. Fallback and Personalities
// are optional.
type Deps struct {
	Classifier    intent.Classifier
	Fallback      intent.Classifier
	Memory        *memory.Store
	Searcher      Searcher
	Reranker      Reranker
	Selections    selection.Store
	Itinerary     Synthesizer
	Updates       Updater
	Chat          adapter.Generator
	Personalities PersonalitySource
}

// Dispatcher handles turns.
type Dispatcher struct {
	deps         Deps
	saver        *selection.Saver
	confirmToken string
	metrics      *metrics.Metrics
	locks        keyedMutex
	logger       func(format string, args ...any)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConfirmToken sets the utterance that commits a staged edit.
func WithConfirmToken(token string) Option {
	return func(d *Dispatcher) {
		if token = strings.TrimSpace(token); token != "" {
			d.confirmToken = token
		}
	}
}

// WithMetrics records turn metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger func(format string, args ...any)) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a Dispatcher.
func New(deps Deps, opts ...Option) *Dispatcher {
	if deps.Memory == nil {
		deps.Memory = memory.NewStore()
	}
	d := &Dispatcher{
		deps:         deps,
		saver:        selection.NewSaver(deps.Selections),
		confirmToken: DefaultConfirmToken,
		logger:       log.Printf,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ConfirmToken returns the configured confirmation utterance.
func (d *Dispatcher) ConfirmToken() string {
	return d.confirmToken
}

// Handle runs one turn. Turns of the same user run one at a time. Errors
// never escape: every failure is answered with a reply.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Result {
	start := time.Now()
	unlock := d.locks.Lock(req.UserID)
	defer unlock()

	query := strings.TrimSpace(req.Query)
	history := d.deps.Memory.Transcript(req.UserID)
	d.deps.Memory.Append(req.UserID, memory.RoleUser, query)

	var (
		res  Result
		kind intent.Kind
		err  error
	)
	if query == d.confirmToken {
		kind = intent.UpdateTripPlan
		d.metrics.Intent(string(kind), "confirm")
		res, err = d.confirm(ctx, req)
	} else {
		decision := d.classify(ctx, req, query, history)
		kind = decision.Kind
		d.metrics.Intent(metricIntent(kind), decision.Source)
		res, err = d.dispatch(ctx, req, query, decision)
	}

	if err != nil {
		msg, label := describe(err)
		if label == "internal" || label == "persistence" || label == "itinerary_parse" {
			d.logger("[dispatch] %s for user %s: %v", metricIntent(kind), req.UserID, err)
		}
		d.metrics.Failure(metricIntent(kind), label)
		res = Result{Result: msg, IsSerp: kind.IsSearch()}
	}
	if res.GeoCoordinates == nil {
		res.GeoCoordinates = []place.LatLng{}
	}
	if kind != intent.Unclassified {
		name := string(kind)
		res.FunctionName = &name
	}

	d.deps.Memory.Append(req.UserID, memory.RoleAssistant, res.Result)
	d.metrics.Turn(metricIntent(kind), time.Since(start).Seconds())
	return res
}

func metricIntent(k intent.Kind) string {
	if k == intent.Unclassified {
		return "unclassified"
	}
	return string(k)
}

// classify asks the primary classifier and degrades to the fallback
// classifier when the call itself fails.
func (d *Dispatcher) classify(ctx context.Context, req Request, query string, history []memory.Message) *intent.Decision {
	in := intent.Input{
		Transcript: history,
		Query:      query,
		UserID:     req.UserID,
		TripID:     req.TripID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
	}
	decision, err := d.deps.Classifier.Classify(ctx, in)
	var perr *intent.IntentParseError
	switch {
	case err == nil:
	case errors.As(err, &perr):
		d.logger("[dispatch] %v; answering as chat", err)
		d.metrics.Failure(metricIntent(intent.Kind(perr.Intent)), "intent_parse")
	default:
		d.logger("[dispatch] classifier failed: %v", err)
		decision = nil
		if d.deps.Fallback != nil {
			decision, err = d.deps.Fallback.Classify(ctx, in)
			if err != nil {
				d.logger("[dispatch] fallback classifier failed: %v", err)
				decision = nil
			}
		}
	}
	if decision == nil {
		return &intent.Decision{Kind: intent.JustChat, Query: &intent.QueryArgs{Query: query}, Source: "default"}
	}
	if decision.Kind == intent.Unclassified && strings.TrimSpace(decision.Reply) == "" {
		return &intent.Decision{Kind: intent.JustChat, Query: &intent.QueryArgs{Query: query}, Source: decision.Source}
	}
	return decision
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request, query string, dec *intent.Decision) (Result, error) {
	switch dec.Kind {
	case intent.SearchPlaces:
		return d.searchPlaces(ctx, req, dec.Search)
	case intent.SearchPlaceDetails:
		return d.searchDetails(ctx, req, dec.Search)
	case intent.SavePlace:
		return d.savePlace(ctx, req, query)
	case intent.SavePlan:
		return d.savePlan(ctx, req)
	case intent.UpdateTripPlan:
		return d.requestUpdate(ctx, req, dec.Update)
	case intent.JustChat:
		text := query
		if dec.Query != nil && strings.TrimSpace(dec.Query.Query) != "" {
			text = dec.Query.Query
		}
		return d.justChat(ctx, text)
	default:
		return Result{Result: dec.Reply}, nil
	}
}

func (d *Dispatcher) key(req Request) selection.Key {
	return selection.Key{UserID: req.UserID, TripID: req.TripID}
}

// location picks the model-supplied coordinates, then the request's.
func location(args *intent.SearchArgs, req Request) (float64, float64, error) {
	lat, lon := req.Latitude, req.Longitude
	if args != nil && args.Latitude != nil && args.Longitude != nil {
		lat, lon = args.Latitude, args.Longitude
	}
	if lat == nil || lon == nil {
		return 0, 0, errNoLocation
	}
	return *lat, *lon, nil
}

func searchText(args *intent.SearchArgs, req Request) string {
	if args != nil && strings.TrimSpace(args.Query) != "" {
		return args.Query
	}
	return req.Query
}

func (d *Dispatcher) personality(ctx context.Context, req Request) rerank.Personality {
	if len(req.Personality) > 0 || d.deps.Personalities == nil {
		return req.Personality
	}
	raw, err := d.deps.Personalities.UserPersonality(ctx, req.UserID)
	if err != nil {
		d.logger("[dispatch] personality for %s: %v", req.UserID, err)
		return nil
	}
	p, err := rerank.ParsePersonality(raw)
	if err != nil {
		d.logger("[dispatch] personality for %s: %v", req.UserID, err)
		return nil
	}
	return p
}

func (d *Dispatcher) searchPlaces(ctx context.Context, req Request, args *intent.SearchArgs) (Result, error) {
	lat, lon, err := location(args, req)
	if err != nil {
		return Result{}, err
	}
	places, err := d.deps.Searcher.Places(ctx, searchText(args, req), lat, lon)
	if err != nil {
		return Result{}, fmt.Errorf("search places: %w", err)
	}
	if d.deps.Reranker != nil && len(places) > 1 {
		ordered, err := d.deps.Reranker.Rerank(ctx, places, d.personality(ctx, req))
		if err != nil {
			d.logger("[dispatch] rerank failed, keeping provider order: %v", err)
		} else {
			places = ordered
		}
	}
	if err := d.deps.Selections.UpsertCandidates(ctx, d.key(req), places); err != nil {
		return Result{}, fmt.Errorf("store candidates: %w", err)
	}
	if len(places) == 0 {
		return Result{Result: msgNoResults, IsSerp: true}, nil
	}
	return Result{
		Result:         place.FormatList(places),
		GeoCoordinates: place.Coordinates(places),
		IsSerp:         true,
	}, nil
}

func (d *Dispatcher) searchDetails(ctx context.Context, req Request, args *intent.SearchArgs) (Result, error) {
	lat, lon, err := location(args, req)
	if err != nil {
		return Result{}, err
	}
	p, err := d.deps.Searcher.Details(ctx, searchText(args, req), lat, lon)
	if errors.Is(err, place.ErrNoMatch) {
		return Result{Result: msgDetailNotFound, IsSerp: true}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("search place details: %w", err)
	}
	found := []place.Place{*p}
	if err := d.deps.Selections.UpsertCandidates(ctx, d.key(req), found); err != nil {
		return Result{}, fmt.Errorf("store candidates: %w", err)
	}
	return Result{
		Result:         place.FormatDetail(*p) + msgDetailSuffix,
		GeoCoordinates: place.Coordinates(found),
		IsSerp:         true,
	}, nil
}

// savePlace resolves numbers against what the user typed, not the model's
// paraphrase of it.
func (d *Dispatcher) savePlace(ctx context.Context, req Request, query string) (Result, error) {
	saved, err := d.saver.Save(ctx, d.key(req), query)
	if err != nil {
		return Result{}, err
	}
	titles := lo.Map(saved, func(p place.Place, _ int) string { return p.Title })
	return Result{Result: savedMessage(titles)}, nil
}

func (d *Dispatcher) savePlan(ctx context.Context, req Request) (Result, error) {
	res, err := d.deps.Itinerary.Synthesize(ctx, req.UserID, req.TripID)
	if err != nil {
		return Result{}, err
	}
	d.metrics.Committed(len(res.Plans))
	return Result{Result: res.Narrative}, nil
}

func (d *Dispatcher) requestUpdate(ctx context.Context, req Request, args *intent.UpdateArgs) (Result, error) {
	if args == nil {
		return Result{}, fmt.Errorf("update_trip_plan without arguments")
	}
	staged, err := d.deps.Updates.RequestUpdate(ctx, update.Request{
		UserID:   req.UserID,
		TripID:   req.TripID,
		Date:     args.Date,
		Title:    args.Title,
		NewTitle: args.NewTitle,
		NewDate:  args.NewDate,
		NewTime:  args.NewTime,
	})
	if err != nil {
		d.metrics.Update("request", "refused")
		return Result{}, err
	}
	d.metrics.Update("request", "staged")
	return Result{Result: staged.Summary(d.confirmToken)}, nil
}

func (d *Dispatcher) confirm(ctx context.Context, req Request) (Result, error) {
	applied, err := d.deps.Updates.ConfirmUpdate(ctx, req.UserID)
	if err != nil {
		d.metrics.Update("confirm", "refused")
		return Result{}, err
	}
	d.metrics.Update("confirm", "applied")
	return Result{Result: applied.Summary()}, nil
}

func (d *Dispatcher) justChat(ctx context.Context, text string) (Result, error) {
	if d.deps.Chat == nil {
		return Result{}, fmt.Errorf("chat generator is not configured")
	}
	resp, err := d.deps.Chat.Generate(ctx, ChatSystemPrompt+"\n\n"+text)
	if err != nil {
		return Result{}, fmt.Errorf("chat: %w", err)
	}
	return Result{Result: strings.TrimSpace(resp.Content)}, nil
}

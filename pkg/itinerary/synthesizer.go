// Package itinerary turns a trip's saved places into persisted plans.
package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/zen-systems/tripmate/pkg/adapter"
	"github.com/zen-systems/tripmate/pkg/plan"
	"github.com/zen-systems/tripmate/pkg/rerank"
	"github.com/zen-systems/tripmate/pkg/selection"
)

// ErrNothingSaved means the trip has no saved places to schedule.
var ErrNothingSaved = errors.New("itinerary: no saved places")

// Result is a committed itinerary.
type Result struct {
	Plans     []plan.Plan
	Memo      string
	Narrative string
	Dropped   int
}

// Synthesizer builds and commits itineraries.
type Synthesizer struct {
	plans      plan.Store
	selections selection.Store
	planner    adapter.Generator
	memo       adapter.Generator
	narrator   adapter.Generator
	newID      func() string
	logger     func(format string, args ...any)
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithMemo sets the generator used for the trip memo. Without one no memo
// is written.
func WithMemo(gen adapter.Generator) Option {
	return func(s *Synthesizer) {
		s.memo = gen
	}
}

// WithNarrator sets the generator used for the reply narrative. Without one
// the schedule is rendered locally.
func WithNarrator(gen adapter.Generator) Option {
	return func(s *Synthesizer) {
		s.narrator = gen
	}
}

// WithIDGenerator overrides plan id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Synthesizer) {
		s.newID = fn
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger func(format string, args ...any)) Option {
	return func(s *Synthesizer) {
		s.logger = logger
	}
}

// New creates a synthesizer.
func New(plans plan.Store, selections selection.Store, planner adapter.Generator, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		plans:      plans,
		selections: selections,
		planner:    planner,
		newID:      uuid.NewString,
		logger:     log.Printf,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize schedules the saved places of a trip and commits the plans in
// one transaction. The saved set is cleared only after the commit succeeds.
func (s *Synthesizer) Synthesize(ctx context.Context, userID, tripID string) (*Result, error) {
	key := selection.Key{UserID: userID, TripID: tripID}
	saved, err := s.selections.Saved(ctx, key)
	if errors.Is(err, selection.ErrNotFound) || (err == nil && len(saved) == 0) {
		return nil, ErrNothingSaved
	}
	if err != nil {
		return nil, fmt.Errorf("load saved places: %w", err)
	}

	trip, err := s.plans.Trip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	directive := ""
	if raw, err := s.plans.UserPersonality(ctx, userID); err != nil {
		s.logger("[itinerary] personality for %s unavailable: %v", userID, err)
	} else if p, err := rerank.ParsePersonality(raw); err != nil {
		s.logger("[itinerary] personality for %s unreadable: %v", userID, err)
	} else {
		directive = rerank.ItineraryDirective(p)
	}

	prompt, err := BuildPrompt(*trip, saved, directive)
	if err != nil {
		return nil, err
	}
	resp, err := s.planner.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate itinerary: %w", err)
	}
	entries, dropped, err := ParseEntries(resp.Content, *trip)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		s.logger("[itinerary] discarded %d of %d entries for trip %s", dropped, dropped+len(entries), tripID)
	}

	plans := s.toPlans(userID, tripID, entries)
	if err := s.plans.CreatePlans(ctx, plans); err != nil {
		return nil, err
	}

	result := &Result{Plans: plans, Dropped: dropped}
	result.Memo = s.writeMemo(ctx, tripID, plans)
	if err := s.selections.ClearSaved(ctx, key); err != nil && !errors.Is(err, selection.ErrNotFound) {
		s.logger("[itinerary] clear saved places for %s/%s: %v", userID, tripID, err)
	}
	result.Narrative = s.narrate(ctx, entries, plans)
	return result, nil
}

func (s *Synthesizer) toPlans(userID, tripID string, entries []Entry) []plan.Plan {
	plans := lo.Map(entries, func(e Entry, _ int) plan.Plan {
		return plan.Plan{
			PlanID:      s.newID(),
			UserID:      userID,
			TripID:      tripID,
			Title:       strings.TrimSpace(e.Title),
			Date:        e.Date,
			Time:        e.Time,
			Place:       strings.TrimSpace(e.Place),
			Address:     strings.TrimSpace(e.Address),
			Latitude:    float64(e.Latitude),
			Longitude:   float64(e.Longitude),
			Description: e.Description,
		}
	})
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].Date != plans[j].Date {
			return plans[i].Date < plans[j].Date
		}
		return plans[i].Time < plans[j].Time
	})
	return plans
}

func (s *Synthesizer) writeMemo(ctx context.Context, tripID string, plans []plan.Plan) string {
	if s.memo == nil {
		return ""
	}
	places := lo.Map(plans, func(p plan.Plan, _ int) string { return p.Place })
	resp, err := s.memo.Generate(ctx, MemoPrompt(places))
	if err != nil {
		s.logger("[itinerary] memo for trip %s: %v", tripID, err)
		return ""
	}
	memo := strings.TrimSpace(resp.Content)
	if err := s.plans.SetTripMemo(ctx, tripID, memo); err != nil {
		s.logger("[itinerary] store memo for trip %s: %v", tripID, err)
	}
	return memo
}

func (s *Synthesizer) narrate(ctx context.Context, entries []Entry, plans []plan.Plan) string {
	if s.narrator == nil {
		return RenderSchedule(plans)
	}
	schedule, err := json.Marshal(entries)
	if err != nil {
		return RenderSchedule(plans)
	}
	resp, err := s.narrator.Generate(ctx, NarrativePrompt(string(schedule)))
	if err != nil {
		s.logger("[itinerary] narrative: %v", err)
		return RenderSchedule(plans)
	}
	return strings.TrimSpace(strings.ReplaceAll(resp.Content, "*", ""))
}

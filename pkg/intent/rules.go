package intent

import (
	"context"
	"sort"
	"strings"
)

// defaultTriggers maps phrases to actions for offline classification.
var defaultTriggers = map[Kind][]string{
	SavePlan:           {"일정 만들어", "일정 짜", "여행 계획", "최종 일정", "plan my trip", "make an itinerary", "itinerary"},
	SavePlace:          {"저장", "추가", "갈래", "save", "add"},
	SearchPlaceDetails: {"정보", "어디야", "details about", "tell me about", "where is"},
	SearchPlaces:       {"추천", "찾아", "맛집", "카페", "관광지", "recommend", "find", "popular", "best"},
}

type rule struct {
	kind    Kind
	trigger string
}

// RuleClassifier matches trigger phrases, longest first. Turns without a
// match are just_chat. It never selects update_trip_plan because that
// action needs structured arguments.
type RuleClassifier struct {
	rules []rule
}

// NewRuleClassifier builds a classifier from triggers, or the built-in set
// when triggers is nil.
func NewRuleClassifier(triggers map[Kind][]string) *RuleClassifier {
	if triggers == nil {
		triggers = defaultTriggers
	}
	rc := &RuleClassifier{}
	for kind, phrases := range triggers {
		if kind == UpdateTripPlan || !kind.Valid() {
			continue
		}
		for _, p := range phrases {
			rc.rules = append(rc.rules, rule{kind: kind, trigger: strings.ToLower(p)})
		}
	}
	sort.SliceStable(rc.rules, func(i, j int) bool {
		if len(rc.rules[i].trigger) != len(rc.rules[j].trigger) {
			return len(rc.rules[i].trigger) > len(rc.rules[j].trigger)
		}
		return rc.rules[i].trigger < rc.rules[j].trigger
	})
	return rc
}

// Match returns the action for a query.
func (rc *RuleClassifier) Match(query string) Kind {
	lower := strings.ToLower(query)
	for _, r := range rc.rules {
		if containsTrigger(lower, r.trigger) {
			return r.kind
		}
	}
	return JustChat
}

// Classify implements Classifier.
func (rc *RuleClassifier) Classify(_ context.Context, in Input) (*Decision, error) {
	kind := rc.Match(in.Query)
	d := &Decision{Kind: kind, Source: "rules"}
	if kind.IsSearch() {
		d.Search = &SearchArgs{
			Query:     in.Query,
			UserID:    in.UserID,
			TripID:    in.TripID,
			Latitude:  in.Latitude,
			Longitude: in.Longitude,
		}
	} else {
		d.Query = &QueryArgs{Query: in.Query}
	}
	return d, nil
}

// containsTrigger checks for the trigger at ASCII word boundaries. Hangul
// bytes never count as word characters, so particles may follow a trigger.
func containsTrigger(prompt, trigger string) bool {
	for offset := 0; offset < len(prompt); {
		idx := strings.Index(prompt[offset:], trigger)
		if idx == -1 {
			return false
		}
		idx += offset
		end := idx + len(trigger)
		if (idx == 0 || !isWordChar(prompt[idx-1])) && (end >= len(prompt) || !isWordChar(prompt[end])) {
			return true
		}
		offset = idx + 1
	}
	return false
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}

package itinerary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zen-systems/tripmate/pkg/plan"
)

// ParseError means the model reply could not be turned into a schedule.
type ParseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("itinerary parse: %s: %v", e.Reason, e.Err)
	}
	return "itinerary parse: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Entry is one item of the model's schedule.
type Entry struct {
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Place       string    `json:"place"`
	Address     string    `json:"address"`
	Latitude    flexFloat `json:"latitude"`
	Longitude   flexFloat `json:"longitude"`
	Description string    `json:"description"`
}

// flexFloat accepts a JSON number, a numeric string or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("coordinate %q: %w", s, err)
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

var timeLayouts = []string{plan.TimeLayout, "15:04", "3:04 PM", "15시 04분"}

// StripFences removes markdown code fences and any prose around the JSON
// array.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "```"); i >= 0 {
		rest := content[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		} else {
			rest = strings.TrimPrefix(rest, "json")
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		content = strings.TrimSpace(rest)
	}
	start := strings.IndexByte(content, '[')
	end := strings.LastIndexByte(content, ']')
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

// ParseEntries decodes the model reply and keeps the entries that fit the
// trip: dated within it, with a readable start time, visiting a place not
// already scheduled. It returns the kept entries and how many were discarded.
func ParseEntries(raw string, trip plan.Trip) ([]Entry, int, error) {
	body := StripFences(raw)
	var entries []Entry
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return nil, 0, &ParseError{Reason: "decode schedule", Raw: raw, Err: err}
	}

	seen := make(map[string]bool, len(entries))
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.Date = strings.TrimSpace(e.Date)
		if !trip.Contains(e.Date) {
			continue
		}
		if _, err := time.Parse(plan.DateLayout, e.Date); err != nil {
			continue
		}
		t, ok := normalizeTime(e.Time)
		if !ok {
			continue
		}
		e.Time = t
		name := strings.ToLower(strings.TrimSpace(e.Place))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if strings.TrimSpace(e.Title) == "" {
			e.Title = e.Place
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		return nil, len(entries), &ParseError{Reason: "no usable entries", Raw: raw}
	}
	return kept, len(entries) - len(kept), nil
}

func normalizeTime(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(plan.TimeLayout), true
		}
	}
	return "", false
}

package plan

import (
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/ringsaturn/tzf"
)

const defaultEventLength = time.Hour

// ZoneFinder resolves an IANA zone name from coordinates.
type ZoneFinder interface {
	GetTimezoneName(lng float64, lat float64) string
}

// NewZoneFinder returns the bundled tzf finder.
func NewZoneFinder() (ZoneFinder, error) {
	f, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("load timezone data: %w", err)
	}
	return f, nil
}

// ExportICS renders plans as an iCalendar document. Plan times are local to
// the plan's coordinates when zones is set, UTC otherwise. An event lasts an
// hour or until the next stop on the same day, whichever is sooner.
func ExportICS(name string, plans []Plan, zones ZoneFinder, now time.Time) (string, error) {
	type event struct {
		plan  Plan
		start time.Time
	}
	events := make([]event, 0, len(plans))
	for _, p := range plans {
		start, err := p.Start(zoneFor(p, zones))
		if err != nil {
			return "", fmt.Errorf("plan %s: %w", p.PlanID, err)
		}
		events = append(events, event{plan: p, start: start})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].start.Before(events[j].start) })

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//tripmate//itinerary//EN")
	if name != "" {
		cal.SetXWRCalName(name)
	}
	for i, e := range events {
		end := e.start.Add(defaultEventLength)
		if i+1 < len(events) {
			next := events[i+1]
			if next.plan.Date == e.plan.Date && next.start.After(e.start) && next.start.Before(end) {
				end = next.start
			}
		}
		ev := cal.AddEvent(e.plan.PlanID + "@tripmate")
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(e.start)
		ev.SetEndAt(end)
		ev.SetSummary(e.plan.Title)
		ev.SetLocation(location(e.plan))
		if e.plan.Description != "" {
			ev.SetDescription(e.plan.Description)
		}
	}
	return cal.Serialize(), nil
}

func zoneFor(p Plan, zones ZoneFinder) *time.Location {
	if zones == nil || (p.Latitude == 0 && p.Longitude == 0) {
		return time.UTC
	}
	name := zones.GetTimezoneName(p.Longitude, p.Latitude)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func location(p Plan) string {
	parts := make([]string, 0, 2)
	for _, s := range []string{p.Place, p.Address} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

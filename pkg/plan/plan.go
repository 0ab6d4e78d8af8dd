// Package plan persists itinerary entries and trip metadata.
package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Date and time layouts stored in plan rows.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

var (
	// ErrPlanNotFound means no plan matched the lookup.
	ErrPlanNotFound = errors.New("plan: not found")
	// ErrPlanLocked means the plan belongs to a crew and cannot be edited.
	ErrPlanLocked = errors.New("plan: owned by a crew")
	// ErrTripNotFound means the trip metadata row is missing.
	ErrTripNotFound = errors.New("plan: trip not found")
)

// PersistenceError reports a failed durable write. Batch writes are rolled
// back before it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Plan is one scheduled stop of a trip.
type Plan struct {
	PlanID      string         `db:"planId" json:"planId"`
	UserID      string         `db:"userId" json:"userId"`
	TripID      string         `db:"tripId" json:"tripId"`
	Title       string         `db:"title" json:"title"`
	Date        string         `db:"date" json:"date"`
	Time        string         `db:"time" json:"time"`
	Place       string         `db:"place" json:"place"`
	Address     string         `db:"address" json:"address"`
	Latitude    float64        `db:"latitude" json:"latitude"`
	Longitude   float64        `db:"longitude" json:"longitude"`
	Description string         `db:"description" json:"description"`
	CrewID      sql.NullString `db:"crewId" json:"-"`
}

// Locked reports whether the plan is owned by a crew.
func (p Plan) Locked() bool {
	return p.CrewID.Valid && p.CrewID.String != ""
}

// Start returns the plan start in loc.
func (p Plan) Start(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	layout := DateLayout + " " + TimeLayout
	if len(p.Time) == len("15:04") {
		layout = DateLayout + " 15:04"
	}
	return time.ParseInLocation(layout, p.Date+" "+p.Time, loc)
}

// Trip is the metadata row of a trip.
type Trip struct {
	TripID    string         `db:"tripId" json:"tripId"`
	UserID    string         `db:"userId" json:"userId"`
	StartDate string         `db:"startDate" json:"startDate"`
	EndDate   string         `db:"endDate" json:"endDate"`
	Memo      sql.NullString `db:"memo" json:"-"`
}

// Days lists every date from StartDate to EndDate inclusive.
func (t Trip) Days() ([]string, error) {
	start, err := time.Parse(DateLayout, t.StartDate)
	if err != nil {
		return nil, fmt.Errorf("trip %s start date: %w", t.TripID, err)
	}
	end, err := time.Parse(DateLayout, t.EndDate)
	if err != nil {
		return nil, fmt.Errorf("trip %s end date: %w", t.TripID, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("trip %s ends before it starts", t.TripID)
	}
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DateLayout))
	}
	return days, nil
}

// Contains reports whether date falls within the trip.
func (t Trip) Contains(date string) bool {
	return date >= t.StartDate && date <= t.EndDate && len(date) == len(DateLayout)
}

// Lookup addresses a single plan the way users name it.
type Lookup struct {
	UserID string
	TripID string
	Date   string
	Title  string
}

// Change holds the editable fields of a plan.
type Change struct {
	Title string
	Date  string
	Time  string
}

// Store is the durable storage used by the synthesizer and the update flow.
type Store interface {
	CreatePlans(ctx context.Context, plans []Plan) error
	FindPlan(ctx context.Context, l Lookup) (*Plan, error)
	GetPlan(ctx context.Context, planID string) (*Plan, error)
	UpdatePlan(ctx context.Context, planID string, c Change) error
	ListPlans(ctx context.Context, userID, tripID string) ([]Plan, error)
	Trip(ctx context.Context, tripID string) (*Trip, error)
	SetTripMemo(ctx context.Context, tripID, memo string) error
	UserPersonality(ctx context.Context, userID string) (string, error)
}

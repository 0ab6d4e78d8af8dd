// Package update stages plan edits and applies them once the user confirms.
package update

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zen-systems/tripmate/pkg/plan"
)

// ErrPlanLocked is returned for plans owned by a crew.
var ErrPlanLocked = plan.ErrPlanLocked

// InvalidChangeError reports a requested value that cannot be stored.
type InvalidChangeError struct {
	Field string
	Value string
}

func (e *InvalidChangeError) Error() string {
	return fmt.Sprintf("update: invalid %s %q", e.Field, e.Value)
}

// State is the position of a user in the edit flow.
type State int

const (
	StateIdle State = iota
	StateStaged
)

func (s State) String() string {
	if s == StateStaged {
		return "staged"
	}
	return "idle"
}

// Request names a plan and the values to change.
type Request struct {
	UserID   string
	TripID   string
	Date     string
	Title    string
	NewTitle string
	NewDate  string
	NewTime  string
}

// Staged is an edit awaiting confirmation.
type Staged struct {
	Current plan.Plan
	Change  plan.Change
	Version int64
}

// Applied is a committed edit.
type Applied struct {
	Before plan.Plan
	After  plan.Plan
}

// Machine runs the request/confirm edit flow.
type Machine struct {
	plans   plan.Store
	pending PendingStore
	now     func() time.Time
	logger  func(format string, args ...any)
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the staging timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger func(format string, args ...any)) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// NewMachine creates a Machine.
func NewMachine(plans plan.Store, pending PendingStore, opts ...Option) *Machine {
	m := &Machine{plans: plans, pending: pending, now: time.Now, logger: log.Printf}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RequestUpdate looks up the plan and stages the change, replacing any edit
// the user had staged before. Locked plans are refused without staging,
// before the new values are checked.
func (m *Machine) RequestUpdate(ctx context.Context, req Request) (*Staged, error) {
	current, err := m.plans.FindPlan(ctx, plan.Lookup{
		UserID: req.UserID,
		TripID: req.TripID,
		Date:   req.Date,
		Title:  req.Title,
	})
	if err != nil {
		return nil, err
	}
	if current.Locked() {
		return nil, ErrPlanLocked
	}

	newTime, err := normalizeTime(req.NewTime)
	if err != nil {
		return nil, err
	}
	if req.NewDate != "" {
		if _, err := time.Parse(plan.DateLayout, req.NewDate); err != nil {
			return nil, &InvalidChangeError{Field: "date", Value: req.NewDate}
		}
	}

	change := plan.Change{Title: current.Title, Date: current.Date, Time: newTime}
	if t := strings.TrimSpace(req.NewTitle); t != "" {
		change.Title = t
	}
	if req.NewDate != "" {
		change.Date = req.NewDate
	}

	stored, err := m.pending.Put(ctx, Pending{
		UserID:   req.UserID,
		TripID:   req.TripID,
		PlanID:   current.PlanID,
		Before:   *current,
		Change:   change,
		StagedAt: m.now(),
	})
	if err != nil {
		return nil, err
	}
	m.logger("[update] staged v%d for user %s plan %s", stored.Version, req.UserID, current.PlanID)
	return &Staged{Current: *current, Change: change, Version: stored.Version}, nil
}

// ConfirmUpdate applies the user's staged edit. A plan claimed by a crew
// after staging is still refused. Other write failures put the edit back so
// the user can confirm again.
func (m *Machine) ConfirmUpdate(ctx context.Context, userID string) (*Applied, error) {
	p, err := m.pending.Take(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := m.plans.UpdatePlan(ctx, p.PlanID, p.Change); err != nil {
		if !errors.Is(err, ErrPlanLocked) && !errors.Is(err, plan.ErrPlanNotFound) {
			if _, perr := m.pending.Put(ctx, *p); perr != nil {
				m.logger("[update] restore pending for %s: %v", userID, perr)
			}
		}
		return nil, err
	}

	after := p.Before
	after.Title = p.Change.Title
	after.Date = p.Change.Date
	after.Time = p.Change.Time
	m.logger("[update] applied v%d for user %s plan %s", p.Version, userID, p.PlanID)
	return &Applied{Before: p.Before, After: after}, nil
}

// State reports whether the user has a staged edit.
func (m *Machine) State(ctx context.Context, userID string) (State, error) {
	_, err := m.pending.Get(ctx, userID)
	if errors.Is(err, ErrNoPending) {
		return StateIdle, nil
	}
	if err != nil {
		return StateIdle, err
	}
	return StateStaged, nil
}

func normalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{plan.TimeLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(plan.TimeLayout), nil
		}
	}
	return "", &InvalidChangeError{Field: "time", Value: s}
}

// Summary is the confirmation prompt shown after staging.
func (s *Staged) Summary(confirmToken string) string {
	var sb strings.Builder
	sb.WriteString("해당 일정을 다음과 같이 수정하시겠습니까?\n\n[현재 일정]\n")
	writePlan(&sb, s.Current)
	sb.WriteString("\n[수정할 일정]\n")
	fmt.Fprintf(&sb, "일정명: %s\n날짜: %s\n시간: %s\n", s.Change.Title, s.Change.Date, s.Change.Time)
	fmt.Fprintf(&sb, "\n수정하려면 '%s'을 입력해주세요.", confirmToken)
	return sb.String()
}

// Summary reports the edit before and after.
func (a *Applied) Summary() string {
	var sb strings.Builder
	sb.WriteString("성공적으로 일정이 수정되었습니다!\n\n[수정 전 일정]\n")
	writePlan(&sb, a.Before)
	sb.WriteString("\n[수정 후 일정]\n")
	writePlan(&sb, a.After)
	return strings.TrimRight(sb.String(), "\n")
}

func writePlan(sb *strings.Builder, p plan.Plan) {
	fmt.Fprintf(sb, "일정명: %s\n날짜: %s\n시간: %s\n장소: %s\n주소: %s\n", p.Title, p.Date, p.Time, p.Place, p.Address)
}

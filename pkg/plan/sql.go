package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"
)

const (
	plansTable = "tripPlans"
	tripsTable = "myTrips"
	usersTable = "users"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS {{tripPlans}} (
		[[planId]] VARCHAR(36) NOT NULL PRIMARY KEY,
		[[userId]] VARCHAR(64) NOT NULL,
		[[tripId]] VARCHAR(64) NOT NULL,
		[[title]] VARCHAR(255) NOT NULL,
		[[date]] VARCHAR(10) NOT NULL,
		[[time]] VARCHAR(8) NOT NULL,
		[[place]] VARCHAR(255) NOT NULL,
		[[address]] VARCHAR(512) NOT NULL,
		[[latitude]] DOUBLE NOT NULL,
		[[longitude]] DOUBLE NOT NULL,
		[[description]] TEXT NOT NULL,
		[[crewId]] VARCHAR(64) NULL
	)`,
	`CREATE TABLE IF NOT EXISTS {{myTrips}} (
		[[tripId]] VARCHAR(64) NOT NULL PRIMARY KEY,
		[[userId]] VARCHAR(64) NOT NULL,
		[[startDate]] VARCHAR(10) NOT NULL,
		[[endDate]] VARCHAR(10) NOT NULL,
		[[memo]] TEXT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS {{users}} (
		[[userId]] VARCHAR(64) NOT NULL PRIMARY KEY,
		[[personality]] TEXT NULL
	)`,
}

// SQLStore implements Store on a relational database through dbx.
type SQLStore struct {
	db *dbx.DB
}

// OpenSQL opens driver/dsn. Supported drivers are "mysql" and "sqlite";
// the caller imports the driver package.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	db, err := dbx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return NewSQLStore(db), nil
}

// NewSQLStore wraps an open dbx handle.
func NewSQLStore(db *dbx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates the tables when missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.NewQuery(stmt).WithContext(ctx).Execute(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func planParams(p Plan) dbx.Params {
	return dbx.Params{
		"planId":      p.PlanID,
		"userId":      p.UserID,
		"tripId":      p.TripID,
		"title":       p.Title,
		"date":        p.Date,
		"time":        p.Time,
		"place":       p.Place,
		"address":     p.Address,
		"latitude":    p.Latitude,
		"longitude":   p.Longitude,
		"description": p.Description,
		"crewId":      p.CrewID,
	}
}

// CreatePlans inserts every plan in one transaction. Any failure rolls the
// whole batch back.
func (s *SQLStore) CreatePlans(ctx context.Context, plans []Plan) error {
	err := s.db.TransactionalContext(ctx, nil, func(tx *dbx.Tx) error {
		for _, p := range plans {
			if _, err := tx.Insert(plansTable, planParams(p)).WithContext(ctx).Execute(); err != nil {
				return fmt.Errorf("insert plan %s: %w", p.PlanID, err)
			}
		}
		return nil
	})
	if err != nil {
		return &PersistenceError{Op: "create plans", Err: err}
	}
	return nil
}

// FindPlan returns the first plan matching the lookup.
func (s *SQLStore) FindPlan(ctx context.Context, l Lookup) (*Plan, error) {
	var p Plan
	err := s.db.Select().
		From(plansTable).
		Where(dbx.HashExp{"userId": l.UserID, "tripId": l.TripID, "date": l.Date, "title": l.Title}).
		OrderBy("[[time]] ASC").
		Limit(1).
		WithContext(ctx).
		One(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find plan: %w", err)
	}
	return &p, nil
}

// GetPlan loads a plan by id.
func (s *SQLStore) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	var p Plan
	err := s.db.Select().From(plansTable).Where(dbx.HashExp{"planId": planID}).WithContext(ctx).One(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return &p, nil
}

// UpdatePlan applies c to an unlocked plan. The lock is enforced in the
// UPDATE itself, so a crew claim racing with the edit wins.
func (s *SQLStore) UpdatePlan(ctx context.Context, planID string, c Change) error {
	unlocked := dbx.Or(dbx.HashExp{"crewId": nil}, dbx.HashExp{"crewId": ""})
	res, err := s.db.Update(plansTable,
		dbx.Params{"title": c.Title, "date": c.Date, "time": c.Time},
		dbx.And(dbx.HashExp{"planId": planID}, unlocked),
	).WithContext(ctx).Execute()
	if err != nil {
		return &PersistenceError{Op: "update plan", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	// Zero rows: missing, locked, or (on MySQL) unchanged values.
	current, err := s.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if current.Locked() {
		return ErrPlanLocked
	}
	return nil
}

// ListPlans returns a trip's plans ordered by date and time.
func (s *SQLStore) ListPlans(ctx context.Context, userID, tripID string) ([]Plan, error) {
	var plans []Plan
	err := s.db.Select().
		From(plansTable).
		Where(dbx.HashExp{"userId": userID, "tripId": tripID}).
		OrderBy("[[date]] ASC", "[[time]] ASC").
		WithContext(ctx).
		All(&plans)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// Trip loads trip metadata.
func (s *SQLStore) Trip(ctx context.Context, tripID string) (*Trip, error) {
	var t Trip
	err := s.db.Select().From(tripsTable).Where(dbx.HashExp{"tripId": tripID}).WithContext(ctx).One(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load trip: %w", err)
	}
	return &t, nil
}

// SaveTrip inserts or replaces trip metadata.
func (s *SQLStore) SaveTrip(ctx context.Context, t Trip) error {
	return s.upsert(ctx, tripsTable, dbx.HashExp{"tripId": t.TripID}, dbx.Params{
		"tripId":    t.TripID,
		"userId":    t.UserID,
		"startDate": t.StartDate,
		"endDate":   t.EndDate,
		"memo":      t.Memo,
	})
}

// SetTripMemo attaches the generated memo to a trip.
func (s *SQLStore) SetTripMemo(ctx context.Context, tripID, memo string) error {
	if _, err := s.Trip(ctx, tripID); err != nil {
		return err
	}
	_, err := s.db.Update(tripsTable, dbx.Params{"memo": memo}, dbx.HashExp{"tripId": tripID}).WithContext(ctx).Execute()
	if err != nil {
		return &PersistenceError{Op: "set trip memo", Err: err}
	}
	return nil
}

// UserPersonality returns the stored personality JSON, or "" when the user
// has none.
func (s *SQLStore) UserPersonality(ctx context.Context, userID string) (string, error) {
	var row struct {
		Personality sql.NullString `db:"personality"`
	}
	err := s.db.Select("personality").From(usersTable).Where(dbx.HashExp{"userId": userID}).WithContext(ctx).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load personality: %w", err)
	}
	return row.Personality.String, nil
}

// SaveUser inserts or replaces a user's personality JSON.
func (s *SQLStore) SaveUser(ctx context.Context, userID, personality string) error {
	return s.upsert(ctx, usersTable, dbx.HashExp{"userId": userID}, dbx.Params{
		"userId":      userID,
		"personality": personality,
	})
}

func (s *SQLStore) upsert(ctx context.Context, table string, key dbx.HashExp, params dbx.Params) error {
	err := s.db.TransactionalContext(ctx, nil, func(tx *dbx.Tx) error {
		var n int
		if err := tx.Select("COUNT(*)").From(table).Where(key).WithContext(ctx).Row(&n); err != nil {
			return err
		}
		if n == 0 {
			_, err := tx.Insert(table, params).WithContext(ctx).Execute()
			return err
		}
		_, err := tx.Update(table, params, key).WithContext(ctx).Execute()
		return err
	})
	if err != nil {
		return &PersistenceError{Op: "save " + table, Err: err}
	}
	return nil
}

// Package hours keeps a local log of study sessions in SQLite.
package hours

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/knzhou-cli/knzhou/internal/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS knzhou_hours (
    id INTEGER PRIMARY KEY,
    focused REAL NOT NULL,
    unfocused REAL NOT NULL,
    day TEXT NOT NULL -- RFC3339
);

CREATE INDEX IF NOT EXISTS idx_hours_day ON knzhou_hours(day);
`

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidHours    = errors.New("invalid hours")
)

// Session is one logged block of study time, in hours.
type Session struct {
	ID        int64
	Focused   float64
	Unfocused float64
	Day       time.Time
}

func (s Session) Total() float64 {
	return s.Focused + s.Unfocused
}

type dbSession struct {
	ID        int64   `db:"id"`
	Focused   float64 `db:"focused"`
	Unfocused float64 `db:"unfocused"`
	Day       string  `db:"day"`
}

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore opens the database at path, creating it and the table if needed.
// Use ":memory:" for a throwaway store.
func NewStore(path string) (*Store, error) {
	sqlDB, err := db.NewSqliteDB(db.WithPath(path), db.WithMaxOpenConns(1), db.WithMaxIdleConns(1))
	if err != nil {
		return nil, fmt.Errorf("open hours db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("init hours schema: %w", err)
	}

	return &Store{db: sqlDB, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Add records a session and returns its id. A zero Day means now.
func (s *Store) Add(session Session) (int64, error) {
	if err := validate(session.Focused, session.Unfocused); err != nil {
		return 0, err
	}
	day := session.Day
	if day.IsZero() {
		day = s.now()
	}

	row := dbSession{
		Focused:   session.Focused,
		Unfocused: session.Unfocused,
		Day:       day.UTC().Format(time.RFC3339),
	}
	res, err := s.db.NamedExec(`INSERT INTO knzhou_hours (focused, unfocused, day) VALUES (:focused, :unfocused, :day)`, row)
	if err != nil {
		return 0, fmt.Errorf("add hours: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add hours: %w", err)
	}
	slog.Debug("hours", "op", "Add", "id", id, "focused", session.Focused, "unfocused", session.Unfocused)
	return id, nil
}

// List returns every session ordered by day.
func (s *Store) List() ([]Session, error) {
	var rows []dbSession
	if err := s.db.Select(&rows, "SELECT id, focused, unfocused, day FROM knzhou_hours ORDER BY day, id"); err != nil {
		return nil, fmt.Errorf("list hours: %w", err)
	}

	sessions := make([]Session, 0, len(rows))
	for _, r := range rows {
		day, err := time.Parse(time.RFC3339, r.Day)
		if err != nil {
			slog.Warn("hours: bad day value", "id", r.ID, "value", r.Day, "error", err)
		}
		sessions = append(sessions, Session{
			ID:        r.ID,
			Focused:   r.Focused,
			Unfocused: r.Unfocused,
			Day:       day,
		})
	}
	return sessions, nil
}

// Total sums focused and unfocused hours over all sessions.
func (s *Store) Total() (focused, unfocused float64, err error) {
	var totals struct {
		Focused   float64 `db:"focused"`
		Unfocused float64 `db:"unfocused"`
	}
	if err := s.db.Get(&totals, "SELECT TOTAL(focused) AS focused, TOTAL(unfocused) AS unfocused FROM knzhou_hours"); err != nil {
		return 0, 0, fmt.Errorf("total hours: %w", err)
	}
	return totals.Focused, totals.Unfocused, nil
}

func (s *Store) Delete(id int64) error {
	res, err := s.db.Exec("DELETE FROM knzhou_hours WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("session %d: %w", id, ErrSessionNotFound)
	}
	return nil
}

// ParseHours reads "<focused> [unfocused]" command arguments.
func ParseHours(args []string) (Session, error) {
	if len(args) == 0 || len(args) > 2 {
		return Session{}, fmt.Errorf("%w: expected <focused> [unfocused]", ErrInvalidHours)
	}

	var vals [2]float64
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return Session{}, fmt.Errorf("%w: %q is not a number", ErrInvalidHours, arg)
		}
		vals[i] = v
	}
	if err := validate(vals[0], vals[1]); err != nil {
		return Session{}, err
	}
	return Session{Focused: vals[0], Unfocused: vals[1]}, nil
}

func validate(focused, unfocused float64) error {
	for _, v := range []float64{focused, unfocused} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidHours, v)
		}
	}
	if focused == 0 && unfocused == 0 {
		return fmt.Errorf("%w: nothing to log", ErrInvalidHours)
	}
	return nil
}

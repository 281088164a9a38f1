// Package persistence records run history to SQLite: one row per run, one
// row of aggregate counts per tick, and the event log. History is write-only
// from the simulation's point of view; a world is never rebuilt from it.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/outbreak/internal/engine"
)

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// DB wraps a SQLite connection for run history.
type DB struct {
	conn *sqlx.DB
}

// RunRow is one simulation run.
type RunRow struct {
	ID         string `db:"id" json:"id"`
	StartedAt  string `db:"started_at" json:"started_at"`
	Population int    `db:"population" json:"population"`
}

// StatsRow is the aggregate state after one tick.
type StatsRow struct {
	RunID      string `db:"run_id" json:"run_id"`
	Tick       uint64 `db:"tick" json:"tick"`
	RecordedAt string `db:"recorded_at" json:"recorded_at"`
	Population int    `db:"population" json:"population"`
	Healthy    int    `db:"healthy" json:"healthy"`
	Sick       int    `db:"sick" json:"sick"`
	Dying      int    `db:"dying" json:"dying"`
	AtHome     int    `db:"at_home" json:"at_home"`
	Walking    int    `db:"walking" json:"walking"`
	GoingHome  int    `db:"going_home" json:"going_home"`
	Infections int    `db:"infections" json:"infections"`
	Recoveries int    `db:"recoveries" json:"recoveries"`
	Deaths     int    `db:"deaths" json:"deaths"`
}

// EventRow is a persisted engine event.
type EventRow struct {
	RunID       string        `db:"run_id" json:"run_id"`
	Tick        uint64        `db:"tick" json:"tick"`
	Category    string        `db:"category" json:"category"`
	Description string        `db:"description" json:"description"`
	PersonID    sql.NullInt64 `db:"person_id" json:"-"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent ticks.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// RecordTick stores a tick report: the run row on restart, the stats row,
// and the events.
func (db *DB) RecordTick(r engine.TickReport) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	runID := r.RunID.String()
	at := r.Time.UTC().Format(timeFormat)

	if r.Restarted {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO runs (id, started_at, population) VALUES (?, ?, ?)",
			runID, at, r.Stats.Population,
		); err != nil {
			return fmt.Errorf("insert run %s: %w", runID, err)
		}
	}

	st := r.Stats
	if _, err := tx.Exec(`INSERT OR REPLACE INTO tick_stats
		(run_id, tick, recorded_at, population, healthy, sick, dying,
		 at_home, walking, going_home, infections, recoveries, deaths)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, int64(r.Tick), at, st.Population, st.Healthy, st.Sick, st.Dying,
		st.AtHome, st.Walking, st.GoingHome, st.Infections, st.Recoveries, st.Deaths,
	); err != nil {
		return fmt.Errorf("insert stats %s/%d: %w", runID, r.Tick, err)
	}

	for _, e := range r.Events {
		var personID sql.NullInt64
		if e.PersonID != nil {
			personID = sql.NullInt64{Int64: int64(*e.PersonID), Valid: true}
		}
		if _, err := tx.Exec(
			"INSERT INTO events (run_id, tick, category, description, person_id) VALUES (?, ?, ?, ?, ?)",
			runID, int64(e.Tick), e.Category, e.Description, personID,
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// Recorder returns an engine.Simulation OnReport hook that stores every
// report and logs failures instead of failing the tick.
func (db *DB) Recorder() func(engine.TickReport) {
	return func(r engine.TickReport) {
		if err := db.RecordTick(r); err != nil {
			slog.Error("history record failed", "run", r.RunID, "tick", r.Tick, "error", err)
		}
	}
}

// LatestRun returns the most recently started run.
func (db *DB) LatestRun() (RunRow, error) {
	var run RunRow
	err := db.conn.Get(&run, "SELECT id, started_at, population FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("no runs recorded: %w", err)
	}
	return run, err
}

// Runs returns up to limit runs, newest first.
func (db *DB) Runs(limit int) ([]RunRow, error) {
	var runs []RunRow
	err := db.conn.Select(&runs,
		"SELECT id, started_at, population FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// LoadStatsHistory returns stats rows for a run with fromTick <= tick <= toTick,
// in tick order.
func (db *DB) LoadStatsHistory(runID string, fromTick, toTick uint64, limit int) ([]StatsRow, error) {
	var rows []StatsRow
	err := db.conn.Select(&rows, `SELECT run_id, tick, recorded_at, population, healthy, sick, dying,
		at_home, walking, going_home, infections, recoveries, deaths
		FROM tick_stats WHERE run_id = ? AND tick >= ? AND tick <= ?
		ORDER BY tick ASC LIMIT ?`,
		runID, int64(fromTick), int64(toTick), limit,
	)
	return rows, err
}

// RecentEvents returns the most recent N events of a run, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]EventRow, error) {
	var events []EventRow
	err := db.conn.Select(&events,
		"SELECT run_id, tick, category, description, person_id FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}

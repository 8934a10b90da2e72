// Package store records per-step diagnostics of a simulation run into a
// SQLite database for post-run inspection.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/z3r0c0d3r/predprey/fem"
)

// Store wraps a SQLite database holding one row per run and one row per
// completed time step.
type Store struct {
	db    *sql.DB
	runID int64
}

// Open opens (creating if needed) the database at path and applies the
// schema.  Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		alpha REAL NOT NULL,
		beta REAL NOT NULL,
		gamma REAL NOT NULL,
		delta REAL NOT NULL,
		t_final REAL NOT NULL,
		dt REAL NOT NULL,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS steps (
		run_id INTEGER NOT NULL,
		step INTEGER NOT NULL,
		time REAL NOT NULL,
		u_iters INTEGER NOT NULL,
		v_iters INTEGER NOT NULL,
		u_min REAL NOT NULL,
		u_max REAL NOT NULL,
		u_sum REAL NOT NULL,
		v_min REAL NOT NULL,
		v_max REAL NOT NULL,
		v_sum REAL NOT NULL,
		PRIMARY KEY (run_id, step),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginRun inserts a run row for the given parameters; subsequent
// RecordStep calls attach to it.
func (s *Store) BeginRun(p fem.Params) error {
	res, err := s.db.Exec(
		`INSERT INTO runs (alpha, beta, gamma, delta, t_final, dt) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Alpha, p.Beta, p.Gamma, p.Delta, p.T, p.Dt)
	if err != nil {
		return fmt.Errorf("store: begin run: %w", err)
	}
	s.runID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: begin run: %w", err)
	}
	return nil
}

// RecordStep stores the diagnostics of one completed step.
func (s *Store) RecordStep(info fem.StepInfo) error {
	_, err := s.db.Exec(
		`INSERT INTO steps (run_id, step, time, u_iters, v_iters,
			u_min, u_max, u_sum, v_min, v_max, v_sum)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, info.Step, info.Time, info.UIters, info.VIters,
		info.UMin, info.UMax, info.USum, info.VMin, info.VMax, info.VSum)
	if err != nil {
		return fmt.Errorf("store: record step %v: %w", info.Step, err)
	}
	return nil
}

// StepCount returns the number of recorded steps for the current run.
func (s *Store) StepCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM steps WHERE run_id = ?`, s.runID).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

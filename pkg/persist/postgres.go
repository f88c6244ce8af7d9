// Package persist is an optional Postgres-backed alternative to
// writing the closed session state blob (returned by session.Close) to
// a host-managed file, for a host that already keeps its device
// fleet's state in a database.
package persist

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Store wraps a *sql.DB opened with the postgres driver.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and ensures the backing table exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("persist: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("persist: ping: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		return nil, fmt.Errorf("persist: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS sky_sessions (
	device_id  TEXT PRIMARY KEY,
	state      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Save upserts the closed session state blob for deviceID.
func (s *Store) Save(deviceID string, state []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO sky_sessions (device_id, state, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (device_id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		deviceID, state)
	if err != nil {
		return fmt.Errorf("persist: save %s: %w", deviceID, err)
	}
	return nil
}

// Load returns the most recently saved state blob for deviceID, or nil
// if none exists.
func (s *Store) Load(deviceID string) ([]byte, error) {
	var state []byte
	err := s.db.QueryRow(`SELECT state FROM sky_sessions WHERE device_id = $1`, deviceID).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: load %s: %w", deviceID, err)
	}
	return state, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

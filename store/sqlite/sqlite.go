// Package sqlite implements store.SessionStore using SQLite.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scaffy/scaffy/model"
	"github.com/scaffy/scaffy/store"
)

// draftID is the row key used for a session that has no minted ID yet
// (state mutated before the first successful submission).
const draftID = "_draft"

// Store manages session-state and event persistence in SQLite.
//
// Session state is kept as an opaque JSON blob per row; the single-row
// current_session table is the "current slot" that rehydration reads.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT (datetime('now')),
			updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS current_session (
			slot       INTEGER PRIMARY KEY CHECK (slot = 0),
			session_id TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			stream_id  TEXT NOT NULL,
			type       TEXT NOT NULL,
			data       TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_events_stream_id
			ON events(stream_id);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveState upserts the serialized state and points the current slot at it.
// Saving identical state twice leaves the stored blob unchanged.
func (s *Store) SaveState(state model.SessionState) error {
	id := state.ID
	if id == "" {
		id = draftID
	}

	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("serializing session state: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		id, string(blob), now, now,
	)
	if err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO current_session (slot, session_id) VALUES (0, ?)
		 ON CONFLICT(slot) DO UPDATE SET session_id = excluded.session_id`,
		id,
	)
	if err != nil {
		return fmt.Errorf("updating current slot: %w", err)
	}
	return nil
}

// LoadCurrent rehydrates the last persisted session state. Absence or
// corruption of the persisted value is not an error: both mean "no prior
// session", corruption is logged and the blob discarded.
func (s *Store) LoadCurrent() (model.SessionState, bool) {
	var id string
	err := s.db.QueryRow(`SELECT session_id FROM current_session WHERE slot = 0`).Scan(&id)
	if err != nil {
		return model.SessionState{}, false
	}

	var blob string
	err = s.db.QueryRow(`SELECT state FROM sessions WHERE id = ?`, id).Scan(&blob)
	if err != nil {
		return model.SessionState{}, false
	}

	var state model.SessionState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		log.Printf("discarding corrupt session state for %s: %v", id, err)
		return model.SessionState{}, false
	}
	return state, true
}

// LoadState returns the state persisted under id.
func (s *Store) LoadState(id string) (model.SessionState, error) {
	var blob string
	err := s.db.QueryRow(`SELECT state FROM sessions WHERE id = ?`, id).Scan(&blob)
	if err != nil {
		return model.SessionState{}, fmt.Errorf("loading session %s: %w", id, err)
	}

	var state model.SessionState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return model.SessionState{}, fmt.Errorf("parsing session %s: %w", id, err)
	}
	return state, nil
}

// ListSessions returns summaries of all persisted sessions, newest first.
// The draft row and corrupt rows are skipped.
func (s *Store) ListSessions() ([]store.SessionSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, state, created_at, updated_at FROM sessions
		 WHERE id != ? ORDER BY created_at DESC`, draftID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []store.SessionSummary
	for rows.Next() {
		var id, blob string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &blob, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		var state model.SessionState
		if err := json.Unmarshal([]byte(blob), &state); err != nil {
			log.Printf("skipping corrupt session row %s: %v", id, err)
			continue
		}

		summary := store.SessionSummary{
			ID:           id,
			TargetLang:   state.Request.TargetLanguage,
			HasSubmitted: state.HasSubmitted(),
			Error:        state.Error,
			CreatedAt:    createdAt.UTC().Format(time.RFC3339),
			UpdatedAt:    updatedAt.UTC().Format(time.RFC3339),
		}
		if state.Breakdown != nil {
			summary.Overview = model.Truncate(state.Breakdown.Overview, 120)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// AddEvent inserts a new event and fills in its ID.
func (s *Store) AddEvent(event *model.Event) error {
	result, err := s.db.Exec(
		`INSERT INTO events (stream_id, type, data, created_at)
		 VALUES (?, ?, ?, ?)`,
		event.StreamID, event.Type, event.Data, event.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = id
	return nil
}

// GetEvents returns events for a stream, optionally after a given event ID.
func (s *Store) GetEvents(streamID string, afterID int64) ([]*model.Event, error) {
	rows, err := s.db.Query(
		`SELECT id, stream_id, type, data, created_at
		 FROM events
		 WHERE stream_id = ? AND id > ?
		 ORDER BY id ASC`,
		streamID, afterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		e := &model.Event{}
		if err := rows.Scan(&e.ID, &e.StreamID, &e.Type, &e.Data, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

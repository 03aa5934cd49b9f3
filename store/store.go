// Package store defines the persistence interface for session state and
// submission events.
package store

import "github.com/scaffy/scaffy/model"

// SessionSummary is a lightweight listing entry for an archived session.
type SessionSummary struct {
	ID           string `json:"id"`
	Overview     string `json:"overview,omitempty"`
	TargetLang   string `json:"target_language"`
	HasSubmitted bool   `json:"has_submitted"`
	Error        string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// SessionStore persists session state and submission events.
//
// State is stored as an opaque serialized blob per session, plus a single
// "current" slot naming the active session. A missing or corrupt blob is
// never an error: implementations log it and report "no prior session" so
// rehydration always yields a usable state.
type SessionStore interface {
	// SaveState writes the serialized state under its session ID (or under
	// the current slot when the state has no ID yet) and marks it current.
	// Writes are synchronous and idempotent.
	SaveState(state model.SessionState) error

	// LoadCurrent returns the last persisted state, or (zero, false) when no
	// prior session exists or the persisted value cannot be parsed.
	LoadCurrent() (model.SessionState, bool)

	// LoadState returns the state persisted under id.
	LoadState(id string) (model.SessionState, error)

	// ListSessions returns summaries of all persisted sessions, newest first.
	// Corrupt entries are skipped.
	ListSessions() ([]SessionSummary, error)

	// AddEvent appends a submission event and fills in its ID.
	AddEvent(event *model.Event) error

	// GetEvents returns events for a stream with ID greater than afterID,
	// oldest first.
	GetEvents(streamID string, afterID int64) ([]*model.Event, error)

	Close() error
}

// Package session holds the live session state for the process.
//
// The Container is an explicitly-owned state holder: it is constructed once,
// passed by reference to the orchestrator and the HTTP layer, and never
// exposed as package-level global state. Every mutation writes through to
// the store synchronously, so the persisted form is always current and the
// session survives process restarts.
package session

import (
	"log"
	"sync"
	"time"

	"github.com/scaffy/scaffy/model"
	"github.com/scaffy/scaffy/store"
)

// Container owns the current SessionState and its persistence lifecycle.
type Container struct {
	mu    sync.Mutex
	store store.SessionStore
	state model.SessionState
}

// New creates a Container rehydrated from the store's current slot. When no
// prior session exists, or the persisted value cannot be parsed, it starts
// from the empty default state.
func New(st store.SessionStore) *Container {
	c := &Container{store: st}
	if state, ok := st.LoadCurrent(); ok {
		c.state = state
	} else {
		c.state = emptyState()
	}
	return c
}

func emptyState() model.SessionState {
	now := time.Now().UTC()
	return model.SessionState{CreatedAt: now, UpdatedAt: now}
}

// State returns a snapshot of the current session state.
func (c *Container) State() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// persistLocked writes the current state through to the store. The write is
// synchronous; a failure is logged but does not roll back the in-memory
// mutation, so the session stays renderable.
func (c *Container) persistLocked() {
	c.state.UpdatedAt = time.Now().UTC()
	if err := c.store.SaveState(c.state); err != nil {
		log.Printf("persisting session state: %v", err)
	}
}

// SetLoading marks a submission as in flight (or finished).
func (c *Container) SetLoading(loading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = loading
	c.persistLocked()
}

// SetError records a session-level error message.
func (c *Container) SetError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = msg
	c.persistLocked()
}

// SetCode replaces the editable code text. Its lifecycle is independent of
// the submission fields: edits are persisted even mid-session.
func (c *Container) SetCode(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Code = code
	c.persistLocked()
}

// SetRequest records the request being submitted.
func (c *Container) SetRequest(req model.AssignmentRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Request = req
	c.persistLocked()
}

// ApplyResult installs a successful generation result: the minted session
// ID, both generation outputs, and the derived initial editor code.
func (c *Container) ApplyResult(id string, breakdown *model.TaskBreakdown, scaffold *model.ScaffoldPackage, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ID = id
	c.state.Breakdown = breakdown
	c.state.Scaffold = scaffold
	c.state.Code = code
	c.state.Error = ""
	c.persistLocked()
}

// Reset clears the submission fields for a new assignment. The editable
// code is deliberately left alone: it belongs to the editing surface, not
// the submission.
func (c *Container) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ID = ""
	c.state.Request = model.AssignmentRequest{}
	c.state.Breakdown = nil
	c.state.Scaffold = nil
	c.state.Error = ""
	c.state.Loading = false
	c.persistLocked()
}

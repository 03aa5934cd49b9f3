// Package engine provides the submission orchestration logic for Scaffy.
// It drives the generation pipeline, reports staged progress, and writes
// results through the session container. It depends only on interfaces
// (store, eventbus, Generator) so tests can swap every collaborator.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scaffy/scaffy/compose"
	"github.com/scaffy/scaffy/eventbus"
	"github.com/scaffy/scaffy/model"
	"github.com/scaffy/scaffy/segment"
	"github.com/scaffy/scaffy/session"
	"github.com/scaffy/scaffy/store"
)

// Generator is the boundary with the external generation service.
type Generator interface {
	Generate(ctx context.Context, req model.AssignmentRequest, onProgress func(model.ProgressEvent)) (*model.TaskBreakdown, *model.ScaffoldPackage, error)
}

// Hinter provides live hints for a stuck learner. Optional.
type Hinter interface {
	Hint(ctx context.Context, req model.AssignmentRequest, task model.Task, hr model.HintRequest) (model.Hint, error)
}

// Notifier is told when a scaffold finishes generating. Optional.
type Notifier interface {
	ScaffoldReady(ctx context.Context, state model.SessionState)
}

// Engine orchestrates the submission lifecycle for the current session.
type Engine struct {
	session  *session.Container
	store    store.SessionStore
	bus      eventbus.Bus
	gen      Generator
	hinter   Hinter
	notifier Notifier

	mu     sync.Mutex
	stream string // event stream ID of the most recent submission
}

// New creates an Engine. hinter and notifier may be nil.
func New(sess *session.Container, st store.SessionStore, bus eventbus.Bus, gen Generator, hinter Hinter, notifier Notifier) *Engine {
	return &Engine{
		session:  sess,
		store:    st,
		bus:      bus,
		gen:      gen,
		hinter:   hinter,
		notifier: notifier,
	}
}

// Store returns the session store.
func (e *Engine) Store() store.SessionStore { return e.store }

// Bus returns the event bus.
func (e *Engine) Bus() eventbus.Bus { return e.bus }

// State returns a snapshot of the current session state.
func (e *Engine) State() model.SessionState { return e.session.State() }

// Stream returns the event stream ID of the most recent submission
// ("" before the first one).
func (e *Engine) Stream() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stream
}

// Submit drives one generation run to completion, blocking until the
// pipeline resolves. SubmitAsync is the non-blocking variant.
//
// At most one submission may be in flight: the loading flag is the mutual
// exclusion and a second call while it is set is rejected. A failed run
// leaves loading=false and a human-readable error in the session state; no
// retry happens internally. On success the complete stage is reported
// exactly once, before results are handed to the session container.
func (e *Engine) Submit(ctx context.Context, req model.AssignmentRequest, onProgress func(model.ProgressEvent)) error {
	streamID, err := e.begin(req)
	if err != nil {
		return err
	}
	return e.run(ctx, streamID, req, onProgress)
}

// SubmitAsync starts a submission in the background and returns its event
// stream ID. Callers follow progress via the event stream and the session's
// loading flag.
func (e *Engine) SubmitAsync(req model.AssignmentRequest) (string, error) {
	streamID, err := e.begin(req)
	if err != nil {
		return "", err
	}
	go func() {
		if err := e.run(context.Background(), streamID, req, nil); err != nil {
			log.Printf("background submission %s: %v", streamID, err)
		}
	}()
	return streamID, nil
}

// begin validates preconditions and flips the session into loading.
func (e *Engine) begin(req model.AssignmentRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", fmt.Errorf("assignment text cannot be empty")
	}
	if e.session.State().Loading {
		return "", fmt.Errorf("a submission is already in progress")
	}

	streamID := uuid.New().String()[:8]
	e.mu.Lock()
	e.stream = streamID
	e.mu.Unlock()

	e.session.SetRequest(req)
	e.session.SetError("")
	e.session.SetLoading(true)
	return streamID, nil
}

func (e *Engine) run(ctx context.Context, streamID string, req model.AssignmentRequest, onProgress func(model.ProgressEvent)) error {
	e.emitEvent(streamID, "status", "Parsing assignment...")
	guard := newStageGuard()
	report := func(ev model.ProgressEvent) {
		if !guard.admit(&ev) {
			return
		}
		e.emitProgress(streamID, ev)
		if onProgress != nil {
			onProgress(ev)
		}
	}
	report(model.ProgressEvent{Stage: model.StageParsing})

	breakdown, scaffold, err := e.gen.Generate(ctx, req, report)
	if err != nil {
		msg := fmt.Sprintf("Failed to generate scaffold: %v", err)
		log.Printf("submission %s failed: %v", streamID, err)
		e.session.SetError(msg)
		e.session.SetLoading(false)
		e.emitEvent(streamID, "error", msg)
		return err
	}

	// Complete is reported exactly once, before the results reach the store.
	completed, total := guard.generated()
	report(model.ProgressEvent{Stage: model.StageComplete, Completed: completed, Total: total})

	id := mintSessionID(time.Now())
	e.session.ApplyResult(id, breakdown, scaffold, initialCode(scaffold))
	e.session.SetLoading(false)

	e.emitEvent(streamID, "done", id)

	if e.notifier != nil {
		e.notifier.ScaffoldReady(ctx, e.session.State())
	}
	return nil
}

// mintSessionID derives a display/tracking label from the moment of
// success. Uniqueness is best-effort: collisions are acceptable because the
// ID is not a security token.
func mintSessionID(now time.Time) string {
	return fmt.Sprintf("session-%d", now.UnixMilli())
}

// initialCode derives the first editor content from a scaffold: the code
// snippet when present, else the primary starter file, else empty.
func initialCode(scaffold *model.ScaffoldPackage) string {
	if scaffold.CodeSnippet != "" {
		return scaffold.CodeSnippet
	}
	if primary, ok := scaffold.PrimaryFile(); ok {
		return primary.Content
	}
	return ""
}

// UpdateCode replaces the session's editable code text.
func (e *Engine) UpdateCode(code string) {
	e.session.SetCode(code)
}

// Reset clears the submission fields for a new assignment, leaving the
// editable code alone.
func (e *Engine) Reset() {
	e.session.Reset()
}

// TaskViews composes the per-task display model for the current session.
func (e *Engine) TaskViews() []compose.TaskView {
	return compose.Views(e.session.State())
}

// MarkerLine returns the 0-based editor line for the scroll-to-task command:
// the taskNumber'th line of the current code containing "todo".
func (e *Engine) MarkerLine(taskNumber int) (int, bool) {
	return segment.TodoLine(e.session.State().Code, taskNumber)
}

// Hint asks the live helper for a hint on one task of the current session.
func (e *Engine) Hint(ctx context.Context, hr model.HintRequest) (model.Hint, error) {
	if e.hinter == nil {
		return model.Hint{}, fmt.Errorf("hints are not configured")
	}
	state := e.session.State()
	if state.Breakdown == nil {
		return model.Hint{}, fmt.Errorf("no active session to hint on")
	}
	if hr.TaskIndex < 0 || hr.TaskIndex >= len(state.Breakdown.Tasks) {
		return model.Hint{}, fmt.Errorf("task index %d out of range", hr.TaskIndex)
	}
	if hr.Code == "" {
		hr.Code = state.Code
	}
	return e.hinter.Hint(ctx, state.Request, state.Breakdown.Tasks[hr.TaskIndex], hr)
}

// --- Event helpers ---

func (e *Engine) emitProgress(streamID string, ev model.ProgressEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("encoding progress event: %v", err)
		return
	}
	e.emitEvent(streamID, "progress", string(data))
}

func (e *Engine) emitEvent(streamID, eventType, data string) {
	event := &model.Event{
		StreamID:  streamID,
		Type:      eventType,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.AddEvent(event); err != nil {
		log.Printf("storing event: %v", err)
	}
	e.bus.Publish(streamID, event)
}

// stageGuard enforces the progress ordering contract: the stage never
// regresses once complete is reported, and completed counts never decrease
// within a stage.
type stageGuard struct {
	mu        sync.Mutex
	done      bool
	stage     model.Stage
	completed int
	genDone   int
	genTotal  int
}

func newStageGuard() *stageGuard {
	return &stageGuard{}
}

// admit reports whether ev may be delivered, clamping its completed count
// so it never moves backwards within a stage.
func (g *stageGuard) admit(ev *model.ProgressEvent) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.done {
		return false
	}
	if ev.Stage == model.StageComplete {
		g.done = true
		return true
	}
	if ev.Stage == g.stage && ev.Completed < g.completed {
		ev.Completed = g.completed
	}
	g.stage = ev.Stage
	g.completed = ev.Completed
	if ev.Stage == model.StageGenerating {
		g.genDone = ev.Completed
		g.genTotal = ev.Total
	}
	return true
}

// generated returns the last generating-stage counts seen, for the final
// complete event.
func (g *stageGuard) generated() (completed, total int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.genTotal == 0 {
		return 1, 1
	}
	return g.genDone, g.genTotal
}

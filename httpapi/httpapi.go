// Package httpapi provides the HTTP API for Scaffy.
// It delegates all business logic to the engine.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scaffy/scaffy/engine"
	"github.com/scaffy/scaffy/model"
	"github.com/scaffy/scaffy/store"
)

// Limits bounds user-supplied input sizes and request rates.
type Limits struct {
	MaxAssignmentChars int
	MaxCodeChars       int
	MaxQuestionChars   int

	RatePerMinute int
	RatePerHour   int
	RatePerDay    int
}

// DefaultLimits returns the standard production limits.
func DefaultLimits() Limits {
	return Limits{
		MaxAssignmentChars: 50_000,
		MaxCodeChars:       100_000,
		MaxQuestionChars:   3_000,
		RatePerMinute:      30,
		RatePerHour:        300,
		RatePerDay:         1000,
	}
}

// Importer fetches assignment text from an external source (GitHub).
type Importer interface {
	FetchAssignment(ctx context.Context, repo, path string) (string, error)
}

// Handler provides the HTTP API for Scaffy.
type Handler struct {
	engine   *engine.Engine
	importer Importer // nil when no GitHub token is configured
	limits   Limits
	router   chi.Router
}

// New creates a new HTTP API handler. importer may be nil.
func New(eng *engine.Engine, importer Importer, limits Limits) *Handler {
	h := &Handler{engine: eng, importer: importer, limits: limits}
	h.router = h.buildRouter()
	return h
}

// Router returns the HTTP router.
func (h *Handler) Router() chi.Router {
	return h.router
}

func (h *Handler) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	limiter := newRateLimiter(h.limits)

	r.Route("/api", func(r chi.Router) {
		r.Use(limiter.middleware)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Post("/assignments", h.handleSubmit)
			r.Post("/assignments/import", h.handleImport)
			r.Get("/session", h.handleGetSession)
			r.Post("/session/reset", h.handleReset)
			r.Put("/session/code", h.handleUpdateCode)
			r.Get("/session/tasks", h.handleGetTasks)
			r.Get("/session/tasks/{n}/marker", h.handleGetMarker)
			r.Post("/session/hint", h.handleHint)
			r.Get("/sessions", h.handleListSessions)
			r.Get("/sessions/{id}", h.handleGetArchived)
		})
		r.Get("/sessions/{id}/events", h.handleSessionEvents)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

// --- Request/Response types ---

type submitRequest struct {
	Text            string `json:"text"`
	TargetLanguage  string `json:"target_language"`
	KnownLanguage   string `json:"known_language,omitempty"`
	ExperienceLevel string `json:"experience_level"`
}

type submitResponse struct {
	Stream string `json:"stream"`
}

type importRequest struct {
	Repo string `json:"repo"`
	Path string `json:"path,omitempty"`
}

type importResponse struct {
	Text string `json:"text"`
}

type updateCodeRequest struct {
	Code string `json:"code"`
}

type markerResponse struct {
	Line  int  `json:"line"`
	Found bool `json:"found"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Handlers ---

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)

	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "assignment text is required")
		return
	}
	if len([]rune(req.Text)) > h.limits.MaxAssignmentChars {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("assignment text exceeds %d characters", h.limits.MaxAssignmentChars))
		return
	}
	if pattern, ok := containsBlockedPattern(req.Text); ok {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("assignment contains unsafe pattern %q", pattern))
		return
	}

	assignment := model.AssignmentRequest{
		Text:            req.Text,
		TargetLanguage:  req.TargetLanguage,
		KnownLanguage:   req.KnownLanguage,
		ExperienceLevel: model.ExperienceLevel(strings.ToLower(req.ExperienceLevel)),
	}
	if err := assignment.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.engine.State().Loading {
		writeError(w, http.StatusConflict, "a submission is already in progress")
		return
	}

	stream, err := h.engine.SubmitAsync(assignment)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{Stream: stream})
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if h.importer == nil {
		writeError(w, http.StatusNotImplemented, "GitHub import is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Repo = strings.TrimSpace(req.Repo)
	if req.Repo == "" {
		writeError(w, http.StatusBadRequest, "repo is required")
		return
	}

	text, err := h.importer.FetchAssignment(r.Context(), req.Repo, req.Path)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if len([]rune(text)) > h.limits.MaxAssignmentChars {
		text = string([]rune(text)[:h.limits.MaxAssignmentChars])
	}
	writeJSON(w, http.StatusOK, importResponse{Text: text})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	state := h.engine.State()
	writeJSON(w, http.StatusOK, sessionView(state))
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if h.engine.State().Loading {
		writeError(w, http.StatusConflict, "cannot reset while a submission is in progress")
		return
	}
	h.engine.Reset()
	writeJSON(w, http.StatusOK, sessionView(h.engine.State()))
}

func (h *Handler) handleUpdateCode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req updateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len([]rune(req.Code)) > h.limits.MaxCodeChars {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("code exceeds %d characters", h.limits.MaxCodeChars))
		return
	}

	h.engine.UpdateCode(req.Code)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetTasks(w http.ResponseWriter, r *http.Request) {
	views := h.engine.TaskViews()
	if views == nil {
		writeError(w, http.StatusNotFound, "no scaffold has been generated yet")
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleGetMarker(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "task number must be a positive integer")
		return
	}
	line, found := h.engine.MarkerLine(n)
	writeJSON(w, http.StatusOK, markerResponse{Line: line, Found: found})
}

func (h *Handler) handleHint(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req model.HintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if len([]rune(req.Question)) > h.limits.MaxQuestionChars {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("question exceeds %d characters", h.limits.MaxQuestionChars))
		return
	}

	hint, err := h.engine.Hint(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, hint)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.engine.Store().ListSessions()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		log.Printf("listing sessions: %v", err)
		return
	}
	if summaries == nil {
		summaries = []store.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleGetArchived(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, err := h.engine.Store().LoadState(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionView(state))
}

func (h *Handler) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before replaying so nothing published mid-replay is lost;
	// the lastID filter below deduplicates the overlap.
	ch, cancel := h.engine.Bus().Subscribe(id)
	defer cancel()

	events, err := h.engine.Store().GetEvents(id, 0)
	if err != nil {
		log.Printf("loading events for stream %s: %v", id, err)
		events = nil
	}
	var lastID int64
	for _, e := range events {
		writeSSE(w, e)
		lastID = e.ID
	}
	flusher.Flush()

	// A finished stream ends with an error or done event; no need to wait.
	for _, e := range events {
		if e.Type == "done" || e.Type == "error" {
			return
		}
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.ID <= lastID {
				continue
			}
			writeSSE(w, event)
			flusher.Flush()
			if event.Type == "done" || event.Type == "error" {
				return
			}
		}
	}
}

// sessionView augments the raw state with the derived display predicate.
type sessionViewBody struct {
	model.SessionState
	HasSubmitted bool `json:"has_submitted"`
}

func sessionView(state model.SessionState) sessionViewBody {
	return sessionViewBody{SessionState: state, HasSubmitted: state.HasSubmitted()}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeSSE(w http.ResponseWriter, event *model.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("writeSSE marshal error: %v", err)
		return
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", event.ID, event.Type, string(data)); err != nil {
		log.Printf("writeSSE write error: %v", err)
	}
}

// blockedPatterns flags obviously hostile submissions before they reach the
// generation service.
var blockedPatterns = []string{
	"rm -rf", "format c:", "del /f", "drop table", "drop database",
	"os.system", "subprocess.call", "__import__",
	"cryptonight", "coinhive", "crypto-loot",
}

func containsBlockedPattern(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, pattern := range blockedPatterns {
		if strings.Contains(lower, pattern) {
			return pattern, true
		}
	}
	return "", false
}

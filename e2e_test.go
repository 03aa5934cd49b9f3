// End-to-end tests for the Scaffy server stack.
//
// This test exercises the full server stack:
//   - Real HTTP router (chi, with rate limiting)
//   - Real SQLite store (WAL mode, temp dir)
//   - Real event bus (in-memory pub/sub)
//   - Real generation pipeline (parse, codegen, concept examples)
//   - Fake LLM (deterministic responses)
//
// The only thing simulated is the LLM backend. Everything else — HTTP
// routing, engine orchestration, store persistence, event streaming — is
// real production code.
//
// Does NOT require API keys or network access.
package scaffy_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/scaffy/scaffy/engine"
	"github.com/scaffy/scaffy/eventbus"
	"github.com/scaffy/scaffy/httpapi"
	"github.com/scaffy/scaffy/model"
	"github.com/scaffy/scaffy/pipeline"
	"github.com/scaffy/scaffy/session"
	sqliteStore "github.com/scaffy/scaffy/store/sqlite"
)

// scriptedLLM answers each pipeline stage with a canned, realistic response.
type scriptedLLM struct{}

func (scriptedLLM) Complete(_ context.Context, prompt string, _ int) (string, error) {
	switch {
	case strings.Contains(prompt, "Parse this programming assignment"):
		return `{
			"overview": "Implement a bounded stack with push and pop operations.",
			"total_estimated_time": "1.5 hours",
			"tasks": [
				{"id": 1, "title": "Define the Stack class", "description": "Create the class with internal storage", "dependencies": [], "estimated_time": "20 minutes", "concepts": ["classes"]},
				{"id": 2, "title": "Implement push", "description": "Append with capacity check", "dependencies": [0], "estimated_time": "30 minutes", "concepts": ["lists", "exceptions"]},
				{"id": 3, "title": "Implement pop", "description": "Remove and return the top element", "dependencies": [0], "estimated_time": "30 minutes", "concepts": ["lists"]}
			]
		}`, nil
	case strings.Contains(prompt, "Generate starter code"):
		return "```json\n" + `{
			"code_snippet": "# TODO 1: define the Stack class\nclass Stack:\n    pass\n\n# TODO 2: implement push\n\n# TODO 3: implement pop\n",
			"instructions": "Work through the TODOs in order.",
			"todo_list": ["Define the class", "Implement push", "Implement pop"],
			"files": [{"filename": "stack.py", "content": "# TODO 1: define the Stack class\nclass Stack:\n    pass\n\n# TODO 2: implement push\n\n# TODO 3: implement pop\n"}]
		}` + "\n```", nil
	case strings.Contains(prompt, "self-contained"):
		return `{"classes": "class Point:\n    pass", "lists": "xs = []", "exceptions": "raise ValueError"}`, nil
	case strings.Contains(prompt, "stuck on this task"):
		return `{"hint": "A stack needs somewhere to keep its elements.", "hint_type": "conceptual"}`, nil
	}
	return "", fmt.Errorf("unscripted prompt: %.60s", prompt)
}

func newStack(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	st, err := sqliteStore.New(filepath.Join(t.TempDir(), "e2e.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	sess := session.New(st)
	p := pipeline.New(scriptedLLM{})
	eng := engine.New(sess, st, eventbus.NewInMemoryBus(), p, p, nil)

	limits := httpapi.DefaultLimits()
	limits.RatePerMinute = 1000
	handler := httpapi.New(eng, nil, limits)
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)
	return srv, eng
}

func submit(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{
		"text":             "Implement a bounded stack data structure with push and pop.",
		"target_language":  "python",
		"known_language":   "javascript",
		"experience_level": "beginner",
	})
	resp, err := http.Post(srv.URL+"/api/assignments", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status: %d", resp.StatusCode)
	}
	var accepted struct {
		Stream string `json:"stream"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return accepted.Stream
}

func waitDone(t *testing.T, eng *engine.Engine) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		state := eng.State()
		if state.HasSubmitted() {
			return
		}
		if state.Error != "" {
			t.Fatalf("submission failed: %s", state.Error)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("submission never finished")
}

func TestE2ESubmissionFlow(t *testing.T) {
	srv, eng := newStack(t)

	stream := submit(t, srv)
	if stream == "" {
		t.Fatal("no stream ID")
	}
	waitDone(t, eng)

	state := eng.State()
	if !strings.HasPrefix(state.ID, "session-") {
		t.Fatalf("session ID: %q", state.ID)
	}
	if state.TaskCount() != 3 {
		t.Fatalf("task count: %d", state.TaskCount())
	}
	if !strings.Contains(state.Code, "class Stack") {
		t.Fatalf("initial code: %q", state.Code)
	}

	// Task views carry per-task excerpts segmented from the starter file.
	resp, err := http.Get(srv.URL + "/api/session/tasks")
	if err != nil {
		t.Fatalf("get tasks: %v", err)
	}
	defer resp.Body.Close()
	var views []struct {
		Index           int               `json:"index"`
		TodoItem        string            `json:"todo_item"`
		ConceptExamples map[string]string `json:"concept_examples"`
		Code            string            `json:"code"`
		CodeAvailable   bool              `json:"code_available"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatalf("decode views: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected 3 views, got %d", len(views))
	}
	if !strings.Contains(views[0].Code, "class Stack") {
		t.Fatalf("task 1 excerpt: %q", views[0].Code)
	}
	if !strings.Contains(views[1].Code, "TODO 2") || strings.Contains(views[1].Code, "TODO 3") {
		t.Fatalf("task 2 excerpt: %q", views[1].Code)
	}
	if views[1].TodoItem != "Implement push" {
		t.Fatalf("task 2 todo: %q", views[1].TodoItem)
	}
	if views[0].ConceptExamples["classes"] == "" {
		t.Fatalf("task 1 examples: %v", views[0].ConceptExamples)
	}
}

func TestE2EEventStreamReplay(t *testing.T) {
	srv, eng := newStack(t)

	stream := submit(t, srv)
	waitDone(t, eng)

	// The stream is finished; the SSE endpoint replays it from the store.
	resp, err := http.Get(srv.URL + "/api/sessions/" + stream + "/events")
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}

	var types []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event struct {
			Type string `json:"type"`
			Data string `json:"data"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}
		types = append(types, event.Type)
		if event.Type == "done" {
			if event.Data != eng.State().ID {
				t.Fatalf("done event data %q != session ID %q", event.Data, eng.State().ID)
			}
		}
	}

	if len(types) < 3 {
		t.Fatalf("too few events: %v", types)
	}
	if types[0] != "status" {
		t.Fatalf("first event: %v", types)
	}
	if types[len(types)-1] != "done" {
		t.Fatalf("last event: %v", types)
	}
	for _, typ := range types {
		if typ == "error" {
			t.Fatalf("error event in successful run: %v", types)
		}
	}
}

func TestE2EResetAndHint(t *testing.T) {
	srv, eng := newStack(t)

	submit(t, srv)
	waitDone(t, eng)

	// Hint against the live session.
	payload, _ := json.Marshal(map[string]any{"task_index": 1, "question": "Where do I store elements?"})
	resp, err := http.Post(srv.URL+"/api/session/hint", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("hint: %v", err)
	}
	var hint model.Hint
	if err := json.NewDecoder(resp.Body).Decode(&hint); err != nil {
		t.Fatalf("decode hint: %v", err)
	}
	resp.Body.Close()
	if hint.Hint == "" || hint.HintType != "conceptual" {
		t.Fatalf("hint: %+v", hint)
	}

	// Edit the code, then reset: submission fields clear, code survives.
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/session/code",
		bytes.NewReader([]byte(`{"code": "my partial solution"}`)))
	req.Header.Set("Content-Type", "application/json")
	putResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put code: %v", err)
	}
	putResp.Body.Close()

	resetResp, err := http.Post(srv.URL+"/api/session/reset", "application/json", nil)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	resetResp.Body.Close()

	state := eng.State()
	if state.HasSubmitted() || state.ID != "" {
		t.Fatalf("state after reset: %+v", state)
	}
	if state.Code != "my partial solution" {
		t.Fatalf("code after reset: %q", state.Code)
	}

	// The archived session is still listed and loadable.
	listResp, err := http.Get(srv.URL + "/api/sessions")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer listResp.Body.Close()
	var summaries []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&summaries); err != nil {
		t.Fatalf("decode summaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries: %+v", summaries)
	}
}

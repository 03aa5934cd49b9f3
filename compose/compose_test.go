package compose

import (
	"strings"
	"testing"

	"github.com/scaffy/scaffy/model"
)

func testState() model.SessionState {
	return model.SessionState{
		ID: "session-1",
		Breakdown: &model.TaskBreakdown{
			Overview: "Build a stack",
			Tasks: []model.Task{
				{ID: 1, Title: "Define the type"},
				{ID: 2, Title: "Implement push"},
				{ID: 3, Title: "Implement pop"},
			},
		},
		Scaffold: &model.ScaffoldPackage{
			TodoList: []string{"define", "push"},
			StarterFiles: []model.StarterFile{
				{Name: "stack.py", Content: "# TODO 1 type\nclass Stack:\n# TODO 2 push\n    def push(self):\n# TODO 3 pop\n    def pop(self):"},
				{Name: "extra.py", Content: "ignored"},
			},
			ConceptExamples: map[string]map[string]string{
				"task_2": {"lists": "x = []"},
			},
		},
	}
}

func TestViewsWithoutResults(t *testing.T) {
	if got := Views(model.SessionState{}); got != nil {
		t.Fatalf("empty session composed views: %v", got)
	}

	partial := model.SessionState{
		Breakdown: &model.TaskBreakdown{Overview: "o", Tasks: []model.Task{{Title: "a"}}},
	}
	if got := Views(partial); got != nil {
		t.Fatalf("session without scaffold composed views: %v", got)
	}
}

func TestViewsSegmentsPrimaryFile(t *testing.T) {
	views := Views(testState())
	if len(views) != 3 {
		t.Fatalf("expected 3 views, got %d", len(views))
	}

	for i, v := range views {
		if v.Index != i {
			t.Fatalf("view %d has index %d", i, v.Index)
		}
		if !v.CodeAvailable {
			t.Fatalf("view %d reports no code", i)
		}
	}
	if !strings.Contains(views[0].Code, "class Stack") {
		t.Fatalf("task 1 code: %q", views[0].Code)
	}
	if !strings.Contains(views[1].Code, "def push") || strings.Contains(views[1].Code, "def pop") {
		t.Fatalf("task 2 code: %q", views[1].Code)
	}
	if strings.Contains(views[0].Code, "ignored") {
		t.Fatal("secondary file leaked into excerpts")
	}
}

func TestViewsTodoAndExamples(t *testing.T) {
	views := Views(testState())

	if views[0].TodoItem != "define" || views[1].TodoItem != "push" {
		t.Fatalf("todo items: %q, %q", views[0].TodoItem, views[1].TodoItem)
	}
	// Todo list is shorter than the task list; the extra task gets none.
	if views[2].TodoItem != "" {
		t.Fatalf("view 3 todo item: %q", views[2].TodoItem)
	}

	if views[1].ConceptExamples["lists"] != "x = []" {
		t.Fatalf("task 2 examples: %v", views[1].ConceptExamples)
	}
	if views[0].ConceptExamples != nil {
		t.Fatalf("task 1 examples: %v", views[0].ConceptExamples)
	}
}

func TestViewsNoStarterFiles(t *testing.T) {
	state := testState()
	state.Scaffold.StarterFiles = nil
	state.Scaffold.CodeSnippet = "print('hi')"

	views := Views(state)
	if len(views) != 3 {
		t.Fatalf("expected 3 views, got %d", len(views))
	}
	for i, v := range views {
		if v.CodeAvailable {
			t.Fatalf("view %d reports code with no starter files", i)
		}
		if v.Code != "" {
			t.Fatalf("view %d has code %q", i, v.Code)
		}
	}
}

func TestExcerpts(t *testing.T) {
	excerpts := Excerpts(testState())
	if len(excerpts) != 3 {
		t.Fatalf("expected 3 excerpts, got %d", len(excerpts))
	}
	if excerpts[2].TaskIndex != 2 || !strings.Contains(excerpts[2].Text, "def pop") {
		t.Fatalf("excerpt 3: %+v", excerpts[2])
	}

	if got := Excerpts(model.SessionState{}); got != nil {
		t.Fatalf("empty session produced excerpts: %v", got)
	}
}

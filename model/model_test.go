package model

import (
	"testing"
)

func TestHasSubmittedLifecycle(t *testing.T) {
	breakdown := &TaskBreakdown{Overview: "o", Tasks: []Task{{Title: "t"}}}
	scaffold := &ScaffoldPackage{CodeSnippet: "code"}

	fresh := SessionState{}
	if fresh.HasSubmitted() {
		t.Fatal("fresh session reports submitted")
	}

	inFlight := SessionState{Loading: true}
	if inFlight.HasSubmitted() {
		t.Fatal("in-flight session reports submitted")
	}

	// Loading with stale results from a prior run still counts as not submitted.
	resubmitting := SessionState{Breakdown: breakdown, Scaffold: scaffold, Loading: true}
	if resubmitting.HasSubmitted() {
		t.Fatal("resubmitting session reports submitted")
	}

	done := SessionState{Breakdown: breakdown, Scaffold: scaffold}
	if !done.HasSubmitted() {
		t.Fatal("completed session reports not submitted")
	}

	partial := SessionState{Breakdown: breakdown}
	if partial.HasSubmitted() {
		t.Fatal("session without scaffold reports submitted")
	}

	// The predicate is callable on non-addressable values, as returned by
	// state-snapshot accessors.
	if !(SessionState{Breakdown: breakdown, Scaffold: scaffold}).HasSubmitted() {
		t.Fatal("predicate failed on a value expression")
	}
	if (SessionState{Breakdown: breakdown}).TaskCount() != 1 {
		t.Fatal("task count failed on a value expression")
	}
}

func TestAssignmentRequestValidate(t *testing.T) {
	valid := AssignmentRequest{
		Text:            "Build a linked list",
		TargetLanguage:  "Python",
		ExperienceLevel: LevelBeginner,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	cases := []struct {
		name string
		req  AssignmentRequest
	}{
		{"empty text", AssignmentRequest{Text: "  \n ", TargetLanguage: "go", ExperienceLevel: LevelBeginner}},
		{"bad language", AssignmentRequest{Text: "x", TargetLanguage: "cobol", ExperienceLevel: LevelBeginner}},
		{"bad known language", AssignmentRequest{Text: "x", TargetLanguage: "go", KnownLanguage: "brainfuck", ExperienceLevel: LevelBeginner}},
		{"bad level", AssignmentRequest{Text: "x", TargetLanguage: "go", ExperienceLevel: "expert"}},
	}
	for _, tc := range cases {
		if err := tc.req.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestBreakdownValidateDependencies(t *testing.T) {
	good := TaskBreakdown{
		Overview: "o",
		Tasks: []Task{
			{Title: "a"},
			{Title: "b", Dependencies: []int{0}},
			{Title: "c", Dependencies: []int{0, 1}},
		},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid breakdown rejected: %v", err)
	}

	forward := TaskBreakdown{
		Overview: "o",
		Tasks: []Task{
			{Title: "a", Dependencies: []int{1}},
			{Title: "b"},
		},
	}
	if err := forward.Validate(); err == nil {
		t.Fatal("forward dependency accepted")
	}

	self := TaskBreakdown{
		Overview: "o",
		Tasks:    []Task{{Title: "a", Dependencies: []int{0}}},
	}
	if err := self.Validate(); err == nil {
		t.Fatal("self dependency accepted")
	}

	empty := TaskBreakdown{Overview: "o"}
	if err := empty.Validate(); err == nil {
		t.Fatal("empty breakdown accepted")
	}
}

func TestPrimaryFile(t *testing.T) {
	p := &ScaffoldPackage{}
	if _, ok := p.PrimaryFile(); ok {
		t.Fatal("empty scaffold reported a primary file")
	}

	p.StarterFiles = []StarterFile{
		{Name: "main.py", Content: "first"},
		{Name: "util.py", Content: "second"},
	}
	f, ok := p.PrimaryFile()
	if !ok || f.Name != "main.py" {
		t.Fatalf("primary file = %+v, %v", f, ok)
	}
}

func TestTaskKey(t *testing.T) {
	if got := TaskKey(0); got != "task_1" {
		t.Fatalf("TaskKey(0) = %q", got)
	}
	if got := TaskKey(9); got != "task_10" {
		t.Fatalf("TaskKey(9) = %q", got)
	}
}

func TestValidLanguage(t *testing.T) {
	for _, lang := range []string{"python", "Go", "RUST", "c#", "cpp"} {
		if !ValidLanguage(lang) {
			t.Fatalf("language %q rejected", lang)
		}
	}
	for _, lang := range []string{"", "cobol", "pyth0n"} {
		if ValidLanguage(lang) {
			t.Fatalf("language %q accepted", lang)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := Truncate("hello world", 8); got != "hello..." {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("héllo wörld", 8); got != "héllo..." {
		t.Fatalf("rune truncation: %q", got)
	}
}

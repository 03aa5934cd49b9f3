package segment

import (
	"strings"
	"testing"
)

func TestSegmentEmptySource(t *testing.T) {
	if got := Segment("", 0, 3); got != "" {
		t.Fatalf("expected empty excerpt, got %q", got)
	}
}

func TestSegmentMarkerRegion(t *testing.T) {
	source := strings.Join([]string{
		"def main():",
		"    # TODO 1: read the input",
		"    pass",
		"",
		"    # TODO 2: parse it",
		"    pass",
	}, "\n")

	got := Segment(source, 0, 2)
	want := strings.Join([]string{
		"    # TODO 1: read the input",
		"    pass",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("task 1 excerpt:\n got %q\nwant %q", got, want)
	}

	got = Segment(source, 1, 2)
	want = strings.Join([]string{
		"    # TODO 2: parse it",
		"    pass",
	}, "\n")
	if got != want {
		t.Fatalf("task 2 excerpt:\n got %q\nwant %q", got, want)
	}
}

func TestSegmentLastMarkerRunsToEnd(t *testing.T) {
	source := "// TODO 1 setup\nline\n// TODO 2 finish\ntail line\nlast line"
	got := Segment(source, 1, 2)
	if got != "// TODO 2 finish\ntail line\nlast line" {
		t.Fatalf("unexpected excerpt: %q", got)
	}
}

func TestSegmentCaseInsensitive(t *testing.T) {
	source := "// todo 1 lower\nbody\n# Todo 2 mixed\nmore"
	if got := Segment(source, 0, 2); !strings.Contains(got, "todo 1") {
		t.Fatalf("lowercase marker not matched: %q", got)
	}
	if got := Segment(source, 1, 2); !strings.Contains(got, "Todo 2") {
		t.Fatalf("mixed-case marker not matched: %q", got)
	}
}

func TestSegmentMarkerVariants(t *testing.T) {
	variants := []string{
		"// TODO 1: do it",
		"# TODO 1 do it",
		"// TODO #1 do it",
		"x = 1  # TODO Task 1: do it",
	}
	for _, line := range variants {
		source := line + "\nbody"
		if got := Segment(source, 0, 1); got != source {
			t.Fatalf("marker %q not recognized, got %q", line, got)
		}
	}
}

func TestSegmentDigitBoundary(t *testing.T) {
	// A marker for task 10 must not start task 1's region.
	source := strings.Join([]string{
		"alpha", "beta", "gamma", "delta",
		"// TODO 10 the tenth",
		"epsilon", "zeta", "eta", "theta", "iota",
	}, "\n")

	got := Segment(source, 0, 10)
	if strings.Contains(got, "tenth") {
		t.Fatalf("task 1 matched the TODO 10 marker: %q", got)
	}
	// No marker for task 1 exists, so the fallback chunk is used.
	if got != "alpha" {
		t.Fatalf("expected fallback chunk %q, got %q", "alpha", got)
	}
}

func TestSegmentFallbackChunks(t *testing.T) {
	// 10 lines over 3 tasks: chunk size ceil(10/3)=4, so 4+4+2.
	lines := []string{"l0", "l1", "l2", "l3", "l4", "l5", "l6", "l7", "l8", "l9"}
	source := strings.Join(lines, "\n")

	wants := []string{
		strings.Join(lines[0:4], "\n"),
		strings.Join(lines[4:8], "\n"),
		strings.Join(lines[8:10], "\n"),
	}
	for i, want := range wants {
		if got := Segment(source, i, 3); got != want {
			t.Fatalf("chunk %d: got %q, want %q", i, got, want)
		}
	}
}

func TestSegmentFallbackCoversSource(t *testing.T) {
	// The fallback chunks are non-overlapping and together rebuild the source.
	source := strings.Join([]string{"a", "b", "c", "d", "e", "f", "g"}, "\n")
	for _, taskCount := range []int{1, 2, 3, 5, 7, 9} {
		var parts []string
		for i := 0; i < taskCount; i++ {
			if chunk := Segment(source, i, taskCount); chunk != "" {
				parts = append(parts, chunk)
			}
		}
		if got := strings.Join(parts, "\n"); got != source {
			t.Fatalf("taskCount=%d: chunks do not rebuild source: %q", taskCount, got)
		}
	}
}

func TestSegmentDeterministic(t *testing.T) {
	source := "// TODO 1\na\n// TODO 2\nb"
	first := Segment(source, 0, 2)
	for i := 0; i < 5; i++ {
		if got := Segment(source, 0, 2); got != first {
			t.Fatalf("segment not deterministic: %q vs %q", got, first)
		}
	}
}

func TestSegmentExcessChunkIndex(t *testing.T) {
	// More tasks than lines: trailing tasks get empty chunks, no panic.
	source := "only line"
	if got := Segment(source, 2, 5); got != "" {
		t.Fatalf("expected empty chunk, got %q", got)
	}
}

func TestTodoLine(t *testing.T) {
	source := strings.Join([]string{
		"def solve():",
		"    # TODO: first step",
		"    x = 1",
		"    # todo second step",
		"    # Note: not a marker",
		"    # ToDo third",
	}, "\n")

	cases := []struct {
		n     int
		line  int
		found bool
	}{
		{1, 1, true},
		{2, 3, true},
		{3, 5, true},
		{4, 0, false},
		{0, 0, false},
	}
	for _, tc := range cases {
		line, found := TodoLine(source, tc.n)
		if line != tc.line || found != tc.found {
			t.Fatalf("TodoLine(%d) = (%d, %v), want (%d, %v)", tc.n, line, found, tc.line, tc.found)
		}
	}
}

func TestTodoLineEmptySource(t *testing.T) {
	if _, found := TodoLine("", 1); found {
		t.Fatal("found a todo in empty source")
	}
}

func TestTodoLineIgnoresNumbers(t *testing.T) {
	// The scroll scan counts occurrences; it does not parse marker numbers.
	source := "# TODO 99\n# TODO 1"
	line, found := TodoLine(source, 1)
	if !found || line != 0 {
		t.Fatalf("TodoLine(1) = (%d, %v), want (0, true)", line, found)
	}
}

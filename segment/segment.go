// Package segment maps task indices to regions of generated starter code.
//
// The generator is asked to leave numbered markers ("// TODO 1", "# TODO 2")
// in the code it produces, but nothing guarantees it does. Segment therefore
// treats the even-chunk fallback partition as the guaranteed path and the
// marker scan as a best-effort enhancement on top of it: every valid input
// maps to some contiguous slice of the source, markers or not.
package segment

import (
	"fmt"
	"regexp"
	"strings"
)

// markerPatterns builds the case-insensitive marker tests for task number n
// (1-based). A marker line either contains TODO followed by the digits of n,
// TODO with the word "task" and the digits of n, or starts a line comment
// ("//" or "#") containing TODO n. The digit match is boundary-safe so that
// task 1 never matches "TODO 10".
func markerPatterns(n int) []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(fmt.Sprintf(`(?i)^\s*(//|#)\s*todo\s*#?\s*%d\b`, n)),
		regexp.MustCompile(fmt.Sprintf(`(?i)\btodo\b\s*task\s*#?\s*%d\b`, n)),
		regexp.MustCompile(fmt.Sprintf(`(?i)\btodo\b\D*\b%d\b`, n)),
	}
}

func matchesMarker(line string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// Segment returns the excerpt of source that belongs to the task at
// taskIndex (0-based) out of taskCount tasks. It is pure and total: any
// valid input yields a deterministic, non-nil string.
//
// The excerpt starts at the first line carrying task taskIndex+1's marker
// and ends just before the first subsequent line carrying the next task's
// marker (or at end of text). When no marker for the task exists, the
// source is instead partitioned into taskCount contiguous near-equal chunks
// and the chunk at taskIndex is returned.
//
// Callers must not pass taskIndex >= taskCount.
func Segment(source string, taskIndex, taskCount int) string {
	if source == "" || taskCount < 1 {
		return ""
	}

	lines := strings.Split(source, "\n")
	n := taskIndex + 1

	start := -1
	patterns := markerPatterns(n)
	for i, line := range lines {
		if matchesMarker(line, patterns) {
			start = i
			break
		}
	}

	if start == -1 {
		return fallbackChunk(lines, taskIndex, taskCount)
	}

	end := len(lines)
	nextPatterns := markerPatterns(n + 1)
	for i := start + 1; i < len(lines); i++ {
		if matchesMarker(lines[i], nextPatterns) {
			end = i
			break
		}
	}

	return strings.Join(lines[start:end], "\n")
}

// fallbackChunk divides lines into taskCount contiguous chunks of
// ceil(len/taskCount) lines and returns the chunk at taskIndex. Chunks are
// non-overlapping, order-preserving, and together cover the whole source;
// only the final chunk may be shorter.
func fallbackChunk(lines []string, taskIndex, taskCount int) string {
	size := (len(lines) + taskCount - 1) / taskCount
	start := taskIndex * size
	if start >= len(lines) {
		return ""
	}
	end := start + size
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

// TodoLine returns the 0-based index of the line holding the taskNumber'th
// (1-based) occurrence of the substring "todo", case-insensitive. It backs
// the editor's scroll-to-task command and is intentionally a simpler scan
// than Segment's numbered-marker search: the two are specified independently
// and must not be unified.
func TodoLine(source string, taskNumber int) (int, bool) {
	if source == "" || taskNumber < 1 {
		return 0, false
	}
	seen := 0
	for i, line := range strings.Split(source, "\n") {
		if strings.Contains(strings.ToLower(line), "todo") {
			seen++
			if seen == taskNumber {
				return i, true
			}
		}
	}
	return 0, false
}

// Package model defines the core domain types shared across all Scaffy packages.
// It has zero dependencies on other Scaffy packages.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Stage is the phase of an in-flight scaffold generation.
type Stage string

const (
	StageParsing    Stage = "parsing"
	StageGenerating Stage = "generating"
	StageComplete   Stage = "complete"
)

// ProgressEvent reports generation progress. Completed is monotonically
// non-decreasing within a stage, and Completed <= Total when Total > 0.
type ProgressEvent struct {
	Stage     Stage `json:"stage"`
	Completed int   `json:"completed"`
	Total     int   `json:"total"`
}

// ExperienceLevel is the learner's self-reported skill level.
type ExperienceLevel string

const (
	LevelBeginner     ExperienceLevel = "beginner"
	LevelIntermediate ExperienceLevel = "intermediate"
	LevelAdvanced     ExperienceLevel = "advanced"
)

// ValidExperienceLevel reports whether level is one of the known levels.
func ValidExperienceLevel(level ExperienceLevel) bool {
	switch level {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// supportedLanguages lists the programming languages assignments may target.
var supportedLanguages = map[string]bool{
	"python": true, "javascript": true, "typescript": true, "java": true,
	"csharp": true, "c#": true, "cs": true, "c++": true, "cpp": true,
	"c": true, "go": true, "rust": true, "ruby": true, "php": true,
	"swift": true, "kotlin": true,
}

// ValidLanguage reports whether lang is a supported programming language.
// The check is case-insensitive.
func ValidLanguage(lang string) bool {
	return supportedLanguages[strings.ToLower(lang)]
}

// AssignmentRequest is a learner's free-text assignment submission.
// It is immutable once handed to the orchestrator.
type AssignmentRequest struct {
	Text            string          `json:"text"`
	TargetLanguage  string          `json:"target_language"`
	KnownLanguage   string          `json:"known_language,omitempty"`
	ExperienceLevel ExperienceLevel `json:"experience_level"`
}

// Validate checks the request fields a caller must supply.
func (r AssignmentRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("assignment text cannot be empty")
	}
	if !ValidLanguage(r.TargetLanguage) {
		return fmt.Errorf("unsupported target language %q", r.TargetLanguage)
	}
	if r.KnownLanguage != "" && !ValidLanguage(r.KnownLanguage) {
		return fmt.Errorf("unsupported known language %q", r.KnownLanguage)
	}
	if !ValidExperienceLevel(r.ExperienceLevel) {
		return fmt.Errorf("experience level must be beginner, intermediate, or advanced")
	}
	return nil
}

// Task is a single step in a task breakdown.
type Task struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Dependencies  []int    `json:"dependencies"`
	EstimatedTime string   `json:"estimated_time"`
	Concepts      []string `json:"concepts"`
}

// TaskBreakdown is the ordered task plan produced for an assignment.
// Dependency indices reference only tasks that appear earlier in Tasks.
type TaskBreakdown struct {
	Overview           string `json:"overview"`
	TotalEstimatedTime string `json:"total_estimated_time"`
	Tasks              []Task `json:"tasks"`
}

// Validate checks the breakdown's structural invariants.
func (b *TaskBreakdown) Validate() error {
	if len(b.Tasks) == 0 {
		return fmt.Errorf("task breakdown has no tasks")
	}
	for i, task := range b.Tasks {
		for _, dep := range task.Dependencies {
			if dep < 0 || dep >= i {
				return fmt.Errorf("task %d depends on %d, which is not an earlier task", i, dep)
			}
		}
	}
	return nil
}

// StarterFile is one generated source file. Files keep the order the
// generator produced them in; the first entry is the primary file.
type StarterFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ScaffoldPackage is the generated starter bundle for an assignment.
type ScaffoldPackage struct {
	// CodeSnippet, when non-empty, is the preferred initial editor content.
	CodeSnippet  string        `json:"code_snippet,omitempty"`
	Instructions string        `json:"instructions,omitempty"`
	TodoList     []string      `json:"todo_list"`
	StarterFiles []StarterFile `json:"starter_files"`
	// ConceptExamples maps a task key ("task_1", "task_2", ...) to a
	// concept -> example-code mapping for that task.
	ConceptExamples map[string]map[string]string `json:"concept_examples,omitempty"`
}

// PrimaryFile returns the first starter file, or false if there are none.
func (p *ScaffoldPackage) PrimaryFile() (StarterFile, bool) {
	if len(p.StarterFiles) == 0 {
		return StarterFile{}, false
	}
	return p.StarterFiles[0], true
}

// TaskKey returns the concept-example key for a 0-based task index.
func TaskKey(taskIndex int) string {
	return fmt.Sprintf("task_%d", taskIndex+1)
}

// Hint is a contextual nudge for a stuck learner.
type Hint struct {
	Hint        string `json:"hint"`
	HintType    string `json:"hint_type"`
	ExampleCode string `json:"example_code,omitempty"`
}

// HintRequest asks for help on one task of the current session.
type HintRequest struct {
	TaskIndex     int      `json:"task_index"`
	Question      string   `json:"question"`
	Code          string   `json:"code"`
	PreviousHints []string `json:"previous_hints,omitempty"`
	HelpCount     int      `json:"help_count"`
}

// SessionState is the persisted, resumable unit of learner progress for one
// assignment attempt. It must be fully reconstructable from its serialized
// form alone.
type SessionState struct {
	ID        string            `json:"id,omitempty"`
	Request   AssignmentRequest `json:"request"`
	Breakdown *TaskBreakdown    `json:"breakdown,omitempty"`
	Scaffold  *ScaffoldPackage  `json:"scaffold,omitempty"`
	Code      string            `json:"code"`
	Loading   bool              `json:"loading"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// HasSubmitted reports whether the session holds a complete, displayable
// result. It is always derived, never stored: a session counts as submitted
// exactly when both generation outputs are present and no submission is in
// flight.
func (s SessionState) HasSubmitted() bool {
	return s.Scaffold != nil && s.Breakdown != nil && !s.Loading
}

// TaskCount returns the number of tasks in the breakdown, 0 if absent.
func (s SessionState) TaskCount() int {
	if s.Breakdown == nil {
		return 0
	}
	return len(s.Breakdown.Tasks)
}

// TaskCodeExcerpt is a derived per-task slice of the primary starter file.
// It is recomputed on demand and never persisted.
type TaskCodeExcerpt struct {
	TaskIndex int    `json:"task_index"`
	Text      string `json:"text"`
}

// Event is a single progress or status event recorded during a submission.
type Event struct {
	ID        int64     `json:"id"`
	StreamID  string    `json:"stream_id"`
	Type      string    `json:"type"` // "progress", "status", "error", "done"
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// Truncate shortens a string to maxLen runes, adding "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		r := []rune(s)
		if len(r) <= maxLen {
			return s
		}
		return string(r[:maxLen])
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

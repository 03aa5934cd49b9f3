// Package compose builds the per-task display model from a session's
// breakdown, scaffold, and the segment package. It is read-only: composing
// views never mutates session state.
package compose

import (
	"github.com/scaffy/scaffy/model"
	"github.com/scaffy/scaffy/segment"
)

// TaskView is everything the rendering layer needs to display one task.
type TaskView struct {
	Index           int               `json:"index"`
	Task            model.Task        `json:"task"`
	TodoItem        string            `json:"todo_item,omitempty"`
	ConceptExamples map[string]string `json:"concept_examples,omitempty"`
	Code            string            `json:"code"`
	CodeAvailable   bool              `json:"code_available"`
}

// Views composes one TaskView per task in the session's breakdown.
//
// The code excerpt for each task comes from segmenting the primary starter
// file (the first file in the scaffold's ordered list). When the scaffold
// has no starter files, every view reports CodeAvailable=false and the
// segmenter is never invoked. A session without a breakdown or scaffold
// composes to nil.
func Views(state model.SessionState) []TaskView {
	if state.Breakdown == nil || state.Scaffold == nil {
		return nil
	}

	tasks := state.Breakdown.Tasks
	primary, haveCode := state.Scaffold.PrimaryFile()

	views := make([]TaskView, 0, len(tasks))
	for i, task := range tasks {
		view := TaskView{
			Index:         i,
			Task:          task,
			CodeAvailable: haveCode,
		}
		if i < len(state.Scaffold.TodoList) {
			view.TodoItem = state.Scaffold.TodoList[i]
		}
		if examples, ok := state.Scaffold.ConceptExamples[model.TaskKey(i)]; ok {
			view.ConceptExamples = examples
		}
		if haveCode {
			view.Code = segment.Segment(primary.Content, i, len(tasks))
		}
		views = append(views, view)
	}
	return views
}

// Excerpts returns just the derived per-task code excerpts for the session,
// recomputed from the current scaffold. Excerpts are never cached: starter
// files can change between calls.
func Excerpts(state model.SessionState) []model.TaskCodeExcerpt {
	views := Views(state)
	if views == nil {
		return nil
	}
	excerpts := make([]model.TaskCodeExcerpt, len(views))
	for i, v := range views {
		excerpts[i] = model.TaskCodeExcerpt{TaskIndex: v.Index, Text: v.Code}
	}
	return excerpts
}

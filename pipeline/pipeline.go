// Package pipeline implements the scaffold generation service: it turns an
// assignment request into a task breakdown and a scaffold package by driving
// an llm.Client through parse, codegen, and concept-example stages.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/scaffy/scaffy/llm"
	"github.com/scaffy/scaffy/model"
)

const (
	defaultMaxRetries = 3
	defaultMaxTasks   = 30

	parseMaxTokens    = 2000
	scaffoldMaxTokens = 2500
	examplesMaxTokens = 1500
	hintMaxTokens     = 1500
)

// Pipeline generates scaffolds via an LLM.
type Pipeline struct {
	llm        llm.Client
	maxRetries int
	maxTasks   int
}

// New creates a Pipeline with default retry and task limits.
func New(client llm.Client) *Pipeline {
	return &Pipeline{
		llm:        client,
		maxRetries: defaultMaxRetries,
		maxTasks:   defaultMaxTasks,
	}
}

// Generate runs the full pipeline for one assignment. onProgress (may be
// nil) is called as stages advance; the complete stage is the caller's to
// report. Any response-shape deviation surfaces as an ingestion error, not
// a panic.
func (p *Pipeline) Generate(ctx context.Context, req model.AssignmentRequest, onProgress func(model.ProgressEvent)) (*model.TaskBreakdown, *model.ScaffoldPackage, error) {
	progress := func(ev model.ProgressEvent) {
		if onProgress != nil {
			onProgress(ev)
		}
	}

	progress(model.ProgressEvent{Stage: model.StageParsing, Completed: 0, Total: 1})
	breakdown, err := p.parse(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	progress(model.ProgressEvent{Stage: model.StageParsing, Completed: 1, Total: 1})

	// Generating covers the scaffold call plus one concept-example call per task.
	total := len(breakdown.Tasks) + 1
	progress(model.ProgressEvent{Stage: model.StageGenerating, Completed: 0, Total: total})

	scaffold, err := p.scaffold(ctx, req, breakdown)
	if err != nil {
		return nil, nil, err
	}
	progress(model.ProgressEvent{Stage: model.StageGenerating, Completed: 1, Total: total})

	for i, task := range breakdown.Tasks {
		if len(task.Concepts) > 0 {
			examples, err := p.conceptExamples(ctx, req, task)
			if err != nil {
				// Examples are enrichment, not load-bearing: skip on failure.
				log.Printf("concept examples for task %d failed: %v", i+1, err)
			} else if len(examples) > 0 {
				if scaffold.ConceptExamples == nil {
					scaffold.ConceptExamples = make(map[string]map[string]string)
				}
				scaffold.ConceptExamples[model.TaskKey(i)] = examples
			}
		}
		progress(model.ProgressEvent{Stage: model.StageGenerating, Completed: i + 2, Total: total})
	}

	return breakdown, scaffold, nil
}

// parse runs the breakdown stage with retries: a malformed response gets the
// model one more chance with a stricter prompt before the whole submission
// fails.
func (p *Pipeline) parse(ctx context.Context, req model.AssignmentRequest) (*model.TaskBreakdown, error) {
	prompt := parserPrompt(req)

	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		response, err := p.llm.Complete(ctx, prompt, parseMaxTokens)
		if err != nil {
			return nil, fmt.Errorf("parse stage: %w", err)
		}

		breakdown, err := decodeBreakdown(response, p.maxTasks)
		if err == nil {
			return breakdown, nil
		}

		lastErr = err
		log.Printf("parse attempt %d/%d failed: %v", attempt, p.maxRetries, err)
		if attempt < p.maxRetries {
			prompt += retryNote
		}
	}
	return nil, fmt.Errorf("parsing assignment after %d attempts: %w", p.maxRetries, lastErr)
}

func decodeBreakdown(response string, maxTasks int) (*model.TaskBreakdown, error) {
	raw, err := extractJSON(response)
	if err != nil {
		return nil, err
	}

	var breakdown model.TaskBreakdown
	if err := json.Unmarshal([]byte(raw), &breakdown); err != nil {
		return nil, fmt.Errorf("invalid breakdown JSON: %w", err)
	}
	if breakdown.Overview == "" {
		return nil, fmt.Errorf("breakdown missing overview")
	}
	if len(breakdown.Tasks) == 0 {
		return nil, fmt.Errorf("breakdown has no tasks")
	}
	if len(breakdown.Tasks) > maxTasks {
		breakdown.Tasks = breakdown.Tasks[:maxTasks]
	}

	// Drop dependency indices that do not reference an earlier task; models
	// occasionally emit 1-based or forward references.
	for i := range breakdown.Tasks {
		task := &breakdown.Tasks[i]
		deps := task.Dependencies[:0]
		for _, dep := range task.Dependencies {
			if dep >= 0 && dep < i {
				deps = append(deps, dep)
			}
		}
		task.Dependencies = deps
	}

	if err := breakdown.Validate(); err != nil {
		return nil, err
	}
	return &breakdown, nil
}

// scaffoldResponse is the wire shape of the codegen stage.
type scaffoldResponse struct {
	CodeSnippet  string   `json:"code_snippet"`
	Instructions string   `json:"instructions"`
	TodoList     []string `json:"todo_list"`
	Files        []struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	} `json:"files"`
}

func (p *Pipeline) scaffold(ctx context.Context, req model.AssignmentRequest, breakdown *model.TaskBreakdown) (*model.ScaffoldPackage, error) {
	prompt := scaffoldPrompt(req, breakdown)

	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		response, err := p.llm.Complete(ctx, prompt, scaffoldMaxTokens)
		if err != nil {
			return nil, fmt.Errorf("codegen stage: %w", err)
		}

		scaffold, err := decodeScaffold(response)
		if err == nil {
			return scaffold, nil
		}

		lastErr = err
		log.Printf("codegen attempt %d/%d failed: %v", attempt, p.maxRetries, err)
		if attempt < p.maxRetries {
			prompt += retryNote
		}
	}
	return nil, fmt.Errorf("generating starter code after %d attempts: %w", p.maxRetries, lastErr)
}

func decodeScaffold(response string) (*model.ScaffoldPackage, error) {
	raw, err := extractJSON(response)
	if err != nil {
		return nil, err
	}

	var resp scaffoldResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("invalid scaffold JSON: %w", err)
	}
	if resp.CodeSnippet == "" && len(resp.Files) == 0 {
		return nil, fmt.Errorf("scaffold has neither code_snippet nor files")
	}

	scaffold := &model.ScaffoldPackage{
		CodeSnippet:  resp.CodeSnippet,
		Instructions: resp.Instructions,
		TodoList:     resp.TodoList,
	}
	for _, f := range resp.Files {
		if f.Filename == "" {
			continue
		}
		scaffold.StarterFiles = append(scaffold.StarterFiles, model.StarterFile{
			Name:    sanitizeFilename(f.Filename),
			Content: f.Content,
		})
	}
	return scaffold, nil
}

func (p *Pipeline) conceptExamples(ctx context.Context, req model.AssignmentRequest, task model.Task) (map[string]string, error) {
	response, err := p.llm.Complete(ctx, conceptExamplesPrompt(req, task), examplesMaxTokens)
	if err != nil {
		return nil, err
	}
	raw, err := extractJSON(response)
	if err != nil {
		return nil, err
	}
	var examples map[string]string
	if err := json.Unmarshal([]byte(raw), &examples); err != nil {
		return nil, fmt.Errorf("invalid concept examples JSON: %w", err)
	}
	return examples, nil
}

// Hint runs the live-helper stage for a stuck learner. Hints get
// progressively more concrete as HelpCount grows.
func (p *Pipeline) Hint(ctx context.Context, req model.AssignmentRequest, task model.Task, hr model.HintRequest) (model.Hint, error) {
	response, err := p.llm.Complete(ctx, hintPrompt(req, task, hr), hintMaxTokens)
	if err != nil {
		return model.Hint{}, fmt.Errorf("hint stage: %w", err)
	}

	raw, err := extractJSON(response)
	if err != nil {
		return model.Hint{}, err
	}
	var hint model.Hint
	if err := json.Unmarshal([]byte(raw), &hint); err != nil {
		return model.Hint{}, fmt.Errorf("invalid hint JSON: %w", err)
	}
	if hint.Hint == "" {
		return model.Hint{}, fmt.Errorf("hint response missing hint text")
	}
	if hint.HintType == "" {
		hint.HintType = "conceptual"
	}
	return hint, nil
}

// extractJSON pulls the first JSON object out of a model response,
// tolerating markdown fences and surrounding prose.
func extractJSON(response string) (string, error) {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return response[start : end+1], nil
}

// sanitizeFilename strips path separators and anything else that could make
// a generated filename unsafe to display or store.
func sanitizeFilename(name string) string {
	name = strings.NewReplacer("/", "", "\\", "", "\x00", "").Replace(name)
	name = strings.Trim(name, ". ")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if len(out) > 255 {
		out = out[:255]
	}
	return out
}

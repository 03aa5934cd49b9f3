package pipeline

import (
	"fmt"
	"strings"

	"github.com/scaffy/scaffy/model"
)

// retryNote is appended to a prompt after a failed parse attempt.
const retryNote = "\n\nIMPORTANT: The previous attempt failed due to invalid JSON format. " +
	"Ensure your response is ONLY valid JSON with no additional text."

func parserPrompt(req model.AssignmentRequest) string {
	known := req.KnownLanguage
	if known == "" {
		known = "none"
	}
	return fmt.Sprintf(`Parse this programming assignment into structured tasks for a student to complete.

Assignment: %s
Target language: %s
Known language: %s
Student level: %s

YOUR JOB:
1. Break the assignment into ordered implementation tasks of 20-40 minutes each
2. For each task, list the indices of earlier tasks it depends on
3. Name the programming concepts each task exercises
4. Estimate the time each task takes

Respond with ONLY a JSON object of this shape:
{
  "overview": "brief 2-sentence summary of the assignment",
  "total_estimated_time": "e.g. 3 hours",
  "tasks": [
    {
      "id": 1,
      "title": "short task title",
      "description": "what the student must implement",
      "dependencies": [],
      "estimated_time": "30 minutes",
      "concepts": ["loops", "file I/O"]
    }
  ]
}

Dependencies are 0-based indices into the tasks array and may only reference
earlier tasks. Do not wrap the JSON in markdown fences.`,
		req.Text, req.TargetLanguage, known, req.ExperienceLevel)
}

func scaffoldPrompt(req model.AssignmentRequest, breakdown *model.TaskBreakdown) string {
	var tasks strings.Builder
	for i, t := range breakdown.Tasks {
		fmt.Fprintf(&tasks, "%d. %s: %s\n", i+1, t.Title, t.Description)
	}

	return fmt.Sprintf(`Generate starter code for this assignment in %s.

Assignment: %s

Tasks:
%s
REQUIREMENTS:
- Produce skeleton code the student fills in, never a full solution
- Mark the region for each task with a numbered comment marker on its own
  line: "// TODO 1", "// TODO 2", ... (use "# TODO 1" style for languages
  with hash comments), one marker per task, in task order
- Include imports, type/function signatures, and brief guiding comments
- One entry in todo_list per task, index-aligned with the tasks above

Respond with ONLY a JSON object of this shape:
{
  "code_snippet": "the primary starter file content",
  "instructions": "how to get started",
  "todo_list": ["what to do for task 1", "..."],
  "files": [
    {"filename": "main.%s", "content": "..."}
  ]
}

Do not wrap the JSON in markdown fences.`,
		req.TargetLanguage, req.Text, tasks.String(), strings.ToLower(req.TargetLanguage))
}

func conceptExamplesPrompt(req model.AssignmentRequest, task model.Task) string {
	comparison := ""
	if req.KnownLanguage != "" {
		comparison = fmt.Sprintf("\nThe student already knows %s; where helpful, relate the %s syntax to it.",
			req.KnownLanguage, req.TargetLanguage)
	}
	return fmt.Sprintf(`Give one tiny, self-contained %s example for each of these concepts,
as used in the task below. Keep each example under 10 lines.%s

Task: %s
Concepts: %s

Respond with ONLY a JSON object mapping each concept name to its example code.
Do not wrap the JSON in markdown fences.`,
		req.TargetLanguage, comparison, task.Description, strings.Join(task.Concepts, ", "))
}

func hintPrompt(req model.AssignmentRequest, task model.Task, hint model.HintRequest) string {
	var level string
	switch {
	case hint.HelpCount <= 1:
		level = "This is the student's first request: give gentle, conceptual guidance only. Do not include code."
	case hint.HelpCount == 2:
		level = "The student has asked before: be more specific and include a short illustrative example."
	default:
		level = "The student is stuck: give a detailed hint close to the solution, with example code."
	}

	previous := "None"
	if len(hint.PreviousHints) > 0 {
		previous = "- " + strings.Join(hint.PreviousHints, "\n- ")
	}

	return fmt.Sprintf(`A student working in %s is stuck on this task and asked for help.

Task: %s
Concepts: %s
Student level: %s

Student's question: %s

Student's current code:
%s

Previous hints already given:
%s

%s

Respond with ONLY a JSON object of this shape:
{
  "hint": "the hint text",
  "hint_type": "conceptual" | "specific" | "detailed",
  "example_code": "optional short example, omit when not needed"
}

Do not wrap the JSON in markdown fences.`,
		req.TargetLanguage, task.Description, strings.Join(task.Concepts, ", "),
		req.ExperienceLevel, hint.Question, hint.Code, previous, level)
}

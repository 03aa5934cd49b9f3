// Package llm defines the completion client used by the generation pipeline.
package llm

import "context"

// Client produces a text completion for a prompt. Implementations live in
// subpackages (anthropic); tests use in-memory fakes.
type Client interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

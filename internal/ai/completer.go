package ai

import (
	"context"
	"errors"
	"fmt"
)

// Prompt is a single-turn request: a system instruction and one user message.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
	// JSON asks the backend for a bare JSON object where it supports that.
	JSON bool
}

// Completer returns the raw model text for a prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	Name() string
}

var ErrNotConfigured = errors.New("llm api key is not configured")

// APIError is a non-2xx answer from an LLM provider.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Status, e.Message)
}

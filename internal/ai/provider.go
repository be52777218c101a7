package ai

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when a provider answers with no text.
	ErrEmptyResponse = errors.New("empty response")
	// ErrInvalidJSON is returned when JSON was expected but the text does not parse.
	ErrInvalidJSON = errors.New("response is not valid JSON")
	// ErrNoAPIKey is returned by adapters whose credentials are not configured.
	ErrNoAPIKey = errors.New("API key not configured")
)

// Provider is the interface that all AI backends must implement.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}

// ChatRequest is a provider-agnostic request. Zero Temperature and MaxTokens
// mean "use the adapter's configured defaults". The expected output shape is
// stated in the prompt only; no response-format field is ever sent.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// ChatResponse is a provider-agnostic response.
type ChatResponse struct {
	Content    string
	TokensUsed int
	Model      string
	Provider   string
}

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

package ai

import (
	"fmt"
	"time"
)

// Options describes one provider slot in the cascade.
type Options struct {
	Name        string
	Kind        string // "gemini" or "openai"
	BaseURL     string
	Model       string
	APIKey      string
	RequireKey  bool // only consulted for "openai"; Gemini always needs a key
	ProxyURL    string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// NewProvider builds the adapter for opts with its own HTTP client.
func NewProvider(opts Options) (Provider, error) {
	client, err := NewHTTPClient(TransportConfig{ProxyURL: opts.ProxyURL, Timeout: opts.Timeout})
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", opts.Name, err)
	}
	switch opts.Kind {
	case "gemini":
		return NewGeminiProvider(opts, client), nil
	case "openai":
		return NewOpenAIProvider(opts, client), nil
	default:
		return nil, fmt.Errorf("provider %s: unknown kind %q", opts.Name, opts.Kind)
	}
}

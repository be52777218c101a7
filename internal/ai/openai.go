package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// OpenAI-compatible request/response types (unexported). DashScope's
// compatible mode, Chutes and Ollama all speak this format.

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
	Model   string       `json:"model"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAIProvider implements Provider for OpenAI-compatible chat completion
// endpoints.
type OpenAIProvider struct {
	name        string
	baseURL     string
	model       string
	apiKey      string
	requireKey  bool
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

func NewOpenAIProvider(opts Options, client *http.Client) *OpenAIProvider {
	return &OpenAIProvider{
		name:        opts.Name,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		apiKey:      strings.TrimSpace(opts.APIKey),
		requireKey:  opts.RequireKey,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		httpClient:  client,
	}
}

func (o *OpenAIProvider) Name() string { return o.name }

func (o *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if o.requireKey && o.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", o.name, ErrNoAPIKey)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s request skipped (context already cancelled): %w", o.name, ctx.Err())
	}

	msgs := make([]chatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	body := chatCompletionRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: orFloat(req.Temperature, o.temperature),
		MaxTokens:   orInt(req.MaxTokens, o.maxTokens),
		Stream:      false,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	start := time.Now()
	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed (model=%s, elapsed=%s): %w", o.name, o.model, time.Since(start).Round(time.Millisecond), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errMsg := extractAPIError(respBody)
		if errMsg == "" {
			errMsg = string(respBody)
		}
		return nil, fmt.Errorf("%s returned status %d: %s", o.name, resp.StatusCode, errMsg)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", o.name, err)
	}

	tokensUsed := 0
	if chatResp.Usage != nil {
		tokensUsed = chatResp.Usage.TotalTokens
	}

	content := ""
	if len(chatResp.Choices) > 0 {
		content = chatResp.Choices[0].Message.Content
	}

	slog.Debug("Chat completion finished", "provider", o.name, "model", o.model, "elapsed", time.Since(start), "tokens", tokensUsed)

	return &ChatResponse{
		Content:    content,
		TokensUsed: tokensUsed,
		Model:      o.model,
		Provider:   o.name,
	}, nil
}

// extractAPIError pulls a readable message from either {"error":"message"}
// or {"error":{"message":"text","type":"api_error"}}. DashScope uses
// {"code":"...","message":"..."}.
func extractAPIError(body []byte) string {
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var dash struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &dash) == nil && dash.Message != "" {
		if dash.Code != "" {
			return dash.Code + ": " + dash.Message
		}
		return dash.Message
	}

	return ""
}

func orFloat(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

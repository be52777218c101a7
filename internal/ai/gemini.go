package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Gemini API request/response types (unexported).

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata *geminiUsage      `json:"usageMetadata,omitempty"`
	Error         *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GeminiProvider implements Provider for Google's Gemini REST API.
type GeminiProvider struct {
	name        string
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

func NewGeminiProvider(opts Options, client *http.Client) *GeminiProvider {
	return &GeminiProvider{
		name:        opts.Name,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		apiKey:      strings.TrimSpace(opts.APIKey),
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		httpClient:  client,
	}
}

func (g *GeminiProvider) Name() string { return g.name }

func (g *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", g.name, ErrNoAPIKey)
	}

	body := geminiRequest{
		GenerationConfig: &geminiGenConfig{
			Temperature:     orFloat(req.Temperature, g.temperature),
			MaxOutputTokens: orInt(req.MaxTokens, g.maxTokens),
		},
	}

	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			body.Contents = append(body.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			body.Contents = append(body.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, url.QueryEscape(g.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		// The URL carries the key; report only the cause.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("%s request failed: %w", g.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var genResp geminiResponse
	parseErr := json.Unmarshal(respBody, &genResp)

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if parseErr == nil && genResp.Error != nil && genResp.Error.Message != "" {
			msg = genResp.Error.Message
		}
		return nil, fmt.Errorf("%s returned status %d: %s", g.name, resp.StatusCode, msg)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("parse %s response: %w", g.name, parseErr)
	}

	tokensUsed := 0
	if genResp.UsageMetadata != nil {
		tokensUsed = genResp.UsageMetadata.TotalTokenCount
	}

	var sb strings.Builder
	if len(genResp.Candidates) > 0 {
		for _, p := range genResp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}

	return &ChatResponse{
		Content:    sb.String(),
		TokensUsed: tokensUsed,
		Model:      g.model,
		Provider:   g.name,
	}, nil
}

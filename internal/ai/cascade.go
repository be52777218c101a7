package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Tier is a provider's position in the cascade.
type Tier int

const (
	TierPrimary Tier = iota
	TierSecondary
	TierTertiary
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	}
	return fmt.Sprintf("fallback-%d", int(t))
}

// Slot is one provider in the cascade with its own attempt budget.
type Slot struct {
	Provider Provider
	Timeout  time.Duration
}

// Attempt records the outcome of one provider call.
type Attempt struct {
	Provider string
	Tier     Tier
	Elapsed  time.Duration
	Err      error
}

// Result is the outcome of a cascade run. When Succeeded is false every
// provider failed and the other fields describe nothing useful.
type Result struct {
	RawText    string
	Payload    json.RawMessage // set only when JSON was expected
	Provider   string
	Model      string
	Tier       Tier
	TokensUsed int
	Succeeded  bool
	Attempts   []Attempt
}

// Cascade tries an ordered list of providers, once each, and returns the
// first usable answer. Provider diversity is the retry strategy: no provider
// is retried within a run.
type Cascade struct {
	slots []Slot
}

func NewCascade(slots ...Slot) *Cascade {
	return &Cascade{slots: slots}
}

// Providers returns the provider names in cascade order.
func (c *Cascade) Providers() []string {
	names := make([]string, len(c.slots))
	for i, s := range c.slots {
		names[i] = s.Provider.Name()
	}
	return names
}

// Generate sends prompt to each provider in order until one succeeds. With
// expectJSON, the answer must parse as JSON after fence stripping or the
// attempt counts as failed. Failure of all providers is reported through
// Result.Succeeded, never as an error or panic.
func (c *Cascade) Generate(ctx context.Context, prompt string, expectJSON bool) Result {
	var res Result
	for i, slot := range c.slots {
		if ctx.Err() != nil {
			break
		}
		tier := Tier(i)
		start := time.Now()
		resp, text, payload, err := c.attempt(ctx, slot, prompt, expectJSON)
		a := Attempt{Provider: slot.Provider.Name(), Tier: tier, Elapsed: time.Since(start), Err: err}
		res.Attempts = append(res.Attempts, a)

		if err != nil {
			slog.Warn("Provider attempt failed", "provider", a.Provider, "tier", tier, "elapsed", a.Elapsed.Round(time.Millisecond), "error", err)
			continue
		}

		slog.Info("Provider attempt succeeded", "provider", a.Provider, "tier", tier, "elapsed", a.Elapsed.Round(time.Millisecond), "tokens", resp.TokensUsed)
		res.RawText = text
		res.Payload = payload
		res.Provider = a.Provider
		res.Model = resp.Model
		res.Tier = tier
		res.TokensUsed = resp.TokensUsed
		res.Succeeded = true
		return res
	}

	slog.Error("All providers failed", "attempts", len(res.Attempts))
	return res
}

func (c *Cascade) attempt(ctx context.Context, slot Slot, prompt string, expectJSON bool) (resp *ChatResponse, text string, payload json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, text, payload = nil, "", nil
			err = fmt.Errorf("provider panicked: %v", r)
		}
	}()

	attemptCtx := ctx
	if slot.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, slot.Timeout)
		defer cancel()
	}

	resp, err = slot.Provider.Chat(attemptCtx, ChatRequest{
		Messages: []Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, "", nil, err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, "", nil, ErrEmptyResponse
	}

	text = strings.TrimSpace(resp.Content)
	if !expectJSON {
		return resp, text, nil, nil
	}

	text = StripFences(text)
	if !json.Valid([]byte(text)) {
		return nil, "", nil, fmt.Errorf("%w: %s", ErrInvalidJSON, preview(text, 120))
	}
	return resp, text, json.RawMessage(text), nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

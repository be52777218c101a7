package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thinkscotty/globaldaily/internal/ai"
	"github.com/thinkscotty/globaldaily/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBuildCascade_KeepsConfiguredOrder(t *testing.T) {
	cfg := config.DefaultConfig()
	c, err := buildCascade(cfg)
	if err != nil {
		t.Fatalf("buildCascade: %v", err)
	}
	got := c.Providers()
	want := []string{"gemini", "qwen", "chutes"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestBuildCascade_BadProxy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Network.ProxyURL = "://bad"
	if _, err := buildCascade(cfg); err == nil {
		t.Fatal("expected error for malformed proxy url")
	}
}

func TestBuildResolver_NeverEmpty(t *testing.T) {
	for _, matcher := range []string{"prefix", "trigram"} {
		cfg := config.DefaultConfig().Images
		cfg.Matcher = matcher
		cfg.GeneratorURL = ""
		r := buildResolver(cfg)
		if url := r.Resolve(nil, config.DefaultCategories()[0]); url == "" {
			t.Errorf("%s: expected a pool image", matcher)
		}
	}
}

func TestNewApp_SQLite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "app.db")

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()

	if a.pipeline == nil || a.redis != nil {
		t.Fatalf("unexpected app wiring %+v", a)
	}
	if a.scheduler() == nil {
		t.Fatal("expected scheduler")
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeProvider struct {
	name string
	err  error
}

func (f fakeProvider) Name() string { return f.name }

func (f fakeProvider) Chat(context.Context, ai.ChatRequest) (*ai.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ai.ChatResponse{Content: "OK", Provider: f.name}, nil
}

func TestCheckAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<rss version="2.0"><channel><title>t</title><item><title>a</title><link>https://a</link></item></channel></rss>`))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	fetcher, err := buildFetcher(cfg)
	if err != nil {
		t.Fatalf("buildFetcher: %v", err)
	}
	slots := []ai.Slot{
		{Provider: fakeProvider{name: "gemini"}},
		{Provider: fakeProvider{name: "qwen", err: errors.New("401 Unauthorized")}},
	}

	var out bytes.Buffer
	failed := checkAll(context.Background(), &out, fakePinger{}, fetcher, srv.URL, slots)
	if failed != 1 {
		t.Errorf("expected 1 failure, got %d:\n%s", failed, out.String())
	}
	for _, want := range []string{"ok    store", "ok    feed via direct", "ok    provider gemini", "FAIL  provider qwen"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, out.String())
		}
	}

	out.Reset()
	if failed := checkAll(context.Background(), &out, fakePinger{err: errors.New("closed")}, fetcher, "", nil); failed != 1 {
		t.Errorf("expected store failure only, got %d:\n%s", failed, out.String())
	}
	if !strings.Contains(out.String(), "skip  feed routes") {
		t.Errorf("expected feed check to be skipped:\n%s", out.String())
	}
}

func TestFirstFeed(t *testing.T) {
	if got := firstFeed(config.DefaultCategories()); got == "" {
		t.Error("expected a feed from the default categories")
	}
	if got := firstFeed(nil); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

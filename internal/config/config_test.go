package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thinkscotty/globaldaily/internal/models"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Server.Port != 8080 {
		t.Errorf("unexpected defaults %+v", cfg.Server)
	}
	if len(cfg.Providers) != 3 || cfg.Providers[0].Name != "gemini" {
		t.Errorf("expected default cascade, got %+v", cfg.Providers)
	}
	if len(cfg.Categories) != len(DefaultCategories()) {
		t.Errorf("expected default categories, got %d", len(cfg.Categories))
	}
	for _, c := range cfg.Categories {
		if c.MaxItems != cfg.Pipeline.MaxItems || c.PerFeed != cfg.Pipeline.PerFeed {
			t.Errorf("category %s limits not filled: %+v", c.Key, c)
		}
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  port: 9090
pipeline:
  time_zone: UTC
  per_feed: 2
categories:
  - key: ai
    name: AI
    feeds: ["https://example.com/feed"]
    max_items: 4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("unset fields should keep defaults, got host %q", cfg.Server.Host)
	}
	if len(cfg.Categories) != 1 {
		t.Fatalf("expected 1 category, got %d", len(cfg.Categories))
	}
	c := cfg.Categories[0]
	if c.Kind != models.KindSummarizeNews || c.MaxItems != 4 || c.PerFeed != 2 {
		t.Errorf("unexpected category %+v", c)
	}
	if cfg.Location().String() != "UTC" {
		t.Errorf("unexpected location %v", cfg.Location())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GLOBALDAILY_PROXY", "http://127.0.0.1:7890")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/gd")
	t.Setenv("CATEGORY_DELAY_SECONDS", "0")
	t.Setenv("GEMINI_API_KEY", "  gem-key \n")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.DSN != "postgres://u:p@localhost/gd" {
		t.Errorf("database env not applied: %+v", cfg.Database)
	}
	if cfg.Pipeline.CategoryDelaySeconds != 0 {
		t.Errorf("expected delay 0, got %d", cfg.Pipeline.CategoryDelaySeconds)
	}
	if cfg.Providers[0].APIKey != "gem-key" {
		t.Errorf("expected trimmed key from env, got %q", cfg.Providers[0].APIKey)
	}
	if got := cfg.ProxyFor(cfg.Providers[0]); got != "http://127.0.0.1:7890" {
		t.Errorf("gemini should use the proxy, got %q", got)
	}
	if got := cfg.ProxyFor(cfg.Providers[1]); got != "" {
		t.Errorf("qwen should go direct, got %q", got)
	}
}

func TestLoad_CategoriesFile(t *testing.T) {
	cats := writeFile(t, "categories.yaml", `
categories:
  - key: quote
    kind: compose_quote
  - key: jokes
    kind: compose_jokes
`)
	path := writeFile(t, "config.yaml", "categories_file: "+cats+"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Categories) != 2 || cfg.Categories[0].Key != "quote" || cfg.Categories[1].Kind != models.KindComposeJokes {
		t.Errorf("unexpected categories %+v", cfg.Categories)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"no providers", func(c *Config) { c.Providers = nil }, "at least one provider"},
		{"bad provider kind", func(c *Config) { c.Providers[0].Kind = "anthropic" }, "kind must be"},
		{"redis without addr", func(c *Config) { c.Ledger.Backend = "redis" }, "redis_addr"},
		{"duplicate key", func(c *Config) { c.Categories[1].Key = c.Categories[0].Key }, "duplicate category"},
		{"unknown kind", func(c *Config) { c.Categories[0].Kind = "compose_poem" }, "unknown kind"},
		{"bad feed url", func(c *Config) { c.Categories[0].Feeds = []string{"feed.xml"} }, "http or https"},
		{"bad time zone", func(c *Config) { c.Pipeline.TimeZone = "Mars/Olympus" }, "time_zone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadCategories(t *testing.T) {
	t.Run("missing file falls back", func(t *testing.T) {
		cats, err := LoadCategories(filepath.Join(t.TempDir(), "none.yaml"))
		if err != nil || len(cats) != len(DefaultCategories()) {
			t.Fatalf("expected defaults, got %d, %v", len(cats), err)
		}
	})
	t.Run("empty list falls back", func(t *testing.T) {
		cats, err := LoadCategories(writeFile(t, "c.yaml", "categories: []\n"))
		if err != nil || len(cats) != len(DefaultCategories()) {
			t.Fatalf("expected defaults, got %d, %v", len(cats), err)
		}
	})
	t.Run("malformed", func(t *testing.T) {
		if _, err := LoadCategories(writeFile(t, "c.yaml", "categories: {")); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestDefaultCategories(t *testing.T) {
	cats := DefaultCategories()
	if cats[0].Key != "domestic-politics" || cats[len(cats)-1].Kind != models.KindComposeQuote {
		t.Errorf("unexpected category order")
	}
	for _, c := range cats {
		if c.Kind.NeedsMaterials() && len(c.Feeds) == 0 {
			t.Errorf("category %s needs feeds", c.Key)
		}
	}
}

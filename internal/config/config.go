package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/thinkscotty/globaldaily/internal/feeds"
	"github.com/thinkscotty/globaldaily/internal/models"
)

type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Database   DatabaseConfig    `yaml:"database"`
	Logging    LoggingConfig     `yaml:"logging"`
	Network    NetworkConfig     `yaml:"network"`
	Providers  []ProviderConfig  `yaml:"providers"`
	Images     ImagesConfig      `yaml:"images"`
	Text       TextConfig        `yaml:"text"`
	Pipeline   PipelineConfig    `yaml:"pipeline"`
	Ledger     LedgerConfig      `yaml:"ledger"`
	Schedule   ScheduleConfig    `yaml:"schedule"`
	Categories []models.Category `yaml:"categories"`

	// CategoriesFile, when set, replaces Categories with the list it holds.
	CategoriesFile string `yaml:"categories_file"`
}

type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	APIKey              string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// NetworkConfig describes the egress paths used for feed fetching.
// ProxyURL is only set outside hosted execution contexts.
type NetworkConfig struct {
	ProxyURL            string `yaml:"proxy_url"`
	UserAgent           string `yaml:"user_agent"`
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
}

type ProviderConfig struct {
	Name           string  `yaml:"name"`
	Kind           string  `yaml:"kind"` // "gemini" or "openai"
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	UseProxy       bool    `yaml:"use_proxy"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
}

type ImagesConfig struct {
	GeneratorURL  string              `yaml:"generator_url"`
	Width         int                 `yaml:"width"`
	Height        int                 `yaml:"height"`
	Matcher       string              `yaml:"matcher"` // "prefix" or "trigram"
	PrefixLength  int                 `yaml:"prefix_length"`
	TrigramThresh float64             `yaml:"trigram_threshold"`
	NGramSize     int                 `yaml:"ngram_size"`
	Pool          map[string][]string `yaml:"pool"`
	Phrases       map[string]string   `yaml:"phrases"`
}

type TextConfig struct {
	MaxLen int `yaml:"max_len"`
}

type PipelineConfig struct {
	CategoryDelaySeconds int     `yaml:"category_delay_seconds"`
	MaxItems             int     `yaml:"max_items"`
	PerFeed              int     `yaml:"per_feed"`
	TimeZone             string  `yaml:"time_zone"`
	DuplicateThreshold   float64 `yaml:"duplicate_threshold"`
}

type LedgerConfig struct {
	Backend       string `yaml:"backend"` // "database" or "redis"
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLHours      int    `yaml:"ttl_hours"`
}

type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// Location returns the time zone used to date runs.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Pipeline.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ProxyFor returns the proxy a provider should use, or "" for direct.
func (c Config) ProxyFor(p ProviderConfig) string {
	if !p.UseProxy {
		return ""
	}
	return c.Network.ProxyURL
}

func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 30,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "./globaldaily.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Network: NetworkConfig{
			UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			FetchTimeoutSeconds: 15,
		},
		Providers: DefaultProviders(),
		Images: ImagesConfig{
			GeneratorURL:  "https://image.pollinations.ai/prompt",
			Width:         1024,
			Height:        576,
			Matcher:       "prefix",
			PrefixLength:  5,
			TrigramThresh: 0.35,
			NGramSize:     3,
		},
		Text: TextConfig{
			MaxLen: 500,
		},
		Pipeline: PipelineConfig{
			CategoryDelaySeconds: 5,
			MaxItems:             6,
			PerFeed:              3,
			TimeZone:             "Asia/Shanghai",
			DuplicateThreshold:   0.6,
		},
		Ledger: LedgerConfig{
			Backend: "database",
		},
		Schedule: ScheduleConfig{
			Cron: "0 7 * * *",
		},
		Categories: DefaultCategories(),
	}
}

// DefaultProviders is the primary/secondary/tertiary cascade.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			Name:           "gemini",
			Kind:           "gemini",
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta",
			Model:          "gemini-flash-latest",
			APIKeyEnv:      "GEMINI_API_KEY",
			UseProxy:       true,
			TimeoutSeconds: 40,
			Temperature:    0.7,
			MaxTokens:      4096,
		},
		{
			Name:           "qwen",
			Kind:           "openai",
			BaseURL:        "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Model:          "qwen-turbo",
			APIKeyEnv:      "DASHSCOPE_API_KEY",
			TimeoutSeconds: 60,
			Temperature:    0.7,
			MaxTokens:      4096,
		},
		{
			Name:           "chutes",
			Kind:           "openai",
			BaseURL:        "https://llm.chutes.ai/v1",
			Model:          "deepseek-ai/DeepSeek-V3",
			APIKeyEnv:      "CHUTES_API_KEY",
			TimeoutSeconds: 90,
			Temperature:    0.7,
			MaxTokens:      4096,
		},
	}
}

// Load reads a YAML config file and merges it over defaults, then applies
// environment overrides (a .env file in the working directory is honoured).
// If the file does not exist, defaults are used without error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		slog.Info("No config file found, using defaults", "path", path)
	default:
		return cfg, err
	}

	cfg.applyEnv()
	if cfg.CategoriesFile != "" {
		cats, err := LoadCategories(cfg.CategoriesFile)
		if err != nil {
			return cfg, err
		}
		cfg.Categories = cats
	}
	cfg.fillDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GLOBALDAILY_PROXY"); v != "" {
		c.Network.ProxyURL = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Ledger.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASS"); v != "" {
		c.Ledger.RedisPassword = v
	}
	if v := os.Getenv("GLOBALDAILY_API_KEY"); v != "" {
		c.Server.APIKey = v
	}
	if v := os.Getenv("CATEGORIES_FILE"); v != "" {
		c.CategoriesFile = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CATEGORY_DELAY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Pipeline.CategoryDelaySeconds = n
		}
	}
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.APIKey == "" && p.APIKeyEnv != "" {
			p.APIKey = strings.TrimSpace(os.Getenv(p.APIKeyEnv))
		}
	}
}

// fillDefaults fills per-category limits left at zero.
func (c *Config) fillDefaults() {
	for i := range c.Categories {
		cat := &c.Categories[i]
		if cat.MaxItems <= 0 {
			cat.MaxItems = c.Pipeline.MaxItems
		}
		if cat.PerFeed <= 0 {
			cat.PerFeed = c.Pipeline.PerFeed
		}
		if cat.Kind == "" {
			cat.Kind = models.KindSummarizeNews
		}
	}
}

func (c *Config) Validate() error {
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("database.driver must be 'sqlite' or 'postgres', got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	for _, p := range c.Providers {
		if p.Kind != "gemini" && p.Kind != "openai" {
			return fmt.Errorf("provider %q: kind must be 'gemini' or 'openai'", p.Name)
		}
		if p.BaseURL == "" {
			return fmt.Errorf("provider %q: base_url is required", p.Name)
		}
	}
	if c.Ledger.Backend != "database" && c.Ledger.Backend != "redis" {
		return fmt.Errorf("ledger.backend must be 'database' or 'redis'")
	}
	if c.Ledger.Backend == "redis" && c.Ledger.RedisAddr == "" {
		return fmt.Errorf("ledger.redis_addr is required for the redis backend")
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Key == "" {
			return fmt.Errorf("category key is required")
		}
		if seen[cat.Key] {
			return fmt.Errorf("duplicate category key %q", cat.Key)
		}
		seen[cat.Key] = true
		if !cat.Kind.Valid() {
			return fmt.Errorf("category %q: unknown kind %q", cat.Key, cat.Kind)
		}
		for _, u := range cat.Feeds {
			if err := feeds.ValidateURL(u); err != nil {
				return fmt.Errorf("category %q: feed %q: %w", cat.Key, u, err)
			}
		}
	}
	if c.Text.MaxLen <= 0 {
		return fmt.Errorf("text.max_len must be positive")
	}
	if _, err := time.LoadLocation(c.Pipeline.TimeZone); err != nil {
		return fmt.Errorf("pipeline.time_zone: %w", err)
	}
	return nil
}

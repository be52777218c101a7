package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/thinkscotty/globaldaily/internal/ai"
	"github.com/thinkscotty/globaldaily/internal/config"
	"github.com/thinkscotty/globaldaily/internal/database"
	"github.com/thinkscotty/globaldaily/internal/feeds"
	"github.com/thinkscotty/globaldaily/internal/images"
	"github.com/thinkscotty/globaldaily/internal/ledger"
	"github.com/thinkscotty/globaldaily/internal/pipeline"
	"github.com/thinkscotty/globaldaily/internal/scheduler"
	"github.com/thinkscotty/globaldaily/internal/similarity"
)

// app holds the long-lived dependencies shared by every command.
type app struct {
	cfg      config.Config
	db       *database.DB
	redis    *ledger.RedisBackend
	pipeline *pipeline.Pipeline
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Logging.Level)})))
	return cfg, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openStore opens the database only; read-only commands need nothing else.
func openStore(cfg config.Config) (*database.DB, error) {
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	slog.Info("Database initialized", "driver", cfg.Database.Driver)
	return db, nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db}

	backend, err := a.ledgerBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	fetcher, err := buildFetcher(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	cascade, err := buildCascade(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.pipeline = pipeline.New(fetcher, ledger.New(backend), cascade, buildResolver(cfg.Images), db, cfg.Categories, pipeline.Options{
		CategoryDelay:      time.Duration(cfg.Pipeline.CategoryDelaySeconds) * time.Second,
		TextMaxLen:         cfg.Text.MaxLen,
		PerFeed:            cfg.Pipeline.PerFeed,
		Location:           cfg.Location(),
		DuplicateThreshold: cfg.Pipeline.DuplicateThreshold,
	})
	return a, nil
}

// ledgerBackend picks the seen-URL store. An unreachable Redis is logged and
// kept: the ledger fails open, so runs still proceed.
func (a *app) ledgerBackend(ctx context.Context) (ledger.Backend, error) {
	if a.cfg.Ledger.Backend != "redis" {
		return a.db, nil
	}
	a.redis = ledger.NewRedisBackend(ledger.RedisConfig{
		Addr:     a.cfg.Ledger.RedisAddr,
		Password: a.cfg.Ledger.RedisPassword,
		DB:       a.cfg.Ledger.RedisDB,
		TTL:      a.retention(),
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := a.redis.Ping(pingCtx); err != nil {
		slog.Warn("Redis ledger unreachable, continuing", "addr", a.cfg.Ledger.RedisAddr, "error", err)
	}
	return a.redis, nil
}

func (a *app) retention() time.Duration {
	return time.Duration(a.cfg.Ledger.TTLHours) * time.Hour
}

// scheduler wraps the pipeline. Seen URLs are purged from the database only;
// Redis expires its own keys.
func (a *app) scheduler() *scheduler.Scheduler {
	opts := scheduler.Options{Location: a.cfg.Location(), Retention: a.retention()}
	if a.redis == nil {
		opts.Purger = a.db
	}
	return scheduler.New(a.pipeline, opts)
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func buildFetcher(cfg config.Config) (*feeds.Fetcher, error) {
	f, err := feeds.NewFetcher(feeds.Config{
		ProxyURL:  cfg.Network.ProxyURL,
		UserAgent: cfg.Network.UserAgent,
		Timeout:   time.Duration(cfg.Network.FetchTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("feed fetcher: %w", err)
	}
	return f, nil
}

// buildCascade creates one provider per configured entry, in cascade order.
func buildCascade(cfg config.Config) (*ai.Cascade, error) {
	slots, err := buildSlots(cfg)
	if err != nil {
		return nil, err
	}
	c := ai.NewCascade(slots...)
	slog.Info("Provider cascade ready", "providers", strings.Join(c.Providers(), " > "))
	return c, nil
}

func buildSlots(cfg config.Config) ([]ai.Slot, error) {
	var slots []ai.Slot
	for _, p := range cfg.Providers {
		timeout := time.Duration(p.TimeoutSeconds) * time.Second
		provider, err := ai.NewProvider(ai.Options{
			Name:        p.Name,
			Kind:        p.Kind,
			BaseURL:     p.BaseURL,
			Model:       p.Model,
			APIKey:      p.APIKey,
			RequireKey:  p.APIKeyEnv != "",
			ProxyURL:    cfg.ProxyFor(p),
			Timeout:     timeout,
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		if p.APIKey == "" && (p.Kind == "gemini" || p.APIKeyEnv != "") {
			slog.Warn("Provider has no API key, it will be skipped", "provider", p.Name)
		}
		slots = append(slots, ai.Slot{Provider: provider, Timeout: timeout})
	}
	return slots, nil
}

func buildResolver(cfg config.ImagesConfig) *images.Resolver {
	var matcher similarity.Matcher = similarity.Prefix{N: cfg.PrefixLength}
	if cfg.Matcher == "trigram" {
		matcher = similarity.New(cfg.TrigramThresh, cfg.NGramSize)
	}
	return images.NewResolver(
		matcher,
		images.NewGenerator(cfg.GeneratorURL, cfg.Width, cfg.Height),
		images.NewStaticPool(cfg.Pool),
		images.Phrases(cfg.Phrases),
	)
}

// Package server exposes persisted bundles over a small read-only JSON API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/thinkscotty/globaldaily/internal/config"
	"github.com/thinkscotty/globaldaily/internal/models"
)

// Store is the read side of the database.
type Store interface {
	Ping(ctx context.Context) error
	ListBundles(ctx context.Context, date string) ([]models.CategoryBundle, error)
	LatestDate(ctx context.Context) (string, error)
	GetBundle(ctx context.Context, date, category string) (*models.CategoryBundle, error)
	LatestBundle(ctx context.Context, category string) (*models.CategoryBundle, error)
	GetQuote(ctx context.Context, date string) (*models.QuoteRecord, error)
	RecentRuns(ctx context.Context, limit int) ([]models.RunLog, error)
}

type Server struct {
	cfg        config.ServerConfig
	store      Store
	categories []models.Category
	loc        *time.Location
	version    string
	now        func() time.Time
	httpSrv    *http.Server
}

func New(cfg config.ServerConfig, store Store, categories []models.Category, loc *time.Location, version string) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		cfg:        cfg,
		store:      store,
		categories: categories,
		loc:        loc,
		version:    version,
		now:        time.Now,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)
	return recoveryMiddleware(loggingMiddleware(mux))
}

// Start sets up routes and starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSeconds) * time.Second,
	}

	slog.Info("Starting server", "addr", addr, "api_key_required", s.cfg.APIKey != "")
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) routes(mux *http.ServeMux) {
	// Health is always public
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	mux.Handle("GET /api/v1/categories", s.requireAPIKey(http.HandlerFunc(s.handleCategories)))
	mux.Handle("GET /api/v1/bundles", s.requireAPIKey(http.HandlerFunc(s.handleBundles)))
	mux.Handle("GET /api/v1/bundles/{category}", s.requireAPIKey(http.HandlerFunc(s.handleBundle)))
	mux.Handle("GET /api/v1/quote", s.requireAPIKey(http.HandlerFunc(s.handleQuote)))
	mux.Handle("GET /api/v1/runs", s.requireAPIKey(http.HandlerFunc(s.handleRuns)))
}

func (s *Server) today() string {
	return s.now().In(s.loc).Format(time.DateOnly)
}

package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/thinkscotty/globaldaily/internal/database"
	"github.com/thinkscotty/globaldaily/internal/models"
)

const maxRunsLimit = 200

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		slog.Error("API: health check failed", "error", err)
		jsonError(w, "Database unavailable", http.StatusServiceUnavailable)
		return
	}
	jsonResponse(w, map[string]any{"status": "ok", "version": s.version})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	type categoryResp struct {
		Key     string                 `json:"key"`
		Section string                 `json:"section"`
		Name    string                 `json:"name"`
		Kind    models.InstructionKind `json:"kind"`
	}

	result := make([]categoryResp, 0, len(s.categories))
	for _, c := range s.categories {
		result = append(result, categoryResp{Key: c.Key, Section: c.Section, Name: c.Name, Kind: c.Kind})
	}
	jsonResponse(w, map[string]any{"categories": result})
}

// handleBundles lists every bundle for a date. Without a date it serves
// today, or the latest date that has bundles if today has none yet.
func (s *Server) handleBundles(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	explicit := date != ""
	if !explicit {
		date = s.today()
	}

	bundles, err := s.store.ListBundles(r.Context(), date)
	if err != nil {
		slog.Error("API: failed to list bundles", "date", date, "error", err)
		jsonError(w, "Failed to list bundles", 500)
		return
	}

	if len(bundles) == 0 && !explicit {
		latest, err := s.store.LatestDate(r.Context())
		if errors.Is(err, database.ErrNotFound) {
			jsonError(w, "No bundles yet", 404)
			return
		}
		if err != nil {
			slog.Error("API: failed to find latest date", "error", err)
			jsonError(w, "Failed to list bundles", 500)
			return
		}
		date = latest
		if bundles, err = s.store.ListBundles(r.Context(), date); err != nil {
			slog.Error("API: failed to list bundles", "date", date, "error", err)
			jsonError(w, "Failed to list bundles", 500)
			return
		}
	}

	if bundles == nil {
		bundles = []models.CategoryBundle{}
	}
	jsonResponse(w, map[string]any{"date": date, "bundles": bundles})
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	var (
		b   *models.CategoryBundle
		err error
	)
	if date == "" {
		b, err = s.store.LatestBundle(r.Context(), category)
	} else {
		b, err = s.store.GetBundle(r.Context(), date, category)
	}
	if errors.Is(err, database.ErrNotFound) {
		jsonError(w, "Bundle not found", 404)
		return
	}
	if err != nil {
		slog.Error("API: failed to get bundle", "category", category, "date", date, "error", err)
		jsonError(w, "Failed to get bundle", 500)
		return
	}

	jsonResponse(w, map[string]any{"bundle": b})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	q, err := s.store.GetQuote(r.Context(), date)
	if errors.Is(err, database.ErrNotFound) {
		jsonError(w, "Quote not found", 404)
		return
	}
	if err != nil {
		slog.Error("API: failed to get quote", "date", date, "error", err)
		jsonError(w, "Failed to get quote", 500)
		return
	}

	jsonResponse(w, map[string]any{"quote": q})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, maxRunsLimit)
		}
	}

	runs, err := s.store.RecentRuns(r.Context(), limit)
	if err != nil {
		slog.Error("API: failed to list runs", "error", err)
		jsonError(w, "Failed to list runs", 500)
		return
	}
	if runs == nil {
		runs = []models.RunLog{}
	}
	jsonResponse(w, map[string]any{"runs": runs})
}

// dateParam reads ?date=YYYY-MM-DD. An absent date yields "" and true; a
// malformed one writes a 400 and yields false.
func dateParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return "", true
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		jsonError(w, "date must be YYYY-MM-DD", 400)
		return "", false
	}
	return date, true
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

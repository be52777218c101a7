package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/thinkscotty/globaldaily/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: "postgres"}
	if got := pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Errorf("unexpected rebind %q", got)
	}
	lite := &DB{driver: "sqlite"}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite query should be unchanged, got %q", got)
	}
}

func bundle(date, category, title string) *models.CategoryBundle {
	return &models.CategoryBundle{
		Date:     date,
		Category: category,
		Section:  "国内",
		Name:     "科技",
		Cards: []models.ContentCard{
			{Title: title, Content: "content", SourceURL: "https://src/" + title, ImageURL: "https://img/" + title},
		},
		Provider:  "gemini",
		RunID:     "run",
		CreatedAt: time.Now(),
	}
}

func TestReplaceBundle_ReplaceOnWrite(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := db.ReplaceBundle(ctx, bundle("2026-10-16", "tech", "first")); err != nil {
		t.Fatalf("ReplaceBundle: %v", err)
	}
	second := bundle("2026-10-16", "tech", "second")
	second.SummaryText = "digest"
	second.Cards = append(second.Cards, models.ContentCard{Title: "extra", Content: "c", ImageURL: "https://img/x"})
	if err := db.ReplaceBundle(ctx, second); err != nil {
		t.Fatalf("ReplaceBundle: %v", err)
	}

	list, err := db.ListBundles(ctx, "2026-10-16")
	if err != nil {
		t.Fatalf("ListBundles: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected exactly one bundle for the key, got %d", len(list))
	}

	got, err := db.GetBundle(ctx, "2026-10-16", "tech")
	if err != nil {
		t.Fatalf("GetBundle: %v", err)
	}
	if len(got.Cards) != 2 || got.Cards[0].Title != "second" || got.SummaryText != "digest" {
		t.Errorf("expected second insertion's content, got %+v", got)
	}
	if got.Cards[0].ImageURL != "https://img/second" {
		t.Errorf("image url not round-tripped: %q", got.Cards[0].ImageURL)
	}
}

func TestBundles_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for _, b := range []*models.CategoryBundle{
		bundle("2026-10-15", "tech", "old"),
		bundle("2026-10-16", "tech", "new"),
		bundle("2026-10-16", "ai", "ai"),
	} {
		if err := db.ReplaceBundle(ctx, b); err != nil {
			t.Fatalf("ReplaceBundle: %v", err)
		}
	}

	latest, err := db.LatestBundle(ctx, "tech")
	if err != nil {
		t.Fatalf("LatestBundle: %v", err)
	}
	if latest.Date != "2026-10-16" || latest.Cards[0].Title != "new" {
		t.Errorf("unexpected latest bundle %+v", latest)
	}

	list, _ := db.ListBundles(ctx, "2026-10-16")
	if len(list) != 2 {
		t.Errorf("expected 2 bundles on 2026-10-16, got %d", len(list))
	}

	date, err := db.LatestDate(ctx)
	if err != nil || date != "2026-10-16" {
		t.Errorf("LatestDate = %q, %v", date, err)
	}

	if err := db.DeleteBundle(ctx, "2026-10-16", "ai"); err != nil {
		t.Fatalf("DeleteBundle: %v", err)
	}
	if _, err := db.GetBundle(ctx, "2026-10-16", "ai"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestBundles_NotFound(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if _, err := db.GetBundle(ctx, "2026-01-01", "none"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBundle: expected ErrNotFound, got %v", err)
	}
	if _, err := db.LatestBundle(ctx, "none"); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestBundle: expected ErrNotFound, got %v", err)
	}
	if _, err := db.LatestDate(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestDate: expected ErrNotFound, got %v", err)
	}
	list, err := db.ListBundles(ctx, "2026-01-01")
	if err != nil || len(list) != 0 {
		t.Errorf("expected empty list, got %v, %v", list, err)
	}
}

func TestQuotes_ReplaceOnWrite(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := db.ReplaceQuote(ctx, &models.QuoteRecord{Date: "2026-10-15", Content: "old", Author: "a"}); err != nil {
		t.Fatalf("ReplaceQuote: %v", err)
	}
	if err := db.ReplaceQuote(ctx, &models.QuoteRecord{Date: "2026-10-16", Content: "first", Author: "b"}); err != nil {
		t.Fatalf("ReplaceQuote: %v", err)
	}
	if err := db.ReplaceQuote(ctx, &models.QuoteRecord{Date: "2026-10-16", Content: "second", Author: "c", Provider: "qwen"}); err != nil {
		t.Fatalf("ReplaceQuote: %v", err)
	}

	q, err := db.GetQuote(ctx, "2026-10-16")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if q.Content != "second" || q.Author != "c" || q.Provider != "qwen" {
		t.Errorf("unexpected quote %+v", q)
	}

	latest, err := db.GetQuote(ctx, "")
	if err != nil || latest.Date != "2026-10-16" {
		t.Errorf("expected latest quote, got %+v, %v", latest, err)
	}

	if _, err := db.GetQuote(ctx, "2000-01-01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSeen(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	seen, err := db.HasSeen(ctx, "https://a")
	if err != nil || seen {
		t.Fatalf("expected unseen, got %v, %v", seen, err)
	}
	if err := db.InsertSeen(ctx, "https://a", "first"); err != nil {
		t.Fatalf("InsertSeen: %v", err)
	}
	if err := db.InsertSeen(ctx, "https://a", "again"); err != nil {
		t.Fatalf("InsertSeen duplicate should be a no-op: %v", err)
	}
	if seen, _ := db.HasSeen(ctx, "https://a"); !seen {
		t.Error("expected url to be seen")
	}
	if n, _ := db.CountSeen(ctx); n != 1 {
		t.Errorf("expected 1 seen record, got %d", n)
	}

	removed, err := db.PurgeSeen(ctx, time.Now().Add(-time.Hour))
	if err != nil || removed != 0 {
		t.Errorf("expected nothing purged, got %d, %v", removed, err)
	}
	removed, err = db.PurgeSeen(ctx, time.Now().Add(time.Hour))
	if err != nil || removed != 1 {
		t.Errorf("expected 1 purged, got %d, %v", removed, err)
	}
}

func TestSeen_ClosedDBReturnsError(t *testing.T) {
	db := openTestDB(t)
	db.Close()
	if _, err := db.HasSeen(context.Background(), "https://a"); err == nil {
		t.Error("expected error from closed database")
	}
}

func TestRunLog(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	for i, cat := range []string{"a", "b", "c"} {
		r := models.RunLog{RunID: "r1", Category: cat, Provider: "gemini", Materials: 6, Cards: i, Dropped: 1}
		if cat == "c" {
			r.Error = "all providers failed"
		}
		if err := db.LogRun(ctx, r); err != nil {
			t.Fatalf("LogRun: %v", err)
		}
	}

	runs, err := db.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Category != "c" || runs[0].Error == "" || runs[1].Category != "b" {
		t.Errorf("expected newest first, got %+v", runs)
	}
	if runs[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

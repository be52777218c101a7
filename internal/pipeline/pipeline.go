// Package pipeline drives one daily run: for each configured category in
// order it gathers material, makes a single generation call, and persists
// the result. A category's failure never affects the others.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/thinkscotty/globaldaily/internal/ai"
	"github.com/thinkscotty/globaldaily/internal/assembler"
	"github.com/thinkscotty/globaldaily/internal/feeds"
	"github.com/thinkscotty/globaldaily/internal/images"
	"github.com/thinkscotty/globaldaily/internal/ledger"
	"github.com/thinkscotty/globaldaily/internal/models"
	"github.com/thinkscotty/globaldaily/internal/similarity"
)

// FeedSource fetches a parsed feed; false means "no data".
type FeedSource interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, bool)
}

// Generator runs a prompt through the provider cascade.
type Generator interface {
	Generate(ctx context.Context, prompt string, expectJSON bool) ai.Result
}

// Store persists run output.
type Store interface {
	ReplaceBundle(ctx context.Context, b *models.CategoryBundle) error
	ReplaceQuote(ctx context.Context, q *models.QuoteRecord) error
	LogRun(ctx context.Context, r models.RunLog) error
}

type Options struct {
	CategoryDelay      time.Duration
	TextMaxLen         int
	PerFeed            int
	Location           *time.Location
	DuplicateThreshold float64 // 0 disables near-duplicate headline filtering
}

// Status of one category within a run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

type CategoryResult struct {
	Category  string
	Status    Status
	Provider  string
	Materials int
	Cards     int
	Dropped   int
	Err       error
}

type Summary struct {
	RunID      string
	Date       string
	Categories []CategoryResult
}

// Count returns how many categories ended with status s.
func (s Summary) Count(status Status) int {
	n := 0
	for _, c := range s.Categories {
		if c.Status == status {
			n++
		}
	}
	return n
}

type Pipeline struct {
	feeds      FeedSource
	ledger     *ledger.Ledger
	gen        Generator
	assembler  *assembler.Assembler
	resolver   *images.Resolver
	store      Store
	categories []models.Category
	dedup      *similarity.Checker
	opts       Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) bool
}

func New(fs FeedSource, l *ledger.Ledger, gen Generator, resolver *images.Resolver, store Store, categories []models.Category, opts Options) *Pipeline {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PerFeed <= 0 {
		opts.PerFeed = 3
	}
	if opts.TextMaxLen <= 0 {
		opts.TextMaxLen = 500
	}
	p := &Pipeline{
		feeds:      fs,
		ledger:     l,
		gen:        gen,
		assembler:  assembler.New(resolver),
		resolver:   resolver,
		store:      store,
		categories: categories,
		opts:       opts,
		now:        time.Now,
		sleep:      sleepCtx,
	}
	if opts.DuplicateThreshold > 0 {
		p.dedup = similarity.New(opts.DuplicateThreshold, 3)
	}
	return p
}

// Today returns the run date in the configured time zone.
func (p *Pipeline) Today() string {
	return p.now().In(p.opts.Location).Format("2006-01-02")
}

// Run processes the configured categories in order. When only is non-empty,
// categories whose key is not listed are left out.
func (p *Pipeline) Run(ctx context.Context, only ...string) Summary {
	sum := Summary{RunID: uuid.NewString(), Date: p.Today()}
	log := slog.With("run_id", sum.RunID)

	selected := p.selectCategories(only)
	log.Info("Daily run started", "date", sum.Date, "categories", len(selected))

	for i, cat := range selected {
		if ctx.Err() != nil {
			log.Warn("Run cancelled", "remaining", len(selected)-i)
			break
		}

		res := p.safeRunCategory(ctx, sum.RunID, sum.Date, cat)
		sum.Categories = append(sum.Categories, res)
		p.logRun(ctx, sum.RunID, res)

		if i < len(selected)-1 && p.opts.CategoryDelay > 0 {
			if !p.sleep(ctx, p.opts.CategoryDelay) {
				break
			}
		}
	}

	log.Info("Daily run finished",
		"ok", sum.Count(StatusOK), "skipped", sum.Count(StatusSkipped), "failed", sum.Count(StatusFailed))
	return sum
}

func (p *Pipeline) selectCategories(only []string) []models.Category {
	if len(only) == 0 {
		return p.categories
	}
	want := make(map[string]bool, len(only))
	for _, k := range only {
		want[k] = true
	}
	var out []models.Category
	for _, c := range p.categories {
		if want[c.Key] {
			out = append(out, c)
		}
	}
	return out
}

func (p *Pipeline) safeRunCategory(ctx context.Context, runID, date string, cat models.Category) (res CategoryResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while processing category", "run_id", runID, "category", cat.Key, "panic", r, "stack", string(debug.Stack()))
			res = CategoryResult{Category: cat.Key, Status: StatusFailed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return p.RunCategory(ctx, runID, date, cat)
}

// RunCategory processes a single category.
func (p *Pipeline) RunCategory(ctx context.Context, runID, date string, cat models.Category) CategoryResult {
	log := slog.With("run_id", runID, "category", cat.Key)
	res := CategoryResult{Category: cat.Key}

	var materials []models.FeedItem
	var pool images.TitlePool
	if cat.Kind.NeedsMaterials() {
		materials, pool = p.gather(ctx, cat)
		res.Materials = len(materials)
		if len(materials) == 0 {
			log.Warn("No new material, skipping category")
			res.Status = StatusSkipped
			return res
		}
	}

	req := assembler.BuildRequest(cat, materials)
	result := p.gen.Generate(ctx, assembler.Prompt(req), cat.Kind.ExpectsJSON())
	res.Provider = result.Provider
	if !result.Succeeded {
		log.Error("Generation failed on every provider, skipping category", "attempts", len(result.Attempts))
		res.Status = StatusFailed
		res.Err = fmt.Errorf("all %d providers failed", len(result.Attempts))
		return res
	}

	if cat.Kind == models.KindComposeQuote {
		q, err := p.assembler.AssembleQuote(result, date)
		if err != nil {
			return failed(log, res, "Invalid quote payload", err)
		}
		if err := p.store.ReplaceQuote(ctx, q); err != nil {
			return failed(log, res, "Failed to save quote", err)
		}
		res.Status = StatusOK
		res.Cards = 1
		log.Info("Quote saved", "provider", result.Provider, "author", q.Author)
		return res
	}

	bundle, err := p.assembler.Assemble(req, result, pool, date, runID)
	if err != nil {
		return failed(log, res, "Failed to assemble bundle", err)
	}
	res.Dropped = bundle.Dropped
	res.Cards = len(bundle.Cards)

	if err := p.store.ReplaceBundle(ctx, bundle.CategoryBundle); err != nil {
		return failed(log, res, "Failed to save bundle", err)
	}

	for _, m := range req.Materials {
		p.ledger.MarkSeen(ctx, m.URL, m.Title)
	}

	res.Status = StatusOK
	log.Info("Bundle saved", "provider", result.Provider, "tier", result.Tier,
		"cards", res.Cards, "dropped", res.Dropped, "materials", len(req.Materials))
	return res
}

func failed(log *slog.Logger, res CategoryResult, msg string, err error) CategoryResult {
	log.Error(msg, "error", err)
	res.Status = StatusFailed
	res.Err = err
	return res
}

// gather pulls up to PerFeed new entries from each of the category's feeds.
// Entries already in the ledger, repeated links and near-duplicate headlines
// are skipped.
func (p *Pipeline) gather(ctx context.Context, cat models.Category) ([]models.FeedItem, images.TitlePool) {
	perFeed := cat.PerFeed
	if perFeed <= 0 {
		perFeed = p.opts.PerFeed
	}

	var items []models.FeedItem
	var pool images.TitlePool
	var titles []string
	links := make(map[string]bool)

	for _, url := range cat.Feeds {
		if ctx.Err() != nil {
			break
		}
		feed, ok := p.feeds.Fetch(ctx, url)
		if !ok {
			continue
		}
		source := feeds.SourceName(feed, url)

		taken, seen := 0, 0
		for _, entry := range feed.Items {
			if taken >= perFeed {
				break
			}
			if entry == nil {
				continue
			}
			fi := feeds.ToFeedItem(entry, source, p.opts.TextMaxLen)
			if fi.URL == "" || fi.Title == "" || links[fi.URL] {
				continue
			}
			if p.ledger.IsSeen(ctx, fi.URL) {
				seen++
				continue
			}
			if p.dedup != nil && p.dedup.IsTooSimilar(fi.Title, titles) {
				continue
			}
			fi.ImageURL = p.resolver.FromEntry(entry)
			pool.Add(fi.Title, fi.URL, fi.ImageURL)

			links[fi.URL] = true
			titles = append(titles, fi.Title)
			items = append(items, fi)
			taken++
		}
		slog.Debug("Feed gathered", "category", cat.Key, "url", url, "new", taken, "seen", seen)
	}
	return items, pool
}

func (p *Pipeline) logRun(ctx context.Context, runID string, res CategoryResult) {
	entry := models.RunLog{
		RunID:     runID,
		Category:  res.Category,
		Provider:  res.Provider,
		Materials: res.Materials,
		Cards:     res.Cards,
		Dropped:   res.Dropped,
		CreatedAt: p.now(),
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	} else if res.Status == StatusSkipped {
		entry.Error = "skipped: no new material"
	}
	if err := p.store.LogRun(ctx, entry); err != nil {
		slog.Warn("Failed to write run log", "run_id", runID, "category", res.Category, "error", err)
	}
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

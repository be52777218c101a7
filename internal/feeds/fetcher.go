// Package feeds retrieves syndication feeds over an unreliable network and
// turns their entries into bounded plain-text material.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const maxBodyBytes = 10 << 20

// Config describes the egress paths and identification used when fetching.
type Config struct {
	ProxyURL  string
	UserAgent string
	Timeout   time.Duration
}

// route is one network path a fetch may take.
type route struct {
	name   string
	client *http.Client
}

// Fetcher retrieves and parses feeds. Failures are never returned as errors:
// an unreachable, malformed or empty feed is reported as "no data".
type Fetcher struct {
	userAgent string
	timeout   time.Duration
	routes    []route
	discover  func(ctx context.Context, pageURL string) string
}

// NewFetcher creates a Fetcher. With a proxy configured, the proxied route is
// tried first and the direct route second; otherwise only the direct route
// is used.
func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	f := &Fetcher{
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
	}

	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.Proxy = http.ProxyURL(proxy)
		f.routes = append(f.routes, route{name: "proxy", client: &http.Client{Transport: t, Timeout: cfg.Timeout}})
	}

	direct := http.DefaultTransport.(*http.Transport).Clone()
	direct.Proxy = nil
	f.routes = append(f.routes, route{name: "direct", client: &http.Client{Transport: direct, Timeout: cfg.Timeout}})

	f.discover = f.discoverFeed
	return f, nil
}

// discoverFeed looks for a feed link on pageURL, trying each route in turn
// until one of them loads the page.
func (f *Fetcher) discoverFeed(ctx context.Context, pageURL string) string {
	for _, r := range f.routes {
		feedURL, err := DiscoverFeed(ctx, pageURL, f.userAgent, f.timeout, r.client.Transport)
		if err == nil {
			return feedURL
		}
		slog.Debug("Feed discovery route failed", "url", pageURL, "route", r.name, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return ""
}

// Fetch retrieves feedURL and parses it. It returns false when every route
// failed, the document is not a feed, or the feed has no entries.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, bool) {
	return f.fetch(ctx, feedURL, true)
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string, allowDiscovery bool) (*gofeed.Feed, bool) {
	body, err := f.download(ctx, feedURL)
	if err != nil {
		slog.Warn("Feed unavailable", "url", feedURL, "error", err)
		return nil, false
	}

	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		if allowDiscovery && errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			if discovered := f.discover(ctx, feedURL); discovered != "" && discovered != feedURL {
				slog.Info("Discovered feed on page", "page", feedURL, "feed", discovered)
				return f.fetch(ctx, discovered, false)
			}
		}
		slog.Warn("Failed to parse feed", "url", feedURL, "error", err)
		return nil, false
	}

	if len(feed.Items) == 0 {
		slog.Warn("Feed has no entries", "url", feedURL)
		return nil, false
	}
	return feed, true
}

// download tries each route in turn and returns the body of the first 2xx
// response, decoded as UTF-8.
func (f *Fetcher) download(ctx context.Context, feedURL string) (string, error) {
	var lastErr error
	for _, r := range f.routes {
		body, err := f.get(ctx, r.client, feedURL)
		if err == nil {
			return body, nil
		}
		lastErr = fmt.Errorf("%s: %w", r.name, err)
		if ctx.Err() != nil {
			break
		}
		slog.Debug("Feed route failed", "url", feedURL, "route", r.name, "error", err)
	}
	return "", lastErr
}

func (f *Fetcher) get(ctx context.Context, client *http.Client, feedURL string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

// RouteCheck is the outcome of requesting a URL over one route.
type RouteCheck struct {
	Route   string
	Elapsed time.Duration
	Err     error
}

// CheckRoutes requests feedURL over every route, without falling back, so a
// dead proxy shows up even when the direct route works.
func (f *Fetcher) CheckRoutes(ctx context.Context, feedURL string) []RouteCheck {
	checks := make([]RouteCheck, 0, len(f.routes))
	for _, r := range f.routes {
		start := time.Now()
		_, err := f.get(ctx, r.client, feedURL)
		checks = append(checks, RouteCheck{Route: r.name, Elapsed: time.Since(start), Err: err})
	}
	return checks
}

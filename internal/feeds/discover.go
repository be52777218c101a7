package feeds

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// DiscoverFeed checks an HTML page for an RSS/Atom <link rel="alternate">
// tag. Returns the absolute feed URL, or "" if none was found. The page is
// requested through transport; a nil transport goes direct and ignores the
// proxy environment variables.
func DiscoverFeed(ctx context.Context, pageURL, userAgent string, timeout time.Duration, transport http.RoundTripper) (string, error) {
	if transport == nil {
		direct := http.DefaultTransport.(*http.Transport).Clone()
		direct.Proxy = nil
		transport = direct
	}

	opts := []colly.CollectorOption{
		colly.MaxDepth(0),
		colly.StdlibContext(ctx),
	}
	if userAgent != "" {
		opts = append(opts, colly.UserAgent(userAgent))
	}
	c := colly.NewCollector(opts...)
	c.WithTransport(transport)
	c.SetRequestTimeout(timeout)

	var feedURL string
	var mu sync.Mutex

	c.OnHTML(`link[rel="alternate"]`, func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if feedURL != "" {
			return
		}
		typ := strings.ToLower(e.Attr("type"))
		if typ == "application/rss+xml" || typ == "application/atom+xml" {
			if href := e.Attr("href"); href != "" {
				feedURL = resolveURL(pageURL, href)
			}
		}
	})

	if err := c.Visit(pageURL); err != nil {
		return "", err
	}
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	return feedURL, nil
}

// resolveURL resolves a potentially relative href against a base URL.
func resolveURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

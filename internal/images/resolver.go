// Package images resolves an illustrative image URL for feed entries and
// generated cards. Resolution walks a fixed chain of fallbacks that ends in a
// static pool, so a resolver never returns an empty URL.
package images

import (
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/thinkscotty/globaldaily/internal/models"
	"github.com/thinkscotty/globaldaily/internal/similarity"
)

var imgSrcRe = regexp.MustCompile(`(?i)<img[^>]+src\s*=\s*["']([^"']+)["']`)

// Candidate is an ingested entry that may lend its image to a generated card.
type Candidate struct {
	Title     string
	SourceURL string
	ImageURL  string
}

// TitlePool collects the entries gathered for one category.
type TitlePool []Candidate

// Add records a candidate. Entries without an image are ignored.
func (p *TitlePool) Add(title, sourceURL, imageURL string) {
	if imageURL == "" {
		return
	}
	*p = append(*p, Candidate{Title: title, SourceURL: sourceURL, ImageURL: imageURL})
}

type Resolver struct {
	matcher   similarity.Matcher
	generator *Generator
	pool      *StaticPool
	phrases   map[string]string
}

// NewResolver wires the fallback chain. A nil matcher defaults to a 5-rune
// prefix match.
func NewResolver(matcher similarity.Matcher, generator *Generator, pool *StaticPool, phrases map[string]string) *Resolver {
	if matcher == nil {
		matcher = similarity.Prefix{N: 5}
	}
	if pool == nil {
		pool = NewStaticPool(nil)
	}
	if phrases == nil {
		phrases = Phrases(nil)
	}
	return &Resolver{matcher: matcher, generator: generator, pool: pool, phrases: phrases}
}

// FromEntry looks for an image carried by the entry itself: media
// extensions, image enclosures, then the first <img> in its markup.
// Returns "" when the entry has none.
func (r *Resolver) FromEntry(item *gofeed.Item) string {
	if item == nil {
		return ""
	}
	if u := mediaURL(item.Extensions); u != "" {
		return u
	}
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(strings.ToLower(enc.Type), "image/") {
			return enc.URL
		}
	}
	for _, html := range []string{item.Content, item.Description} {
		if m := imgSrcRe.FindStringSubmatch(html); m != nil {
			return m[1]
		}
	}
	return ""
}

// Resolve returns an image for a feed entry within a category. Never "".
func (r *Resolver) Resolve(item *gofeed.Item, category models.Category) string {
	if u := r.FromEntry(item); u != "" {
		return u
	}
	return r.fallback("", category)
}

// ForCard returns an image for a generated card: the image of the entry it
// was written from, else of an entry with a matching title, else a generated
// or pooled image. Never "".
func (r *Resolver) ForCard(card models.ContentCard, imagePrompt string, category models.Category, pool TitlePool) string {
	if card.SourceURL != "" {
		for _, c := range pool {
			if c.SourceURL == card.SourceURL {
				return c.ImageURL
			}
		}
	}
	for _, c := range pool {
		if r.matcher.Match(card.Title, c.Title) {
			return c.ImageURL
		}
	}
	return r.fallback(imagePrompt, category)
}

func (r *Resolver) fallback(prompt string, category models.Category) string {
	if strings.TrimSpace(prompt) == "" {
		prompt = r.phrase(category.ImageTopic)
	}
	if u := r.generator.URL(prompt); u != "" {
		return u
	}
	return r.pool.Pick(category.ImageTopic)
}

func (r *Resolver) phrase(topic string) string {
	if p, ok := r.phrases[strings.ToLower(topic)]; ok {
		return p
	}
	return r.phrases[DefaultTopic]
}

func mediaURL(exts ext.Extensions) string {
	media, ok := exts["media"]
	if !ok {
		return ""
	}
	for _, name := range []string{"content", "thumbnail"} {
		for _, e := range media[name] {
			if u := e.Attrs["url"]; u != "" && isImageMedia(e) {
				return u
			}
		}
	}
	for _, g := range media["group"] {
		for _, name := range []string{"content", "thumbnail"} {
			for _, e := range g.Children[name] {
				if u := e.Attrs["url"]; u != "" && isImageMedia(e) {
					return u
				}
			}
		}
	}
	return ""
}

// isImageMedia rejects media:content entries explicitly typed as non-image.
func isImageMedia(e ext.Extension) bool {
	if e.Name == "thumbnail" {
		return true
	}
	if m := strings.ToLower(e.Attrs["medium"]); m != "" && m != "image" {
		return false
	}
	if t := strings.ToLower(e.Attrs["type"]); t != "" && !strings.HasPrefix(t, "image/") {
		return false
	}
	return true
}

package feeds

import (
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/thinkscotty/globaldaily/internal/models"
)

// ToFeedItem converts a parsed entry into pipeline material. The summary is
// taken from the description, falling back to the full content.
func ToFeedItem(item *gofeed.Item, source string, maxLen int) models.FeedItem {
	raw := item.Description
	if strings.TrimSpace(raw) == "" {
		raw = item.Content
	}
	return models.FeedItem{
		Title:           strings.TrimSpace(item.Title),
		URL:             strings.TrimSpace(item.Link),
		RawSummary:      ExtractText(raw, maxLen),
		PublishedSource: source,
	}
}

// SourceName picks a display name for a feed: its title, else the host.
func SourceName(feed *gofeed.Feed, feedURL string) string {
	if feed != nil {
		if t := strings.TrimSpace(feed.Title); t != "" {
			return t
		}
	}
	rest := feedURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

package feeds

import (
	"testing"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		maxLen int
		want   string
	}{
		{"empty", "", 10, ""},
		{"plain", "hello world", 100, "hello world"},
		{"markup", "<p>Hello <b>world</b></p>", 100, "Hello world"},
		{"whitespace collapsed", "<div>a\n\n   b\tc</div>", 100, "a b c"},
		{"truncated", "<p>abcdefghij</p>", 4, "abcd"},
		{"runes not bytes", "<p>中文新闻摘要</p>", 3, "中文新"},
		{"unclosed tags", "<p><b>broken", 100, "broken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractText(tt.raw, tt.maxLen); got != tt.want {
				t.Errorf("ExtractText(%q, %d) = %q, want %q", tt.raw, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestExtractText_NeverExceedsMaxLen(t *testing.T) {
	raw := "<p>" + "这是一段非常长的摘要内容，用来测试截断是否按字符而不是字节进行。" + "</p>"
	got := ExtractText(raw, 10)
	if n := utf8.RuneCountInString(got); n != 10 {
		t.Errorf("expected 10 runes, got %d (%q)", n, got)
	}
	if !utf8.ValidString(got) {
		t.Error("truncation produced invalid UTF-8")
	}
}

func TestToFeedItem(t *testing.T) {
	item := &gofeed.Item{
		Title:       "  Title  ",
		Link:        "https://example.com/a ",
		Description: "<p>Summary</p>",
	}
	fi := ToFeedItem(item, "Example", 500)
	if fi.Title != "Title" || fi.URL != "https://example.com/a" {
		t.Errorf("unexpected item %+v", fi)
	}
	if fi.RawSummary != "Summary" {
		t.Errorf("expected stripped summary, got %q", fi.RawSummary)
	}
	if fi.PublishedSource != "Example" {
		t.Errorf("expected source Example, got %q", fi.PublishedSource)
	}

	item = &gofeed.Item{Title: "x", Link: "y", Content: "<div>From content</div>"}
	if got := ToFeedItem(item, "", 500).RawSummary; got != "From content" {
		t.Errorf("expected content fallback, got %q", got)
	}
}

func TestSourceName(t *testing.T) {
	if got := SourceName(&gofeed.Feed{Title: "BBC News"}, "http://feeds.bbci.co.uk/news/world/rss.xml"); got != "BBC News" {
		t.Errorf("expected feed title, got %q", got)
	}
	if got := SourceName(&gofeed.Feed{}, "http://feeds.bbci.co.uk/news/world/rss.xml"); got != "feeds.bbci.co.uk" {
		t.Errorf("expected host, got %q", got)
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://www.36kr.com/feed", false},
		{"http://feeds.bbci.co.uk/news/world/rss.xml", false},
		{"ftp://example.com/feed", true},
		{"/relative/feed.xml", true},
		{"https://", true},
		{"://broken", true},
	}
	for _, tt := range tests {
		if err := ValidateURL(tt.url); (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

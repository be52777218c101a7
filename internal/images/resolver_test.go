package images

import (
	"net/url"
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/thinkscotty/globaldaily/internal/models"
	"github.com/thinkscotty/globaldaily/internal/similarity"
)

func TestFromEntry(t *testing.T) {
	tests := []struct {
		name string
		item *gofeed.Item
		want string
	}{
		{"nil", nil, ""},
		{"nothing", &gofeed.Item{Title: "x", Description: "no image here"}, ""},
		{
			"media content",
			&gofeed.Item{Extensions: ext.Extensions{"media": {"content": {{Name: "content", Attrs: map[string]string{"url": "https://img/media.jpg", "medium": "image"}}}}}},
			"https://img/media.jpg",
		},
		{
			"media content video is skipped for thumbnail",
			&gofeed.Item{Extensions: ext.Extensions{"media": {
				"content":   {{Name: "content", Attrs: map[string]string{"url": "https://vid/clip.mp4", "type": "video/mp4"}}},
				"thumbnail": {{Name: "thumbnail", Attrs: map[string]string{"url": "https://img/thumb.jpg"}}},
			}}},
			"https://img/thumb.jpg",
		},
		{
			"media group",
			&gofeed.Item{Extensions: ext.Extensions{"media": {"group": {{Name: "group", Children: map[string][]ext.Extension{
				"content": {{Name: "content", Attrs: map[string]string{"url": "https://img/group.jpg"}}},
			}}}}}},
			"https://img/group.jpg",
		},
		{"item image", &gofeed.Item{Image: &gofeed.Image{URL: "https://img/item.png"}}, "https://img/item.png"},
		{
			"image enclosure",
			&gofeed.Item{Enclosures: []*gofeed.Enclosure{
				{URL: "https://audio/ep.mp3", Type: "audio/mpeg"},
				{URL: "https://img/enc.jpg", Type: "image/jpeg"},
			}},
			"https://img/enc.jpg",
		},
		{
			"img in content before description",
			&gofeed.Item{
				Content:     `<p>text</p><img class="x" src="https://img/content.jpg" />`,
				Description: `<img src='https://img/desc.jpg'>`,
			},
			"https://img/content.jpg",
		},
		{"img in description", &gofeed.Item{Description: `<IMG SRC='https://img/desc.jpg'>`}, "https://img/desc.jpg"},
	}

	r := NewResolver(nil, nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.FromEntry(tt.item); got != tt.want {
				t.Errorf("FromEntry() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolve_NeverEmpty(t *testing.T) {
	generators := map[string]*Generator{
		"with generator":    NewGenerator("https://image.example/prompt", 1024, 576),
		"without generator": NewGenerator("", 0, 0),
		"nil generator":     nil,
	}
	categories := []models.Category{
		{Key: "a", ImageTopic: "politics"},
		{Key: "b", ImageTopic: "no-such-topic"},
		{Key: "c"},
	}
	items := []*gofeed.Item{nil, {}, {Title: "bare"}}

	for name, g := range generators {
		r := NewResolver(nil, g, NewStaticPool(nil), nil)
		for _, cat := range categories {
			for _, item := range items {
				if got := r.Resolve(item, cat); got == "" {
					t.Errorf("%s: Resolve(%v, %q) returned empty", name, item, cat.ImageTopic)
				}
				card := models.ContentCard{Title: "Anything"}
				if got := r.ForCard(card, "", cat, nil); got == "" {
					t.Errorf("%s: ForCard(%q) returned empty", name, cat.ImageTopic)
				}
			}
		}
	}
}

func TestResolve_PrefersEntryImage(t *testing.T) {
	r := NewResolver(nil, NewGenerator("https://image.example/prompt", 1, 1), nil, nil)
	item := &gofeed.Item{Image: &gofeed.Image{URL: "https://img/item.png"}}
	if got := r.Resolve(item, models.Category{ImageTopic: "tech"}); got != "https://img/item.png" {
		t.Errorf("expected entry image, got %q", got)
	}
}

func TestResolve_StaticPoolWhenGeneratorDisabled(t *testing.T) {
	pool := NewStaticPool(map[string][]string{"tech": {"https://pool/tech.jpg"}})
	r := NewResolver(nil, NewGenerator("", 0, 0), pool, nil)
	if got := r.Resolve(&gofeed.Item{}, models.Category{ImageTopic: "tech"}); got != "https://pool/tech.jpg" {
		t.Errorf("expected pooled image, got %q", got)
	}
}

func TestForCard(t *testing.T) {
	var pool TitlePool
	pool.Add("AI Breakthrough in Robotics", "https://news/robots", "https://img/robots.jpg")
	pool.Add("Markets close higher", "https://news/markets", "https://img/markets.jpg")
	pool.Add("No picture story", "https://news/plain", "")

	gen := NewGenerator("https://image.example/prompt", 800, 600)
	r := NewResolver(similarity.Prefix{N: 5}, gen, NewStaticPool(nil), nil)
	cat := models.Category{ImageTopic: "tech"}

	t.Run("source url join", func(t *testing.T) {
		card := models.ContentCard{Title: "Completely different", SourceURL: "https://news/markets"}
		if got := r.ForCard(card, "", cat, pool); got != "https://img/markets.jpg" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("fuzzy title", func(t *testing.T) {
		card := models.ContentCard{Title: "AI Breakthrough"}
		if got := r.ForCard(card, "", cat, pool); got != "https://img/robots.jpg" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("ai supplied prompt", func(t *testing.T) {
		card := models.ContentCard{Title: "Economy Grows"}
		got := r.ForCard(card, "a rising chart", cat, pool)
		if !strings.HasPrefix(got, "https://image.example/prompt/"+url.PathEscape("a rising chart")+"?") {
			t.Errorf("got %q", got)
		}
	})

	t.Run("category phrase", func(t *testing.T) {
		card := models.ContentCard{Title: "Sports Win"}
		got := r.ForCard(card, "  ", cat, pool)
		want := "https://image.example/prompt/" + url.PathEscape(builtinPhrases["tech"]) + "?"
		if !strings.HasPrefix(got, want) {
			t.Errorf("got %q, want prefix %q", got, want)
		}
	})
}

func TestTitlePool_IgnoresEntriesWithoutImage(t *testing.T) {
	var pool TitlePool
	pool.Add("a", "u", "")
	if len(pool) != 0 {
		t.Errorf("expected empty pool, got %d", len(pool))
	}
}

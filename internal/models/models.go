package models

import "time"

// InstructionKind selects the prompt and the output shape for a category.
type InstructionKind string

const (
	KindSummarizeNews    InstructionKind = "summarize_news"
	KindComposeJokes     InstructionKind = "compose_jokes"
	KindComposeQuote     InstructionKind = "compose_quote"
	KindComposeEditorial InstructionKind = "compose_editorial"
)

// NeedsMaterials reports whether the kind is built from fetched feed items.
func (k InstructionKind) NeedsMaterials() bool {
	return k == KindSummarizeNews || k == KindComposeEditorial
}

// ExpectsJSON reports whether the provider output must parse as JSON.
func (k InstructionKind) ExpectsJSON() bool {
	return k != KindComposeEditorial
}

func (k InstructionKind) Valid() bool {
	switch k {
	case KindSummarizeNews, KindComposeJokes, KindComposeQuote, KindComposeEditorial:
		return true
	}
	return false
}

type Category struct {
	Key        string          `yaml:"key" json:"key"`
	Section    string          `yaml:"section" json:"section"`
	Name       string          `yaml:"name" json:"name"`
	Kind       InstructionKind `yaml:"kind" json:"kind"`
	Feeds      []string        `yaml:"feeds" json:"feeds,omitempty"`
	ImageTopic string          `yaml:"image_topic" json:"image_topic"`
	MaxItems   int             `yaml:"max_items" json:"max_items"`
	PerFeed    int             `yaml:"per_feed" json:"per_feed"`
}

type FeedItem struct {
	Title           string `json:"title"`
	URL             string `json:"url"`
	RawSummary      string `json:"raw_summary"`
	PublishedSource string `json:"published_source"`
	ImageURL        string `json:"image_url,omitempty"`
}

type SeenRecord struct {
	URL    string    `json:"url"`
	Title  string    `json:"title"`
	SeenAt time.Time `json:"seen_at"`
}

type GenerationRequest struct {
	Category  Category
	Kind      InstructionKind
	Materials []FeedItem
	MaxItems  int
}

type ContentCard struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	SourceURL  string `json:"source_url,omitempty"`
	SourceName string `json:"source_name,omitempty"`
	ImageURL   string `json:"image_url"`
}

type CategoryBundle struct {
	Date        string        `json:"date"`
	Category    string        `json:"category"`
	Section     string        `json:"section"`
	Name        string        `json:"name"`
	Cards       []ContentCard `json:"cards"`
	SummaryText string        `json:"summary_text,omitempty"`
	Provider    string        `json:"provider"`
	RunID       string        `json:"run_id"`
	CreatedAt   time.Time     `json:"created_at"`
}

type QuoteRecord struct {
	Date      string    `json:"date"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

type RunLog struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Category  string    `json:"category"`
	Provider  string    `json:"provider,omitempty"`
	Materials int       `json:"materials"`
	Cards     int       `json:"cards"`
	Dropped   int       `json:"dropped"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

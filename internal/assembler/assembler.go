// Package assembler turns gathered material and provider output into the
// records that get persisted.
package assembler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/thinkscotty/globaldaily/internal/ai"
	"github.com/thinkscotty/globaldaily/internal/images"
	"github.com/thinkscotty/globaldaily/internal/models"
)

// DefaultMaxItems caps the materials sent in one request.
const DefaultMaxItems = 6

var (
	// ErrNoCards is returned when no item in the payload passed validation.
	ErrNoCards = errors.New("no valid cards in payload")
	// ErrBadShape is returned when the payload is not a card list at all.
	ErrBadShape = errors.New("payload is not a list of cards")
)

// BuildRequest shuffles the materials and truncates them to the category's
// limit, so feeds listed first are not favoured.
func BuildRequest(category models.Category, materials []models.FeedItem) models.GenerationRequest {
	maxItems := category.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	sampled := make([]models.FeedItem, len(materials))
	copy(sampled, materials)
	rand.Shuffle(len(sampled), func(i, j int) { sampled[i], sampled[j] = sampled[j], sampled[i] })
	if len(sampled) > maxItems {
		sampled = sampled[:maxItems]
	}

	return models.GenerationRequest{
		Category:  category,
		Kind:      category.Kind,
		Materials: sampled,
		MaxItems:  maxItems,
	}
}

// Card is a validated card as returned by a provider, before an image is
// attached.
type Card struct {
	Title       string
	Content     string
	SourceURL   string
	SourceName  string
	ImagePrompt string
}

// Cards validates a provider payload. The payload must be a JSON array of
// card objects, or an object whose "cards" field (or only array field) is one. Items that fail
// validation are dropped and counted.
func Cards(payload json.RawMessage) ([]Card, int, error) {
	items, err := cardItems(payload)
	if err != nil {
		return nil, 0, err
	}

	var cards []Card
	dropped := 0
	for _, raw := range items {
		c, ok := parseCard(raw)
		if !ok {
			dropped++
			continue
		}
		cards = append(cards, c)
	}
	return cards, dropped, nil
}

func cardItems(payload json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, ErrBadShape
	}

	var items []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadShape, err)
		}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadShape, err)
		}
		list, ok := wrappedList(fields)
		if !ok {
			return nil, ErrBadShape
		}
		if err := json.Unmarshal(list, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadShape, err)
		}
	default:
		return nil, ErrBadShape
	}
	return items, nil
}

// wrappedList picks the card list out of an object: the "cards" field, or
// else the only array-valued field.
func wrappedList(fields map[string]json.RawMessage) (json.RawMessage, bool) {
	if cards, ok := fields["cards"]; ok {
		return cards, isArray(cards)
	}
	var found json.RawMessage
	for _, v := range fields {
		if !isArray(v) {
			continue
		}
		if found != nil {
			return nil, false
		}
		found = v
	}
	return found, found != nil
}

func isArray(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	return len(t) > 0 && t[0] == '['
}

func parseCard(raw json.RawMessage) (Card, bool) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return Card{}, false
	}

	title, ok := requiredString(obj, "title")
	if !ok {
		return Card{}, false
	}
	content, ok := requiredString(obj, "content")
	if !ok {
		return Card{}, false
	}

	c := Card{Title: title, Content: content}
	for key, dst := range map[string]*string{
		"source_url":   &c.SourceURL,
		"source_name":  &c.SourceName,
		"image_prompt": &c.ImagePrompt,
	} {
		v, present := obj[key]
		if !present || v == nil {
			continue
		}
		s, isString := v.(string)
		if !isString {
			return Card{}, false
		}
		*dst = strings.TrimSpace(s)
	}
	return c, true
}

func requiredString(obj map[string]any, key string) (string, bool) {
	s, ok := obj[key].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Quote validates a compose_quote payload: an object with non-empty string
// content and a string author.
func Quote(payload json.RawMessage) (content, author string, err error) {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil || obj == nil {
		return "", "", fmt.Errorf("quote payload is not an object")
	}
	content, ok := requiredString(obj, "content")
	if !ok {
		return "", "", fmt.Errorf("quote payload has no content")
	}
	if v, present := obj["author"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return "", "", fmt.Errorf("quote author is not a string")
		}
		author = strings.TrimSpace(s)
	}
	return content, author, nil
}

// Assembler merges provider output with resolved images.
type Assembler struct {
	resolver *images.Resolver
	now      func() time.Time
}

func New(resolver *images.Resolver) *Assembler {
	return &Assembler{resolver: resolver, now: time.Now}
}

// Bundle is an assembled category bundle plus the number of items that were
// dropped by validation.
type Bundle struct {
	*models.CategoryBundle
	Dropped int
}

// Assemble builds the bundle for one category from a successful cascade
// result. Every card in the returned bundle has a non-empty image URL.
func (a *Assembler) Assemble(req models.GenerationRequest, res ai.Result, pool images.TitlePool, date, runID string) (*Bundle, error) {
	if !res.Succeeded {
		return nil, fmt.Errorf("generation failed for %s", req.Category.Key)
	}

	b := &models.CategoryBundle{
		Date:      date,
		Category:  req.Category.Key,
		Section:   req.Category.Section,
		Name:      req.Category.Name,
		Provider:  res.Provider,
		RunID:     runID,
		CreatedAt: a.now().UTC(),
	}

	if req.Kind == models.KindComposeEditorial {
		b.SummaryText = res.RawText
		for _, m := range req.Materials {
			card := models.ContentCard{
				Title:      m.Title,
				Content:    m.RawSummary,
				SourceURL:  m.URL,
				SourceName: m.PublishedSource,
				ImageURL:   m.ImageURL,
			}
			if card.ImageURL == "" {
				card.ImageURL = a.resolver.ForCard(card, "", req.Category, pool)
			}
			b.Cards = append(b.Cards, card)
		}
		return &Bundle{CategoryBundle: b}, nil
	}

	cards, dropped, err := Cards(res.Payload)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w (%d dropped)", ErrNoCards, dropped)
	}
	if req.MaxItems > 0 && len(cards) > req.MaxItems {
		cards = cards[:req.MaxItems]
	}

	sources := make(map[string]string, len(req.Materials))
	for _, m := range req.Materials {
		sources[m.URL] = m.PublishedSource
	}

	for _, c := range cards {
		card := models.ContentCard{
			Title:      c.Title,
			Content:    c.Content,
			SourceURL:  c.SourceURL,
			SourceName: c.SourceName,
		}
		if card.SourceName == "" {
			card.SourceName = sources[card.SourceURL]
		}
		card.ImageURL = a.resolver.ForCard(card, c.ImagePrompt, req.Category, pool)
		b.Cards = append(b.Cards, card)
	}
	return &Bundle{CategoryBundle: b, Dropped: dropped}, nil
}

// AssembleQuote builds the day's quote from a successful cascade result.
func (a *Assembler) AssembleQuote(res ai.Result, date string) (*models.QuoteRecord, error) {
	if !res.Succeeded {
		return nil, fmt.Errorf("generation failed for quote")
	}
	content, author, err := Quote(res.Payload)
	if err != nil {
		return nil, err
	}
	return &models.QuoteRecord{
		Date:      date,
		Content:   content,
		Author:    author,
		Provider:  res.Provider,
		CreatedAt: a.now().UTC(),
	}, nil
}

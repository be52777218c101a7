package images

import (
	"math/rand/v2"
	"strings"
)

// DefaultTopic is the pool used for unknown or empty topics.
const DefaultTopic = "default"

var builtinPool = map[string][]string{
	"politics": {
		"https://images.unsplash.com/photo-1529107386315-e1a2ed48a620?w=1024",
		"https://images.unsplash.com/photo-1541872703-74c5e44368f9?w=1024",
		"https://images.unsplash.com/photo-1575320181282-9afab399332c?w=1024",
	},
	"economy": {
		"https://images.unsplash.com/photo-1611974789855-9c2a0a7236a3?w=1024",
		"https://images.unsplash.com/photo-1590283603385-17ffb3a7f29f?w=1024",
		"https://images.unsplash.com/photo-1526304640581-d334cdbbf45e?w=1024",
	},
	"tech": {
		"https://images.unsplash.com/photo-1518770660439-4636190af475?w=1024",
		"https://images.unsplash.com/photo-1550751827-4bd374c3f58b?w=1024",
		"https://images.unsplash.com/photo-1488590528505-98d2b5aba04b?w=1024",
	},
	"ai": {
		"https://images.unsplash.com/photo-1677442136019-21780ecad995?w=1024",
		"https://images.unsplash.com/photo-1620712943543-bcc4688e7485?w=1024",
		"https://images.unsplash.com/photo-1485827404703-89b55fcc595e?w=1024",
	},
	"product": {
		"https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=1024",
		"https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=1024",
	},
	"humor": {
		"https://images.unsplash.com/photo-1527224857830-43a7acc85260?w=1024",
		"https://images.unsplash.com/photo-1543807535-eceef0bc6599?w=1024",
	},
	"quote": {
		"https://images.unsplash.com/photo-1455390582262-044cdead277a?w=1024",
		"https://images.unsplash.com/photo-1506880018603-83d5b814b5a6?w=1024",
	},
	DefaultTopic: {
		"https://images.unsplash.com/photo-1504711434969-e33886168f5c?w=1024",
		"https://images.unsplash.com/photo-1495020689067-958852a7765e?w=1024",
		"https://images.unsplash.com/photo-1585829365295-ab7cd400c167?w=1024",
	},
}

var builtinPhrases = map[string]string{
	"politics": "international diplomacy, government building, editorial news photography",
	"economy":  "financial markets, stock exchange screens, business district, editorial photography",
	"tech":     "modern technology, circuit boards and devices, clean studio lighting",
	"ai":       "artificial intelligence, neural network visualization, futuristic blue light",
	"product":  "sleek new gadget product shot, minimal background",
	"humor":    "cheerful cartoon illustration, bright colors, lighthearted mood",
	"quote":    "calm landscape at sunrise, inspirational, soft light",

	DefaultTopic: "daily news, newspaper and coffee on a desk, morning light",
}

// StaticPool is a curated, topic-keyed list of known-good image URLs.
// The default topic is always present and non-empty.
type StaticPool struct {
	pool map[string][]string
}

// NewStaticPool merges overrides over the built-in pool. Empty override
// lists are ignored so no topic can become empty.
func NewStaticPool(overrides map[string][]string) *StaticPool {
	p := make(map[string][]string, len(builtinPool)+len(overrides))
	for k, v := range builtinPool {
		p[k] = v
	}
	for k, v := range overrides {
		if len(v) > 0 {
			p[strings.ToLower(k)] = v
		}
	}
	return &StaticPool{pool: p}
}

// Pick returns a uniformly random URL for topic, falling back to the default
// pool for unknown topics. Never returns "".
func (s *StaticPool) Pick(topic string) string {
	urls := s.pool[strings.ToLower(topic)]
	if len(urls) == 0 {
		urls = s.pool[DefaultTopic]
	}
	return urls[rand.IntN(len(urls))]
}

// Phrases merges configured topic phrases over the built-in ones.
func Phrases(overrides map[string]string) map[string]string {
	m := make(map[string]string, len(builtinPhrases)+len(overrides))
	for k, v := range builtinPhrases {
		m[k] = v
	}
	for k, v := range overrides {
		if strings.TrimSpace(v) != "" {
			m[strings.ToLower(k)] = v
		}
	}
	return m
}

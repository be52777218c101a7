// Package similarity provides loose title matching strategies. Generated
// cards paraphrase their source headlines, so matching is heuristic: false
// positives and negatives are expected and tolerated.
package similarity

import (
	"strings"
	"unicode"
)

// Matcher decides whether two titles refer to the same story.
type Matcher interface {
	Match(a, b string) bool
}

// Prefix matches when the first N runes of either title are contained in the
// other. Empty titles never match.
type Prefix struct {
	N int
}

func (p Prefix) Match(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	n := p.N
	if n <= 0 {
		n = 5
	}
	return strings.Contains(b, head(a, n)) || strings.Contains(a, head(b, n))
}

func head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Checker compares texts by Jaccard similarity of their character n-grams.
type Checker struct {
	threshold float64
	ngramSize int
}

func New(threshold float64, ngramSize int) *Checker {
	if ngramSize <= 0 {
		ngramSize = 3
	}
	return &Checker{threshold: threshold, ngramSize: ngramSize}
}

// normalize lowercases, removes punctuation, and collapses whitespace.
func (c *Checker) normalize(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			prevSpace = false
		} else if !prevSpace {
			sb.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(sb.String())
}

// Grams extracts all character n-grams from the text. Texts shorter than
// the n-gram size yield a single gram of the whole normalized text.
func (c *Checker) Grams(text string) map[string]struct{} {
	runes := []rune(c.normalize(text))
	set := make(map[string]struct{})
	if len(runes) == 0 {
		return set
	}
	if len(runes) < c.ngramSize {
		set[string(runes)] = struct{}{}
		return set
	}
	for i := 0; i <= len(runes)-c.ngramSize; i++ {
		set[string(runes[i:i+c.ngramSize])] = struct{}{}
	}
	return set
}

// JaccardSimilarity computes |A intersection B| / |A union B|.
func (c *Checker) JaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Match reports whether the two texts reach the similarity threshold.
// Empty texts never match.
func (c *Checker) Match(a, b string) bool {
	ga, gb := c.Grams(a), c.Grams(b)
	if len(ga) == 0 || len(gb) == 0 {
		return false
	}
	return c.JaccardSimilarity(ga, gb) >= c.threshold
}

// IsTooSimilar checks if text is too similar to any of the existing texts.
func (c *Checker) IsTooSimilar(text string, existing []string) bool {
	for _, e := range existing {
		if c.Match(text, e) {
			return true
		}
	}
	return false
}

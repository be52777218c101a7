package feeds

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractText strips markup from a summary fragment and truncates the result
// to maxLen runes. Malformed input falls back to truncating raw unchanged.
func ExtractText(raw string, maxLen int) string {
	if raw == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return truncate(raw, maxLen)
	}
	return truncate(strings.Join(strings.Fields(doc.Text()), " "), maxLen)
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}

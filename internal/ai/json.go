package ai

import (
	"regexp"
	"strings"
)

const fence = "```"

var langTag = regexp.MustCompile(`^[A-Za-z][\w+-]*`)

// StripFences removes markdown code-fence decoration around a response,
// repeatedly, until none is left. Text without fences is returned unchanged,
// so StripFences(StripFences(s)) == StripFences(s).
func StripFences(s string) string {
	for {
		next, ok := stripFenceOnce(s)
		if !ok {
			return s
		}
		s = next
	}
}

func stripFenceOnce(s string) (string, bool) {
	t := strings.TrimSpace(s)
	changed := false
	if strings.HasPrefix(t, fence) {
		t = dropLangTag(t[len(fence):])
		changed = true
	}
	if strings.HasSuffix(t, fence) {
		t = t[:len(t)-len(fence)]
		changed = true
	}
	if !changed {
		return s, false
	}
	return strings.TrimSpace(t), true
}

// dropLangTag removes an info string such as "json" that directly follows an
// opening fence. A word running straight into other text is kept.
func dropLangTag(s string) string {
	loc := langTag.FindStringIndex(s)
	if loc == nil {
		return s
	}
	rest := s[loc[1]:]
	if rest == "" || rest[0] == '{' || rest[0] == '[' || strings.ContainsRune(" \t\r\n", rune(rest[0])) {
		return rest
	}
	return s
}

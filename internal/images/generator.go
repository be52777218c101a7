package images

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
)

// Generator builds prompt-to-image URLs. The image service renders lazily
// when the URL is first requested, so nothing is fetched here.
type Generator struct {
	baseURL string
	width   int
	height  int
	seed    func() int
}

// NewGenerator creates a Generator. An empty baseURL disables generation.
func NewGenerator(baseURL string, width, height int) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		width:   width,
		height:  height,
		seed:    func() int { return rand.IntN(1_000_000) },
	}
}

// Enabled reports whether a base URL is configured.
func (g *Generator) Enabled() bool {
	return g != nil && g.baseURL != ""
}

// URL returns an image URL for the prompt, or "" if the generator is
// disabled or the prompt is blank. Each call uses a fresh random seed.
func (g *Generator) URL(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if !g.Enabled() || prompt == "" {
		return ""
	}
	q := url.Values{}
	if g.width > 0 {
		q.Set("width", fmt.Sprint(g.width))
	}
	if g.height > 0 {
		q.Set("height", fmt.Sprint(g.height))
	}
	q.Set("seed", fmt.Sprint(g.seed()))
	q.Set("nologo", "true")
	return g.baseURL + "/" + url.PathEscape(prompt) + "?" + q.Encode()
}

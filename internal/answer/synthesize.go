// Package answer composes a cited answer from retrieved passages.
package answer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/pdfchat/internal/vector"
)

// DefaultCitations is how many passages an answer quotes when n <= 0.
const DefaultCitations = 3

// NoPassages is the answer when retrieval found nothing.
const NoPassages = "No relevant passages found."

// Answer is a synthesized reply and the hits it quotes.
type Answer struct {
	Text      string       `json:"answer"`
	Citations []vector.Hit `json:"citations"`
}

// Citation formats a hit as "source:page".
func Citation(h vector.Hit) string {
	return fmt.Sprintf("%s:%d", h.Source, h.Page)
}

// Synthesize quotes the top n hits, each followed by its "(source:page)"
// citation, separated by blank lines. Hits are expected in score order.
func Synthesize(question string, hits []vector.Hit, n int) Answer {
	if n <= 0 {
		n = DefaultCitations
	}
	if len(hits) > n {
		hits = hits[:n]
	}
	if len(hits) == 0 {
		return Answer{Text: NoPassages, Citations: []vector.Hit{}}
	}
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("%s\n(%s)", h.Text, Citation(h))
	}
	cites := make([]vector.Hit, len(hits))
	copy(cites, hits)
	return Answer{Text: strings.Join(parts, "\n\n"), Citations: cites}
}

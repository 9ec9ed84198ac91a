// Package chunk splits page text into passages small enough to embed.
package chunk

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChars is the passage size budget used when none is configured.
const DefaultMaxChars = 480

// boundary matches a blank line, or sentence-ending punctuation followed by whitespace.
var boundary = regexp.MustCompile(`\n\s*\n|[.?!]\s+`)

// Chunker packs sentences and paragraphs greedily into passages of at most
// maxChars characters. A single sentence longer than maxChars becomes its own
// passage rather than being cut.
type Chunker struct {
	maxChars int
}

// NewChunker creates a chunker. maxChars <= 0 selects DefaultMaxChars.
func NewChunker(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Chunker{maxChars: maxChars}
}

// MaxChars returns the passage budget.
func (c *Chunker) MaxChars() int { return c.maxChars }

// Split returns the passages of text in order. Whitespace inside each passage
// is collapsed; empty passages are dropped.
func (c *Chunker) Split(text string) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if s := Normalize(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		curLen = 0
	}
	for _, part := range splitParts(text) {
		n := utf8.RuneCountInString(part)
		if curLen > 0 && curLen+n > c.maxChars {
			flush()
		}
		cur.WriteString(part)
		cur.WriteByte(' ')
		curLen += n + 1
	}
	flush()
	return chunks
}

// splitParts cuts text at each boundary. Sentence punctuation stays with the
// sentence it ends.
func splitParts(text string) []string {
	var parts []string
	start := 0
	for _, m := range boundary.FindAllStringIndex(text, -1) {
		end := m[0]
		if text[m[0]] != '\n' {
			end++
		}
		parts = append(parts, text[start:end])
		start = m[1]
	}
	return append(parts, text[start:])
}

// Normalize trims text and collapses runs of whitespace to a single space.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteByte(' ')
				wasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		wasSpace = false
	}
	return b.String()
}

// Package extract splits uploaded documents into numbered pages of plain text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Page is the text of one page (PDF page, slide or spreadsheet sheet). Number is 1-based.
// Table holds the raw cell grid for spreadsheet sheets.
type Page struct {
	Number int        `json:"page"`
	Text   string     `json:"text"`
	Table  [][]string `json:"table,omitempty"`
}

// Extractor extracts per-page text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether path has an extension ExtractPages understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".docx", ".xlsx", ".pptx", ".txt", ".md":
		return true
	}
	return false
}

// ExtractPages reads the file at path and returns its pages in order.
// Pages without text are kept so page numbers stay aligned with the source.
func (e *Extractor) ExtractPages(path string) ([]Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractPagesBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractPagesBytes extracts pages from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractPagesBytes(content []byte, ext string) ([]Page, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return singlePage(extractDOCX(content))
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".txt", ".md":
		return singlePage(extractPlain(content))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func singlePage(text string, err error) ([]Page, error) {
	if err != nil {
		return nil, err
	}
	return []Page{{Number: 1, Text: text}}, nil
}

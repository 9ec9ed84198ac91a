// Package cli provides output helpers for the pdfchat command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/pdfchat/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteAnswer writes a chat answer to w in the given format.
func WriteAnswer(w io.Writer, resp *models.ChatResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%s\n\n", resp.Answer)
	if len(resp.Citations) > 0 {
		fmt.Fprintln(w, "Sources:")
		for i, c := range resp.Citations {
			fmt.Fprintf(w, "  [%d] %s:%d  score %.4f  %s\n", i+1, c.Source, c.Page, c.Score, TruncateWords(c.Text, 12))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "(%dms)\n", resp.QueryTime)
	return nil
}

// WriteDocuments lists ingested documents.
func WriteDocuments(w io.Writer, docs []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []*models.Document{}
		}
		return writeJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%-40s  %4d pages  %5d chunks  %s\n", d.Filename, d.Pages, d.Chunks, d.ModTime.Format("2006-01-02 15:04"))
	}
	return nil
}

// WriteWorkspaces lists workspaces, one ID per line in text format.
func WriteWorkspaces(w io.Writer, list []*models.Workspace, format OutputFormat) error {
	if format == OutputJSON {
		if list == nil {
			list = []*models.Workspace{}
		}
		return writeJSON(w, list)
	}
	for _, ws := range list {
		fmt.Fprintln(w, ws.ID)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

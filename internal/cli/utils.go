// Package cli provides CLI output helpers for ayuda.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/ayuda/internal/models"
	"github.com/hyperjump/ayuda/pkg/utils"
)

// OutputFormat is the format for result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is the same JSON /api/chat returns.
	OutputJSON OutputFormat = "json"
)

// ParseFormat accepts "text" or "json"; anything else is an error.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteResults writes a ranked result to w in the given format.
func WriteResults(w io.Writer, res *models.RankedResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	default:
		writeResultsText(w, res)
		return nil
	}
}

func writeResultsText(w io.Writer, res *models.RankedResult) {
	if q := res.QueryInfo; q != nil {
		fmt.Fprintf(w, "\nLanguage: %s\n", q.Language)
		if q.Translated != q.Original {
			fmt.Fprintf(w, "Translated: %s\n", q.Translated)
		}
		fmt.Fprintf(w, "Intent: %s\n", q.Intent)
		if len(q.Entities) > 0 {
			parts := make([]string, len(q.Entities))
			for i, e := range q.Entities {
				parts[i] = fmt.Sprintf("%s (%s)", e.Text, e.Label)
			}
			fmt.Fprintf(w, "Entities: %s\n", strings.Join(parts, ", "))
		}
	}
	fmt.Fprintf(w, "\nFound %d organizations\n\n", len(res.Results))
	for i, m := range res.Results {
		writeOneMatch(w, i+1, m)
	}
}

func writeOneMatch(w io.Writer, rank int, m models.Match) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", rank, m.Score)
	fmt.Fprintf(w, "Name: %s\n", m.Name)
	if m.Category != "" {
		fmt.Fprintf(w, "Category: %s\n", m.Category)
	}
	if m.URL != "" {
		fmt.Fprintf(w, "URL: %s\n", m.URL)
	}
	if m.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(m.Summary, 200))
	}
	fmt.Fprintln(w)
}

// Package report renders result store contents for people and spreadsheets.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// StatusCount is the number of records with one status.
type StatusCount struct {
	Status domain.Status `json:"status" yaml:"status"`
	Count  int           `json:"count"  yaml:"count"`
}

// Summarize counts records per status in the canonical status order.
func Summarize(records domain.Records) []StatusCount {
	counts := records.CountByStatus()
	out := make([]StatusCount, 0, len(counts))
	for _, st := range domain.Statuses() {
		out = append(out, StatusCount{Status: st, Count: counts[st]})
	}
	return out
}

// Write renders records to w in format.
func Write(w io.Writer, format string, records domain.Records) error {
	switch format {
	case FormatTable, "":
		WriteTable(w, records)
		return nil
	case FormatJSON:
		return WriteJSON(w, records)
	case FormatYAML:
		return WriteYAML(w, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteTable renders records as a table with per-status totals in the footer.
func WriteTable(w io.Writer, records domain.Records) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Domain", "Status"})

	for i, r := range records {
		t.AppendRow(table.Row{i + 1, r.Domain, r.Status})
	}

	footer := ""
	for _, sc := range Summarize(records) {
		if footer != "" {
			footer += "  "
		}
		footer += fmt.Sprintf("%s: %d", sc.Status, sc.Count)
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("Total: %d", len(records)), footer})
	t.Render()
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records domain.Records) error {
	if records == nil {
		records = domain.Records{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteYAML writes records as a YAML sequence.
func WriteYAML(w io.Writer, records domain.Records) error {
	if records == nil {
		records = domain.Records{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

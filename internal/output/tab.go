// Package output provides enrichment result table formatters.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/maayanlab/turbogsea/internal/prerank"
)

// TabWriter writes enrichment results in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

var _ ResultWriter = (*TabWriter)(nil)

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: Columns,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single result row.
func (tw *TabWriter) Write(res prerank.EnrichmentResult) error {
	row := newRow(res)
	values := []string{
		sanitize(row.Term),
		row.ES,
		row.NES,
		row.PValue,
		row.FWER,
		row.FDR,
		row.Size,
		row.LeadingEdge,
		row.Method,
	}
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// sanitize keeps a free-text field on one tab-delimited cell.
func sanitize(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}

package output

import (
	"bufio"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/maayanlab/turbogsea/internal/prerank"
)

// CSVWriter writes enrichment results as RFC 4180 CSV.
type CSVWriter struct {
	buf *bufio.Writer
	csv *gocsv.SafeCSVWriter
}

var _ ResultWriter = (*CSVWriter)(nil)

// NewCSVWriter creates a new CSV writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	buf := bufio.NewWriter(w)
	return &CSVWriter{buf: buf, csv: gocsv.DefaultCSVWriter(buf)}
}

// WriteHeader writes the header line.
func (cw *CSVWriter) WriteHeader() error {
	return gocsv.MarshalCSV([]row{}, cw.csv)
}

// Write writes a single result row.
func (cw *CSVWriter) Write(res prerank.EnrichmentResult) error {
	return gocsv.MarshalCSVWithoutHeaders([]row{newRow(res)}, cw.csv)
}

// Flush flushes any buffered data to the underlying writer.
func (cw *CSVWriter) Flush() error {
	cw.csv.Flush()
	if err := cw.csv.Error(); err != nil {
		return err
	}
	return cw.buf.Flush()
}

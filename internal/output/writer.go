package output

import (
	"io"
	"strconv"
	"strings"

	"github.com/maayanlab/turbogsea/internal/gsea"
	"github.com/maayanlab/turbogsea/internal/prerank"
)

// Columns of the result table, in order.
var Columns = []string{
	"Term",
	"ES",
	"NES",
	"pval",
	"sidak",
	"fdr",
	"geneset_size",
	"leading_edge",
	"method",
}

// Output formats.
const (
	FormatTSV = "tsv"
	FormatCSV = "csv"
)

// ResultWriter serializes enrichment results.
type ResultWriter interface {
	WriteHeader() error
	Write(res prerank.EnrichmentResult) error
	Flush() error
}

// NewWriter returns a writer for the named format.
func NewWriter(format string, w io.Writer) (ResultWriter, error) {
	switch strings.ToLower(format) {
	case FormatTSV, "tab", "":
		return NewTabWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	default:
		return nil, gsea.Configuration("unknown output format %q (want %s or %s)", format, FormatTSV, FormatCSV)
	}
}

// FormatForPath picks the format from a file name, ignoring a compression
// suffix. Unknown extensions map to tsv.
func FormatForPath(path string) string {
	p := strings.ToLower(path)
	p = strings.TrimSuffix(p, ".gz")
	p = strings.TrimSuffix(p, ".zst")
	if strings.HasSuffix(p, ".csv") {
		return FormatCSV
	}
	return FormatTSV
}

// WriteAll writes a header, every result and flushes.
func WriteAll(w ResultWriter, results []prerank.EnrichmentResult) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	for _, res := range results {
		if err := w.Write(res); err != nil {
			return err
		}
	}
	return w.Flush()
}

// row is the formatted form of one result, shared by all writers.
type row struct {
	Term        string `csv:"Term"`
	ES          string `csv:"ES"`
	NES         string `csv:"NES"`
	PValue      string `csv:"pval"`
	FWER        string `csv:"sidak"`
	FDR         string `csv:"fdr"`
	Size        string `csv:"geneset_size"`
	LeadingEdge string `csv:"leading_edge"`
	Method      string `csv:"method"`
}

func newRow(res prerank.EnrichmentResult) row {
	edge := "-"
	if len(res.LeadingEdge) > 0 {
		edge = strings.Join(res.LeadingEdge, ";")
	}
	return row{
		Term:        res.Term,
		ES:          formatFloat(res.ES),
		NES:         formatFloat(res.NES),
		PValue:      formatFloat(res.PValue),
		FWER:        formatFloat(res.FWER),
		FDR:         formatFloat(res.FDR),
		Size:        strconv.Itoa(res.Size),
		LeadingEdge: edge,
		Method:      string(res.Method),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

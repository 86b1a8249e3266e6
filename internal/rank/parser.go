package rank

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/csimplestring/go-csv/detector"

	"github.com/maayanlab/turbogsea/internal/fileio"
	"github.com/maayanlab/turbogsea/internal/gsea"
)

// DuplicatePolicy controls how repeated gene identifiers in a rank file are
// handled.
type DuplicatePolicy string

const (
	// DuplicatesError rejects the file.
	DuplicatesError DuplicatePolicy = "error"
	// DuplicatesFirst keeps the first occurrence.
	DuplicatesFirst DuplicatePolicy = "first"
	// DuplicatesMaxAbs keeps the occurrence with the largest |score|.
	DuplicatesMaxAbs DuplicatePolicy = "max"
)

// ParseDuplicatePolicy validates a policy name.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(s)); p {
	case DuplicatesError, DuplicatesFirst, DuplicatesMaxAbs:
		return p, nil
	case "":
		return DuplicatesError, nil
	}
	return "", gsea.Configuration("unknown duplicate policy %q (want error, first or max)", s)
}

// peekSize bounds how much input the delimiter detector sees.
const peekSize = 64 * 1024

// candidateDelimiters are the separators accepted in rank files.
var candidateDelimiters = []rune{'\t', ',', ';', '|', ' '}

// Load reads a ranking from a two-column delimited file.
// Compressed files are detected automatically; use "-" for stdin.
func Load(path string, policy DuplicatePolicy) (*Ranking, error) {
	rc, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r, err := Parse(rc, policy)
	if err != nil {
		return nil, fmt.Errorf("load ranking %s: %w", path, err)
	}
	return r, nil
}

// Parse reads (identifier, score) rows. The delimiter is detected from the
// first rows. A first row whose score is not numeric is treated as a header.
// Blank lines and lines starting with '#' are skipped.
func Parse(r io.Reader, policy DuplicatePolicy) (*Ranking, error) {
	br := bufio.NewReaderSize(r, peekSize)
	head, err := br.Peek(peekSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read rank header: %w", err)
	}
	delim := DetectDelimiter(head)

	var (
		entries    []Entry
		seen       = make(map[string]int)
		lineNumber int
		dataLines  int
	)

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dataLines++

		fields := splitFields(line, delim)
		if len(fields) < 2 {
			return nil, &ParseError{
				Line:    lineNumber,
				Message: fmt.Sprintf("expected 2 columns, found %d", len(fields)),
			}
		}

		gene := strings.TrimSpace(fields[0])
		rawScore := strings.TrimSpace(fields[1])
		score, err := strconv.ParseFloat(rawScore, 64)
		if err != nil {
			if dataLines == 1 {
				// Header row
				continue
			}
			return nil, &ParseError{
				Line:    lineNumber,
				Message: fmt.Sprintf("invalid score %q for %s", rawScore, gene),
			}
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, &ParseError{
				Line:    lineNumber,
				Message: fmt.Sprintf("non-finite score %q for %s", rawScore, gene),
			}
		}
		if gene == "" {
			return nil, &ParseError{Line: lineNumber, Message: "empty gene identifier"}
		}

		if prev, dup := seen[gene]; dup {
			switch policy {
			case DuplicatesFirst:
			case DuplicatesMaxAbs:
				if math.Abs(score) > math.Abs(entries[prev].Score) {
					entries[prev].Score = score
				}
			default:
				return nil, &ParseError{
					Line:    lineNumber,
					Message: fmt.Sprintf("duplicate gene identifier %s", gene),
				}
			}
			continue
		}

		seen[gene] = len(entries)
		entries = append(entries, Entry{Gene: gene, Score: score})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rank file: %w", err)
	}

	return New(entries)
}

// DetectDelimiter returns the most likely column separator in head.
// It falls back to tab when nothing better is found.
func DetectDelimiter(head []byte) rune {
	if len(head) == 0 {
		return '\t'
	}

	d := detector.New()
	for _, cand := range d.DetectDelimiter(bytes.NewReader(head), '"') {
		if cand == "" {
			continue
		}
		r := []rune(cand)[0]
		for _, c := range candidateDelimiters {
			if r == c {
				return r
			}
		}
	}

	// Detector found nothing usable; take the first candidate present on the
	// first line.
	firstLine, _, _ := bytes.Cut(head, []byte("\n"))
	for _, c := range candidateDelimiters {
		if bytes.ContainsRune(firstLine, c) {
			return c
		}
	}
	return '\t'
}

func splitFields(line string, delim rune) []string {
	if delim == ' ' {
		return strings.Fields(line)
	}
	return strings.Split(line, string(delim))
}

// ParseError describes a malformed rank file row. It wraps
// gsea.ErrInvalidInput.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rank parse error at line %d: %s", e.Line, e.Message)
}

func (e *ParseError) Unwrap() error {
	return gsea.ErrInvalidInput
}

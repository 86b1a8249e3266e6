package geneset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/maayanlab/turbogsea/internal/fileio"
	"github.com/maayanlab/turbogsea/internal/gsea"
)

// LoadGMT reads a GMT gene set library. Compressed files are detected
// automatically.
func LoadGMT(path string) (*Collection, error) {
	rc, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	c, err := ParseGMT(rc)
	if err != nil {
		return nil, fmt.Errorf("load gene sets %s: %w", path, err)
	}
	return c, nil
}

// ParseGMT parses tab-separated GMT rows: name, description, genes...
// Members written as "GENE,weight" are reduced to "GENE".
func ParseGMT(r io.Reader) (*Collection, error) {
	c := NewCollection()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, &ParseError{
				Line:    lineNumber,
				Message: fmt.Sprintf("expected name and description columns, found %d", len(fields)),
			}
		}

		genes := make([]string, 0, len(fields)-2)
		for _, f := range fields[2:] {
			g, _, _ := strings.Cut(strings.TrimSpace(f), ",")
			genes = append(genes, g)
		}

		s, err := New(strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1]), genes)
		if err != nil {
			return nil, &ParseError{Line: lineNumber, Message: err.Error()}
		}
		if err := c.Add(s); err != nil {
			return nil, &ParseError{Line: lineNumber, Message: err.Error()}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gmt: %w", err)
	}

	return c, nil
}

// ParseError describes a malformed GMT row. It wraps gsea.ErrInvalidInput.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gmt parse error at line %d: %s", e.Line, e.Message)
}

func (e *ParseError) Unwrap() error {
	return gsea.ErrInvalidInput
}

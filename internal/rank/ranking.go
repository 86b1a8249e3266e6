// Package rank provides the ranked gene list consumed by the enrichment engine.
package rank

import (
	"math"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/maayanlab/turbogsea/internal/gsea"
)

// Entry is a single (gene identifier, score) pair.
type Entry struct {
	Gene  string
	Score float64
}

// Ranking is an immutable gene list sorted by descending score.
// Ties are broken by gene identifier so the order is total.
// A Ranking is safe for concurrent reads.
type Ranking struct {
	entries     []Entry
	index       map[string]int
	fingerprint uint64
}

// New builds a Ranking from entries in any order.
// Duplicate identifiers, empty identifiers and non-finite scores are rejected
// with gsea.ErrInvalidInput.
func New(entries []Entry) (*Ranking, error) {
	if len(entries) == 0 {
		return nil, gsea.InvalidInput("ranking is empty")
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)

	index := make(map[string]int, len(sorted))
	for _, e := range sorted {
		if e.Gene == "" {
			return nil, gsea.InvalidInput("empty gene identifier")
		}
		if math.IsNaN(e.Score) || math.IsInf(e.Score, 0) {
			return nil, gsea.InvalidInput("gene %s has non-finite score %v", e.Gene, e.Score)
		}
		if _, dup := index[e.Gene]; dup {
			return nil, gsea.InvalidInput("duplicate gene identifier %s", e.Gene)
		}
		index[e.Gene] = 0
	}

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Gene < sorted[j].Gene
	})

	h := xxhash.New()
	for i, e := range sorted {
		index[e.Gene] = i
		h.WriteString(e.Gene)
		h.WriteString("\t")
		h.WriteString(strconv.FormatFloat(e.Score, 'g', -1, 64))
		h.WriteString("\n")
	}

	return &Ranking{
		entries:     sorted,
		index:       index,
		fingerprint: h.Sum64(),
	}, nil
}

// Len returns the number of ranked genes.
func (r *Ranking) Len() int {
	return len(r.entries)
}

// Entry returns the entry at rank position i (0 is the top).
func (r *Ranking) Entry(i int) Entry {
	return r.entries[i]
}

// Gene returns the identifier at rank position i.
func (r *Ranking) Gene(i int) string {
	return r.entries[i].Gene
}

// Score returns the score at rank position i.
func (r *Ranking) Score(i int) float64 {
	return r.entries[i].Score
}

// Position returns the rank position of gene.
func (r *Ranking) Position(gene string) (int, bool) {
	i, ok := r.index[gene]
	return i, ok
}

// Positions maps genes to ascending rank positions, dropping genes that are
// not ranked.
func (r *Ranking) Positions(genes []string) []int {
	hits := make([]int, 0, len(genes))
	for _, g := range genes {
		if i, ok := r.index[g]; ok {
			hits = append(hits, i)
		}
	}
	sort.Ints(hits)
	return hits
}

// Weights returns |score|^p for every rank position.
func (r *Ranking) Weights(p float64) []float64 {
	w := make([]float64, len(r.entries))
	for i, e := range r.entries {
		switch p {
		case 0:
			w[i] = 1
		case 1:
			w[i] = math.Abs(e.Score)
		default:
			w[i] = math.Pow(math.Abs(e.Score), p)
		}
	}
	return w
}

// Fingerprint identifies the ranking content. Rankings with the same genes
// and scores share a fingerprint.
func (r *Ranking) Fingerprint() uint64 {
	return r.fingerprint
}

// FingerprintHex returns the fingerprint as a fixed-width hex string.
func (r *Ranking) FingerprintHex() string {
	s := strconv.FormatUint(r.fingerprint, 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}

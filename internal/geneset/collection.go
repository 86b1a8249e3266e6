package geneset

import (
	"fmt"

	"github.com/maayanlab/turbogsea/internal/gsea"
	"github.com/maayanlab/turbogsea/internal/rank"
)

// Collection is an ordered set of uniquely named gene sets.
type Collection struct {
	sets   []*GeneSet
	byName map[string]int
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{byName: make(map[string]int)}
}

// Add appends a gene set. Names must be unique.
func (c *Collection) Add(s *GeneSet) error {
	if _, dup := c.byName[s.Name()]; dup {
		return gsea.InvalidInput("duplicate gene set name %s", s.Name())
	}
	c.byName[s.Name()] = len(c.sets)
	c.sets = append(c.sets, s)
	return nil
}

// Len returns the number of gene sets.
func (c *Collection) Len() int { return len(c.sets) }

// Sets returns the gene sets in insertion order.
func (c *Collection) Sets() []*GeneSet {
	out := make([]*GeneSet, len(c.sets))
	copy(out, c.sets)
	return out
}

// Get returns the gene set with the given name.
func (c *Collection) Get(name string) (*GeneSet, bool) {
	i, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return c.sets[i], true
}

// Candidate is a gene set together with its member positions in a ranking.
type Candidate struct {
	Set  *GeneSet
	Hits []int
}

// Rejected is a gene set excluded before scoring.
type Rejected struct {
	Name   string
	Reason error
}

// Select maps every set onto r and keeps those whose overlap lies within
// [minSize, maxSize]. Excluded sets are returned with a reason wrapping
// gsea.ErrInvalidInput.
func (c *Collection) Select(r *rank.Ranking, minSize, maxSize int) ([]Candidate, []Rejected) {
	var (
		kept     []Candidate
		rejected []Rejected
	)
	for _, s := range c.sets {
		hits := s.Hits(r)
		switch {
		case len(hits) < minSize:
			rejected = append(rejected, Rejected{
				Name:   s.Name(),
				Reason: gsea.InvalidInput("%d of %d genes ranked, below minimum %d", len(hits), s.Len(), minSize),
			})
		case len(hits) > maxSize:
			rejected = append(rejected, Rejected{
				Name:   s.Name(),
				Reason: gsea.InvalidInput("%d genes ranked, above maximum %d", len(hits), maxSize),
			})
		default:
			kept = append(kept, Candidate{Set: s, Hits: hits})
		}
	}
	return kept, rejected
}

// String summarises the collection for logs.
func (c *Collection) String() string {
	return fmt.Sprintf("%d gene sets", len(c.sets))
}

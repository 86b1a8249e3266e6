// Package geneset provides named gene sets and GMT collection loading.
package geneset

import (
	"github.com/maayanlab/turbogsea/internal/gsea"
	"github.com/maayanlab/turbogsea/internal/rank"
)

// GeneSet is an immutable named set of gene identifiers.
type GeneSet struct {
	name        string
	description string
	genes       []string
}

// New creates a gene set. Repeated and empty identifiers are dropped; the
// first-seen order is kept.
func New(name, description string, genes []string) (*GeneSet, error) {
	if name == "" {
		return nil, gsea.InvalidInput("gene set name is empty")
	}

	seen := make(map[string]struct{}, len(genes))
	members := make([]string, 0, len(genes))
	for _, g := range genes {
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		members = append(members, g)
	}

	return &GeneSet{name: name, description: description, genes: members}, nil
}

// Name returns the set name.
func (s *GeneSet) Name() string { return s.name }

// Description returns the optional set description.
func (s *GeneSet) Description() string { return s.description }

// Len returns the number of distinct members.
func (s *GeneSet) Len() int { return len(s.genes) }

// Genes returns a copy of the members.
func (s *GeneSet) Genes() []string {
	out := make([]string, len(s.genes))
	copy(out, s.genes)
	return out
}

// Hits returns the ascending rank positions of the members present in r.
func (s *GeneSet) Hits(r *rank.Ranking) []int {
	return r.Positions(s.genes)
}

// Package enrich computes weighted running-sum enrichment scores of gene sets
// against a ranked gene list.
package enrich

import (
	"github.com/maayanlab/turbogsea/internal/geneset"
	"github.com/maayanlab/turbogsea/internal/gsea"
	"github.com/maayanlab/turbogsea/internal/rank"
)

// MinHits is the smallest number of ranked members a gene set needs.
const MinHits = 2

// Result is the enrichment of one gene set.
type Result struct {
	// ES is the signed maximum deviation of the running sum from zero.
	ES float64
	// Position is the rank position at which ES is reached.
	Position int
	// Hits are the ascending rank positions of the ranked members.
	Hits []int
}

// Scorer evaluates enrichment scores against one ranking.
// It is safe for concurrent use.
type Scorer struct {
	ranking *rank.Ranking
	weights []float64
	weight  float64
}

// NewScorer precomputes |score|^weight for every rank position.
func NewScorer(r *rank.Ranking, weight float64) *Scorer {
	return &Scorer{
		ranking: r,
		weights: r.Weights(weight),
		weight:  weight,
	}
}

// Len returns the ranking length.
func (s *Scorer) Len() int { return len(s.weights) }

// Weight returns the score exponent.
func (s *Scorer) Weight() float64 { return s.weight }

// Ranking returns the ranking being scored.
func (s *Scorer) Ranking() *rank.Ranking { return s.ranking }

// Score computes the enrichment of the set occupying rank positions hits,
// which must be strictly ascending.
func (s *Scorer) Score(hits []int) (Result, error) {
	if err := s.validate(hits); err != nil {
		return Result{}, err
	}
	es, pos := s.ES(hits)
	h := make([]int, len(hits))
	copy(h, hits)
	return Result{ES: es, Position: pos, Hits: h}, nil
}

// ScoreSet scores a gene set by mapping its members onto the ranking.
func (s *Scorer) ScoreSet(gs *geneset.GeneSet) (Result, error) {
	hits := gs.Hits(s.ranking)
	if len(hits) < MinHits {
		return Result{}, gsea.InvalidInput("gene set %s has %d ranked members, need at least %d",
			gs.Name(), len(hits), MinHits)
	}
	return s.Score(hits)
}

// ES returns the enrichment score and its rank position for strictly
// ascending hits without validating them. Only hit positions are visited:
// the running sum peaks right after a hit and bottoms out right before one.
func (s *Scorer) ES(hits []int) (float64, int) {
	k := len(hits)
	missStep := 1 / float64(len(s.weights)-k)

	var norm float64
	for _, j := range hits {
		norm += s.weights[j]
	}
	unweighted := norm == 0
	if unweighted {
		norm = float64(k)
	}

	var (
		run            float64
		maxDev, minDev float64
		maxPos, minPos = -1, -1
	)
	for i, j := range hits {
		misses := float64(j - i)

		before := run - misses*missStep
		if before < minDev {
			minDev = before
			minPos = j - 1
		}

		if unweighted {
			run += 1 / norm
		} else {
			run += s.weights[j] / norm
		}

		after := run - misses*missStep
		if after > maxDev {
			maxDev = after
			maxPos = j
		}
	}

	if maxDev >= -minDev {
		if maxPos < 0 {
			maxPos = 0
		}
		return maxDev, maxPos
	}
	return minDev, minPos
}

// RunningSum returns the running statistic at every rank position.
func (s *Scorer) RunningSum(hits []int) ([]float64, error) {
	if err := s.validate(hits); err != nil {
		return nil, err
	}

	n := len(s.weights)
	missStep := 1 / float64(n-len(hits))

	var norm float64
	for _, j := range hits {
		norm += s.weights[j]
	}
	unweighted := norm == 0
	if unweighted {
		norm = float64(len(hits))
	}

	curve := make([]float64, n)
	run := 0.0
	next := 0
	for i := range n {
		if next < len(hits) && hits[next] == i {
			if unweighted {
				run += 1 / norm
			} else {
				run += s.weights[i] / norm
			}
			next++
		} else {
			run -= missStep
		}
		curve[i] = run
	}
	return curve, nil
}

// LeadingEdge returns the hits that contribute to the score before its peak:
// positions at or before Position for a positive ES, at or after it for a
// negative ES.
func LeadingEdge(res Result) []int {
	var edge []int
	for _, j := range res.Hits {
		if (res.ES >= 0 && j <= res.Position) || (res.ES < 0 && j >= res.Position) {
			edge = append(edge, j)
		}
	}
	return edge
}

func (s *Scorer) validate(hits []int) error {
	n := len(s.weights)
	if len(hits) < MinHits {
		return gsea.InvalidInput("%d ranked members, need at least %d", len(hits), MinHits)
	}
	if len(hits) >= n {
		return gsea.InvalidInput("gene set covers the whole ranking (%d genes)", n)
	}
	for i, j := range hits {
		if j < 0 || j >= n {
			return gsea.InvalidInput("hit position %d outside ranking of %d genes", j, n)
		}
		if i > 0 && j <= hits[i-1] {
			return gsea.InvalidInput("hit positions must be strictly ascending")
		}
	}
	return nil
}

package prerank

import (
	"runtime"
	"sync"

	"github.com/maayanlab/turbogsea/internal/enrich"
	"github.com/maayanlab/turbogsea/internal/gammafit"
	"github.com/maayanlab/turbogsea/internal/geneset"
	"github.com/maayanlab/turbogsea/internal/gsea"
)

// WorkItem holds a gene set ready for scoring.
type WorkItem struct {
	Seq       int
	Candidate geneset.Candidate
}

// WorkResult holds the scoring output for a single gene set.
type WorkResult struct {
	Seq    int
	Name   string
	Scored Scored
	Err    error
}

// scoring scores gene sets against one ranking with precomputed null fits.
// It is read-only and shared by all workers.
type scoring struct {
	scorer *enrich.Scorer
	fits   map[int]gammafit.NullFit
}

func (s *scoring) score(c geneset.Candidate) (Scored, error) {
	res, err := s.scorer.Score(c.Hits)
	if err != nil {
		return Scored{}, err
	}
	nf, ok := s.fits[len(c.Hits)]
	if !ok {
		return Scored{}, gsea.FitFailure("no null fit for size %d", len(c.Hits))
	}

	p, method := nf.PValue(res.ES)
	edge := enrich.LeadingEdge(res)
	genes := make([]string, len(edge))
	r := s.scorer.Ranking()
	for i, pos := range edge {
		genes[i] = r.Gene(pos)
	}

	return Scored{
		Name:        c.Set.Name(),
		Size:        len(c.Hits),
		ES:          res.ES,
		NES:         nf.Normalize(res.ES),
		PValue:      p,
		Position:    res.Position,
		LeadingEdge: genes,
		Method:      method,
	}, nil
}

// parallelScore scores work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (s *scoring) parallelScore(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				sc, err := s.score(item.Candidate)
				results <- WorkResult{
					Seq:    item.Seq,
					Name:   item.Candidate.Set.Name(),
					Scored: sc,
					Err:    err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// Out-of-order results wait in a pending map until their turn.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

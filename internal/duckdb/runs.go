package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/maayanlab/turbogsea/internal/gammafit"
	"github.com/maayanlab/turbogsea/internal/prerank"
)

// Run describes one stored prerank run.
type Run struct {
	ID          string
	Started     time.Time
	Elapsed     time.Duration
	Fingerprint string
	Genes       int
	GeneSets    int
	Scored      int
	Skipped     int
	Config      prerank.Config
	RankFile    InputFile
	GeneSetFile InputFile
}

// TermHit is a stored result together with the run it belongs to.
type TermHit struct {
	RunID  string
	Result prerank.EnrichmentResult
}

// SaveRun stores the report and its result table under a new run id. The
// run row and its results are written in one transaction.
func (s *Store) SaveRun(ctx context.Context, report *prerank.Report, rankFile, geneSetFile InputFile) (string, error) {
	id := uuid.NewString()
	if err := s.saveRun(ctx, id, report, rankFile, geneSetFile); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) saveRun(ctx context.Context, id string, report *prerank.Report, rankFile, geneSetFile InputFile) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	cfg := report.Config
	return inTx(ctx, conn, func() error {
		if _, err := conn.ExecContext(ctx, `INSERT INTO runs VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, report.Started, report.Elapsed.Milliseconds(), report.Fingerprint,
			int64(report.Genes), int64(report.GeneSets), int64(len(report.Results)), int64(len(report.Skipped)),
			int64(cfg.Permutations), cfg.Weight, int64(cfg.Seed), int64(cfg.MinSize), int64(cfg.MaxSize),
			cfg.Fitter, cfg.Correction, cfg.Strategy,
			rankFile.Path, rankFile.Size, geneSetFile.Path, geneSetFile.Size,
		); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		return withAppender(conn, "results", func(a *goduckdb.Appender) error {
			for i, r := range report.Results {
				if err := a.AppendRow(
					id, int64(i), r.Term,
					r.ES, r.NES, r.PValue, r.FWER, r.FDR,
					int64(r.Size), int64(r.Position),
					strings.Join(r.LeadingEdge, ";"), string(r.Method),
				); err != nil {
					return fmt.Errorf("append result: %w", err)
				}
			}
			return nil
		})
	})
}

const runColumns = `run_id, started, elapsed_ms, fingerprint, genes, gene_sets, scored, skipped,
	permutations, weight, seed, min_size, max_size, fitter, correction, strategy,
	rank_file, rank_file_size, gene_set_file, gene_set_file_size`

// ListRuns returns all stored runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id=?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// DeleteRun removes a run and its results.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM results WHERE run_id=?`, id); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id=?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// RunResults returns the result table of a run in its stored order.
func (s *Store) RunResults(ctx context.Context, id string) ([]prerank.EnrichmentResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		run_id, term, es, nes, pval, sidak, fdr, geneset_size, peak_position, leading_edge, method
		FROM results WHERE run_id=? ORDER BY row_index`, id)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	hits, err := scanResults(rows)
	if err != nil {
		return nil, err
	}
	out := make([]prerank.EnrichmentResult, len(hits))
	for i, h := range hits {
		out[i] = h.Result
	}
	return out, nil
}

// SearchByTerm returns every stored result for a gene set name across runs.
func (s *Store) SearchByTerm(ctx context.Context, term string) ([]TermHit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		r.run_id, r.term, r.es, r.nes, r.pval, r.sidak, r.fdr, r.geneset_size, r.peak_position, r.leading_edge, r.method
		FROM results r JOIN runs ON runs.run_id = r.run_id
		WHERE r.term=?
		ORDER BY runs.started DESC, r.run_id`, term)
	if err != nil {
		return nil, fmt.Errorf("query by term: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r                            Run
		elapsedMS, seed              int64
		genes, sets, scored, skipped int64
		perms, minSize, maxSize      int64
		rankPath, setPath            string
		rankSize, setSize            int64
	)
	if err := row.Scan(
		&r.ID, &r.Started, &elapsedMS, &r.Fingerprint,
		&genes, &sets, &scored, &skipped,
		&perms, &r.Config.Weight, &seed, &minSize, &maxSize,
		&r.Config.Fitter, &r.Config.Correction, &r.Config.Strategy,
		&rankPath, &rankSize, &setPath, &setSize,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	r.Genes, r.GeneSets = int(genes), int(sets)
	r.Scored, r.Skipped = int(scored), int(skipped)
	r.Config.Permutations = int(perms)
	r.Config.Seed = uint64(seed)
	r.Config.MinSize, r.Config.MaxSize = int(minSize), int(maxSize)
	r.RankFile = InputFile{Path: rankPath, Size: rankSize}
	r.GeneSetFile = InputFile{Path: setPath, Size: setSize}
	return r, nil
}

func scanResults(rows *sql.Rows) ([]TermHit, error) {
	var hits []TermHit
	for rows.Next() {
		var (
			h              TermHit
			size, position int64
			edge, method   string
		)
		res := &h.Result
		if err := rows.Scan(
			&h.RunID, &res.Term, &res.ES, &res.NES, &res.PValue, &res.FWER, &res.FDR,
			&size, &position, &edge, &method,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		res.Size = int(size)
		res.Position = int(position)
		if edge != "" {
			res.LeadingEdge = strings.Split(edge, ";")
		}
		res.Method = gammafit.Method(method)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return hits, nil
}

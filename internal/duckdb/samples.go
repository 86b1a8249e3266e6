package duckdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/maayanlab/turbogsea/internal/gammafit"
	"github.com/maayanlab/turbogsea/internal/prerank"
)

var _ prerank.SampleStore = (*Store)(nil)

// LoadSamples returns the stored null samples for key at the requested sizes.
// Sizes without a stored sample are absent from the map.
func (s *Store) LoadSamples(ctx context.Context, key prerank.SampleKey, sizes []int) (map[int][]float64, error) {
	out := make(map[int][]float64)
	if len(sizes) == 0 {
		return out, nil
	}
	want := make(map[int]bool, len(sizes))
	for _, size := range sizes {
		want[size] = true
	}

	rows, err := s.db.QueryContext(ctx, `SELECT geneset_size, sample FROM null_fits
		WHERE fingerprint=? AND weight=? AND permutations=? AND seed=?`,
		key.Fingerprint, key.Weight, int64(key.Permutations), int64(key.Seed))
	if err != nil {
		return nil, fmt.Errorf("query null fits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			size int64
			blob []byte
		)
		if err := rows.Scan(&size, &blob); err != nil {
			return nil, fmt.Errorf("scan null fit: %w", err)
		}
		if !want[int(size)] {
			continue
		}
		sample, err := s.decodeSample(blob)
		if err != nil {
			return nil, fmt.Errorf("decode sample for size %d: %w", size, err)
		}
		if len(sample) != key.Permutations {
			continue
		}
		out[int(size)] = sample
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate null fits: %w", err)
	}
	return out, nil
}

// SaveSamples replaces the stored samples for every size in fits. Either all
// fits are stored or, on error, the previous contents are left untouched.
func (s *Store) SaveSamples(ctx context.Context, key prerank.SampleKey, fits []gammafit.NullFit) error {
	if len(fits) == 0 {
		return nil
	}

	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return inTx(ctx, conn, func() error {
		for _, nf := range fits {
			if _, err := conn.ExecContext(ctx, `INSERT OR REPLACE INTO null_fits VALUES
				(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				key.Fingerprint, key.Weight, int64(key.Permutations), int64(key.Seed), int64(nf.Size),
				nf.Positive.Params.Shape, nf.Positive.Params.Scale,
				nf.Negative.Params.Shape, nf.Negative.Params.Scale,
				nf.PositiveFraction,
				s.encodeSample(nf.Sample),
			); err != nil {
				return fmt.Errorf("store null fit for size %d: %w", nf.Size, err)
			}
		}
		return nil
	})
}

// FitSummary is the stored view of one null fit, without its sample.
type FitSummary struct {
	Fingerprint      string
	Permutations     int
	Size             int
	Positive         gammafit.Params
	Negative         gammafit.Params
	PositiveFraction float64
}

// ListFits returns stored fits ordered by ranking and size.
func (s *Store) ListFits(ctx context.Context) ([]FitSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT fingerprint, permutations, geneset_size,
		positive_shape, positive_scale, negative_shape, negative_scale, positive_fraction
		FROM null_fits ORDER BY fingerprint, geneset_size, permutations`)
	if err != nil {
		return nil, fmt.Errorf("query null fits: %w", err)
	}
	defer rows.Close()

	var fits []FitSummary
	for rows.Next() {
		var (
			f           FitSummary
			perms, size int64
		)
		if err := rows.Scan(&f.Fingerprint, &perms, &size,
			&f.Positive.Shape, &f.Positive.Scale,
			&f.Negative.Shape, &f.Negative.Scale,
			&f.PositiveFraction); err != nil {
			return nil, fmt.Errorf("scan null fit: %w", err)
		}
		f.Permutations, f.Size = int(perms), int(size)
		fits = append(fits, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate null fits: %w", err)
	}
	return fits, nil
}

// CountFits returns the number of stored null samples.
func (s *Store) CountFits(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM null_fits`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count null fits: %w", err)
	}
	return int(n), nil
}

// ClearFits deletes every stored null sample and returns how many were removed.
func (s *Store) ClearFits(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM null_fits`)
	if err != nil {
		return 0, fmt.Errorf("clear null fits: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) encodeSample(sample []float64) []byte {
	raw := make([]byte, 8*len(sample))
	for i, v := range sample {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	return s.enc.EncodeAll(raw, make([]byte, 0, len(raw)/2+16))
}

func (s *Store) decodeSample(blob []byte) ([]float64, error) {
	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, err
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("sample length %d is not a multiple of 8", len(raw))
	}
	sample := make([]float64, len(raw)/8)
	for i := range sample {
		sample[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return sample, nil
}

// Package duckdb persists prerank runs, their result tables and null samples
// in a DuckDB database.
package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	_ "github.com/marcboeker/go-duckdb"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("duckdb: run not found")

// Store manages a DuckDB connection for run results and null samples.
type Store struct {
	db   *sql.DB
	path string

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	s := &Store{db: db, path: path, enc: enc, dec: dec}
	if err := s.ensureSchema(); err != nil {
		s.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.dec.Close()
	s.enc.Close()
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR PRIMARY KEY,
			started TIMESTAMP,
			elapsed_ms BIGINT,
			fingerprint VARCHAR,
			genes BIGINT,
			gene_sets BIGINT,
			scored BIGINT,
			skipped BIGINT,
			permutations BIGINT,
			weight DOUBLE,
			seed BIGINT,
			min_size BIGINT,
			max_size BIGINT,
			fitter VARCHAR,
			correction VARCHAR,
			strategy VARCHAR,
			rank_file VARCHAR,
			rank_file_size BIGINT,
			gene_set_file VARCHAR,
			gene_set_file_size BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id VARCHAR,
			row_index BIGINT,
			term VARCHAR,
			es DOUBLE,
			nes DOUBLE,
			pval DOUBLE,
			sidak DOUBLE,
			fdr DOUBLE,
			geneset_size BIGINT,
			peak_position BIGINT,
			leading_edge VARCHAR,
			method VARCHAR,
			PRIMARY KEY (run_id, row_index)
		)`,
		`CREATE TABLE IF NOT EXISTS null_fits (
			fingerprint VARCHAR,
			weight DOUBLE,
			permutations BIGINT,
			seed BIGINT,
			geneset_size BIGINT CHECK (geneset_size >= 2),
			positive_shape DOUBLE,
			positive_scale DOUBLE,
			negative_shape DOUBLE,
			negative_scale DOUBLE,
			positive_fraction DOUBLE,
			sample BLOB,
			PRIMARY KEY (fingerprint, weight, permutations, seed, geneset_size)
		)`,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Package gsea defines the error kinds shared by the enrichment pipeline.
package gsea

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers test for them with errors.Is.
var (
	// ErrInvalidInput marks a malformed ranking or a degenerate gene set.
	// It aborts the affected gene set only, never the whole batch.
	ErrInvalidInput = errors.New("turbogsea: invalid input")

	// ErrFitFailure marks a gamma fit that did not converge or had too few
	// samples. It is recovered by falling back to an empirical p-value.
	ErrFitFailure = errors.New("turbogsea: fit failure")

	// ErrConfiguration marks an invalid parameter. It is reported before any
	// computation begins.
	ErrConfiguration = errors.New("turbogsea: invalid configuration")
)

// InvalidInput returns an error wrapping ErrInvalidInput.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// FitFailure returns an error wrapping ErrFitFailure.
func FitFailure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFitFailure, fmt.Sprintf(format, args...))
}

// Configuration returns an error wrapping ErrConfiguration.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

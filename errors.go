package hnswbench

import (
	"errors"
	"fmt"

	"github.com/hupe1980/hnswbench/internal/hnsw"
)

var (
	// ErrNotFound is returned when a node id does not exist or was deleted.
	ErrNotFound = errors.New("not found")

	// ErrEmptyIndex is returned when searching an index without vectors.
	ErrEmptyIndex = errors.New("index is empty")

	// ErrInvalidConfig is returned for invalid construction parameters and
	// invalid search arguments such as k <= 0.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("index is closed")

	// ErrInvariantViolation is returned by Verify when the graph is inconsistent.
	ErrInvariantViolation = errors.New("graph invariant violated")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *hnsw.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	var nf *hnsw.ErrNodeNotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var io *hnsw.ErrInvalidOption
	if errors.As(err, &io) || errors.Is(err, hnsw.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch {
	case errors.Is(err, hnsw.ErrEmptyIndex):
		return fmt.Errorf("%w: %w", ErrEmptyIndex, err)
	case errors.Is(err, hnsw.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, hnsw.ErrInvariantViolation):
		return fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	}

	return err
}

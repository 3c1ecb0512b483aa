package hnsw

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/hnswbench/model"
)

var (
	ErrInvalidK           = errors.New("k must be positive")
	ErrEmptyIndex         = errors.New("index is empty")
	ErrClosed             = errors.New("index is closed")
	ErrInvariantViolation = errors.New("graph invariant violated")
)

type ErrInvalidOption struct {
	Field  string
	Reason string
}

func (e *ErrInvalidOption) Error() string {
	return fmt.Sprintf("invalid option %s: %s", e.Field, e.Reason)
}

type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

type ErrNodeNotFound struct {
	ID model.NodeID
}

func (e *ErrNodeNotFound) Error() string {
	return fmt.Sprintf("node %d not found", e.ID)
}

type SearchResult struct {
	ID       model.NodeID
	Distance float64
}

type SearchOptions struct {
	// Filter restricts results to the ids in the bitmap. Traversal still
	// walks through nodes outside the filter. nil means no filter.
	Filter *roaring.Bitmap
}

type LevelStats struct {
	Level       int
	Nodes       int
	Connections int
	AvgDegree   float64
	StdDegree   float64
	MaxDegree   int
	Capacity    int
}

type Stats struct {
	Nodes       int
	Deleted     int
	MaxLevel    int
	EntryPoint  model.NodeID
	VectorBytes int64
	Parameters  map[string]string
	Levels      []LevelStats
}

package hnswbench

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"

	"github.com/hupe1980/hnswbench/internal/hnsw"
	"github.com/hupe1980/hnswbench/model"
)

// SearchResult is one neighbor returned by Search.
type SearchResult struct {
	ID model.NodeID
	// Distance is the metric's reported value: L2 distance for Euclidean,
	// dot product for InnerProduct, 1 - cosine similarity for Cosine.
	Distance float64
}

// Stats is a snapshot of the graph shape.
type Stats = hnsw.Stats

// LevelStats describes one level of the graph.
type LevelStats = hnsw.LevelStats

type searchOptions struct {
	filter *roaring.Bitmap
}

// SearchOption configures a single search.
type SearchOption func(*searchOptions)

// WithFilter restricts results to the node ids in bm.
// Nodes outside the filter are still used for graph traversal.
func WithFilter(bm *roaring.Bitmap) SearchOption {
	return func(o *searchOptions) {
		o.filter = bm
	}
}

// Index is a concurrent in-memory HNSW index.
type Index struct {
	id      uuid.UUID
	opts    Options
	hnsw    *hnsw.HNSW
	logger  *Logger
	metrics MetricsCollector
}

// CreateIndex creates an empty index with explicit graph parameters.
// It returns ErrInvalidConfig if dimensionality or any numeric parameter is
// not positive.
func CreateIndex(dimensionality int, metric Metric, m, m0, efConstruction int, levelMultiplier float64, optFns ...func(o *Options)) (*Index, error) {
	switch {
	case dimensionality <= 0:
		return nil, fmt.Errorf("%w: dimensionality must be positive, got %d", ErrInvalidConfig, dimensionality)
	case m <= 0 || m0 <= 0 || efConstruction <= 0:
		return nil, fmt.Errorf("%w: m, m0 and efConstruction must be positive (m=%d, m0=%d, efConstruction=%d)", ErrInvalidConfig, m, m0, efConstruction)
	case !(levelMultiplier > 0):
		return nil, fmt.Errorf("%w: levelMultiplier must be positive, got %v", ErrInvalidConfig, levelMultiplier)
	}

	fns := append([]func(o *Options){func(o *Options) {
		o.Dimension = dimensionality
		o.Metric = metric
		o.M = m
		o.M0 = m0
		o.EFConstruction = efConstruction
		o.LevelMultiplier = levelMultiplier
	}}, optFns...)

	return New(fns...)
}

// New creates an empty index from DefaultOptions modified by optFns.
func New(optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()

	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger()
	}
	logger = logger.WithIndexID(id.String())

	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	h, err := hnsw.New(func(o *hnsw.Options) {
		o.Dimension = opts.Dimension
		o.Metric = opts.Metric
		o.M = opts.M
		o.M0 = opts.M0
		o.EFConstruction = opts.EFConstruction
		o.LevelMultiplier = opts.LevelMultiplier
		o.CellType = opts.CellType
		o.RandomSeed = opts.RandomSeed
		o.LevelSource = opts.LevelSource
		o.BuildWorkers = opts.BuildWorkers
		o.Logger = logger.Logger
	})
	if err != nil {
		return nil, translateError(err)
	}

	resolved := h.Options()
	opts.M0 = resolved.M0
	opts.LevelMultiplier = resolved.LevelMultiplier

	logger.WithDimension(opts.Dimension).Info("index created",
		"metric", opts.Metric.String(),
		"m", opts.M,
		"m0", opts.M0,
		"ef_construction", opts.EFConstruction,
		"level_multiplier", opts.LevelMultiplier,
		"cell_type", opts.CellType.String(),
	)

	return &Index{
		id:      id,
		opts:    opts,
		hnsw:    h,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// ID returns the unique id of this index instance.
func (idx *Index) ID() string { return idx.id.String() }

// Options returns the options the index was created with, defaults resolved.
func (idx *Index) Options() Options { return idx.opts }

// Metric returns the distance metric.
func (idx *Index) Metric() Metric { return idx.opts.Metric }

// Dimensionality returns the vector dimensionality.
func (idx *Index) Dimensionality() int { return idx.hnsw.Dimension() }

// Size returns the number of live vectors.
func (idx *Index) Size() int { return idx.hnsw.Len() }

func (idx *Index) recordSize() {
	if r, ok := idx.metrics.(sizeRecorder); ok {
		r.RecordSize(idx.hnsw.Len())
	}
}

// Insert adds a vector and returns its node id. The vector is searchable
// once Insert returns.
func (idx *Index) Insert(ctx context.Context, vector []float32) (model.NodeID, error) {
	start := time.Now()
	id, err := idx.hnsw.Insert(ctx, vector)
	err = translateError(err)

	idx.metrics.RecordInsert(time.Since(start), err)
	idx.logger.LogInsert(ctx, id, err)
	if err == nil {
		idx.recordSize()
	}
	return id, err
}

// BatchInsert validates all vectors, then inserts them in parallel.
// ids[i] is the node id of vectors[i]. A dimension mismatch anywhere in the
// batch rejects the whole batch before anything is inserted.
func (idx *Index) BatchInsert(ctx context.Context, vectors [][]float32) ([]model.NodeID, error) {
	start := time.Now()
	before := idx.hnsw.Len()

	ids, err := idx.hnsw.BatchInsert(ctx, vectors)
	err = translateError(err)
	elapsed := time.Since(start)

	failed := 0
	if err != nil {
		failed = len(vectors) - (idx.hnsw.Len() - before)
	}
	idx.metrics.RecordBatchInsert(len(vectors), max(failed, 0), elapsed)
	idx.logger.LogBatchInsert(ctx, len(vectors), elapsed, err)
	idx.recordSize()
	return ids, err
}

// Search returns up to k approximate nearest neighbors of query, best first.
// ef is the level-0 beam width; the effective width is max(ef, k).
// k <= 0 returns ErrInvalidConfig and an empty index returns ErrEmptyIndex.
func (idx *Index) Search(ctx context.Context, query []float32, k, ef int, opts ...SearchOption) ([]SearchResult, error) {
	start := time.Now()

	var so searchOptions
	for _, fn := range opts {
		fn(&so)
	}

	var hopts *hnsw.SearchOptions
	if so.filter != nil {
		hopts = &hnsw.SearchOptions{Filter: so.filter}
	}

	res, err := idx.hnsw.Search(ctx, query, k, ef, hopts)
	err = translateError(err)

	var results []SearchResult
	if err == nil {
		results = make([]SearchResult, len(res))
		for i, r := range res {
			results[i] = SearchResult{ID: r.ID, Distance: r.Distance}
		}
	}

	idx.metrics.RecordSearch(k, time.Since(start), err)
	idx.logger.LogSearch(ctx, k, ef, len(results), err)
	return results, err
}

// Delete removes id from search results. Deleting an already deleted id
// succeeds; unknown ids return ErrNotFound.
func (idx *Index) Delete(ctx context.Context, id model.NodeID) error {
	start := time.Now()
	err := translateError(idx.hnsw.Delete(ctx, id))

	idx.metrics.RecordDelete(time.Since(start), err)
	idx.logger.LogDelete(ctx, id, err)
	if err == nil {
		idx.recordSize()
	}
	return err
}

// Update replaces the vector stored under id. The old id is deleted and the
// vector is inserted under the returned new id.
func (idx *Index) Update(ctx context.Context, id model.NodeID, vector []float32) (model.NodeID, error) {
	start := time.Now()
	newID, err := idx.hnsw.Update(ctx, id, vector)
	err = translateError(err)

	idx.metrics.RecordUpdate(time.Since(start), err)
	idx.logger.LogUpdate(ctx, id, newID, err)
	return newID, err
}

// Vector returns a copy of the vector stored under id. Cosine indexes store
// and return unit-normalized vectors.
func (idx *Index) Vector(ctx context.Context, id model.NodeID) ([]float32, error) {
	v, err := idx.hnsw.Vector(ctx, id)
	return v, translateError(err)
}

// Stats returns graph statistics. It walks the whole graph.
func (idx *Index) Stats() Stats {
	return idx.hnsw.Stats()
}

// Verify checks the graph invariants: level nesting, neighbor list capacity,
// edge reciprocity and the entry point. It must not run concurrently with
// writes. Violations are joined into one error wrapping ErrInvariantViolation.
func (idx *Index) Verify() error {
	return translateError(idx.hnsw.Verify())
}

// Close releases the index memory. Further operations return ErrClosed.
func (idx *Index) Close() error {
	idx.logger.Info("index closed", "size", idx.hnsw.Len())
	return translateError(idx.hnsw.Close())
}

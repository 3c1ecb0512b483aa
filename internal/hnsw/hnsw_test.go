package hnsw

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hnswbench/distance"
	"github.com/hupe1980/hnswbench/internal/graph"
	"github.com/hupe1980/hnswbench/internal/vectorstore"
	"github.com/hupe1980/hnswbench/model"
	"github.com/hupe1980/hnswbench/testutil"
)

func newTestIndex(t *testing.T, optFns ...func(o *Options)) *HNSW {
	t.Helper()

	seed := int64(4711)
	fns := append([]func(o *Options){func(o *Options) {
		o.Dimension = 8
		o.RandomSeed = &seed
	}}, optFns...)

	h, err := New(fns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func insertAll(t *testing.T, h *HNSW, vectors [][]float32) []model.NodeID {
	t.Helper()

	ids := make([]model.NodeID, len(vectors))
	for i, v := range vectors {
		id, err := h.Insert(context.Background(), v)
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func TestHNSW_SmallEuclideanScenario(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t, func(o *Options) {
		o.Dimension = 2
		o.Metric = distance.Euclidean
		o.M = 8
		o.M0 = 16
		o.EFConstruction = 40
		o.LevelMultiplier = 1 / math.Ln2
	})

	ids := insertAll(t, h, [][]float32{{0, 0}, {1, 0}, {0, 1}, {10, 10}})
	assert.Equal(t, []model.NodeID{0, 1, 2, 3}, ids)

	res, err := h.Search(ctx, []float32{0, 0.1}, 1, 10, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, model.NodeID(0), res[0].ID)
	assert.InDelta(t, 0.1, res[0].Distance, 1e-6)

	res, err = h.Search(ctx, []float32{0, 0.1}, 10, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []model.NodeID{0, 2, 1, 3}, resultIDs(res))

	require.NoError(t, h.Verify())
}

func TestHNSW_EmptyIndex(t *testing.T) {
	h := newTestIndex(t)

	_, err := h.Search(context.Background(), make([]float32, 8), 1, 10, nil)
	assert.ErrorIs(t, err, ErrEmptyIndex)
	assert.NoError(t, h.Verify())
}

func TestHNSW_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t, func(o *Options) { o.Dimension = 2 })

	_, err := h.Insert(ctx, []float32{1, 2})
	require.NoError(t, err)

	_, err = h.Insert(ctx, []float32{1, 2, 3})
	var dimErr *ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 2, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Actual)
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 1, h.store.Len(), "nothing may be stored for a rejected vector")

	_, err = h.Search(ctx, []float32{1}, 1, 10, nil)
	assert.ErrorAs(t, err, &dimErr)
}

func TestHNSW_InvalidK(t *testing.T) {
	h := newTestIndex(t)
	insertAll(t, h, testutil.NewRNG(1).UniformVectors(3, 8))

	for _, k := range []int{0, -1} {
		_, err := h.Search(context.Background(), make([]float32, 8), k, 10, nil)
		assert.ErrorIs(t, err, ErrInvalidK)
	}
}

func TestHNSW_SelfMatch(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		metric distance.Metric
		cell   vectorstore.CellType
		delta  float64
	}{
		{"euclidean/float32", distance.Euclidean, vectorstore.CellFloat32, 0},
		{"euclidean/float64", distance.Euclidean, vectorstore.CellFloat64, 0},
		{"cosine/float64", distance.Cosine, vectorstore.CellFloat64, 1e-9},
		{"cosine/float32", distance.Cosine, vectorstore.CellFloat32, 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestIndex(t, func(o *Options) {
				o.Metric = tt.metric
				o.CellType = tt.cell
			})
			vectors := testutil.NewRNG(42).UniformRangeVectors(200, 8)
			ids := insertAll(t, h, vectors)

			for i, v := range vectors {
				res, err := h.Search(ctx, v, 1, 64, nil)
				require.NoError(t, err)
				require.Len(t, res, 1)
				assert.Equal(t, ids[i], res[0].ID)
				assert.InDelta(t, 0, res[0].Distance, tt.delta)
			}
		})
	}
}

func TestHNSW_DeterministicOrdering(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t)

	rng := testutil.NewRNG(7)
	insertAll(t, h, rng.UniformVectors(300, 8))
	// Exact duplicates force distance ties.
	dup := []float32{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}
	insertAll(t, h, [][]float32{dup, dup, dup})

	first, err := h.Search(ctx, dup, 20, 50, nil)
	require.NoError(t, err)
	for range 10 {
		again, err := h.Search(ctx, dup, 20, 50, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	assert.Equal(t, []model.NodeID{300, 301, 302}, resultIDs(first[:3]))
	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		assert.True(t, prev.Distance < cur.Distance || (prev.Distance == cur.Distance && prev.ID < cur.ID))
	}
}

func TestHNSW_InnerProductOrdering(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t, func(o *Options) { o.Metric = distance.InnerProduct })

	vectors := testutil.NewRNG(3).UniformVectors(200, 8)
	insertAll(t, h, vectors)

	q := vectors[17]
	res, err := h.Search(ctx, q, 10, 200, nil)
	require.NoError(t, err)
	require.Len(t, res, 10)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Distance, res[i].Distance, "similarity must descend")
	}

	truth := testutil.BruteForce(distance.InnerProduct, q, vectors, 1)
	assert.Equal(t, truth[0].ID, res[0].ID)
	assert.InDelta(t, truth[0].Distance, res[0].Distance, 1e-9)
}

func TestHNSW_Recall(t *testing.T) {
	ctx := context.Background()

	for _, metric := range []distance.Metric{distance.Euclidean, distance.Cosine} {
		t.Run(metric.String(), func(t *testing.T) {
			h := newTestIndex(t, func(o *Options) {
				o.Dimension = 16
				o.Metric = metric
			})

			rng := testutil.NewRNG(99)
			vectors := rng.UniformRangeVectors(2000, 16)
			_, err := h.BatchInsert(ctx, vectors)
			require.NoError(t, err)

			const k, queries = 10, 50
			var total float64
			for _, q := range rng.UniformRangeVectors(queries, 16) {
				res, err := h.Search(ctx, q, k, 100, nil)
				require.NoError(t, err)

				approx := make([]testutil.SearchResult, len(res))
				for i, r := range res {
					approx[i] = testutil.SearchResult{ID: r.ID, Distance: r.Distance}
				}
				total += testutil.ComputeRecall(testutil.BruteForce(metric, q, vectors, k), approx)
			}

			recall := total / queries
			assert.GreaterOrEqual(t, recall, 0.9, "recall@%d = %.3f", k, recall)
		})
	}
}

func TestHNSW_DeleteUpdateVector(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t)

	vectors := testutil.NewRNG(5).UniformVectors(100, 8)
	ids := insertAll(t, h, vectors)

	target := ids[10]
	require.NoError(t, h.Delete(ctx, target))
	require.NoError(t, h.Delete(ctx, target), "delete is idempotent")
	assert.Equal(t, 99, h.Len())
	assert.True(t, h.IsDeleted(target))

	res, err := h.Search(ctx, vectors[10], 10, 64, nil)
	require.NoError(t, err)
	assert.NotContains(t, resultIDs(res), target)

	_, err = h.Vector(ctx, target)
	var nf *ErrNodeNotFound
	assert.ErrorAs(t, err, &nf)

	err = h.Delete(ctx, 12345)
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, model.NodeID(12345), nf.ID)

	// Update
	old := ids[20]
	replacement := []float32{9, 9, 9, 9, 9, 9, 9, 9}
	newID, err := h.Update(ctx, old, replacement)
	require.NoError(t, err)
	assert.NotEqual(t, old, newID)
	assert.Equal(t, 99, h.Len())

	got, err := h.Vector(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)

	_, err = h.Vector(ctx, old)
	assert.ErrorAs(t, err, &nf)

	_, err = h.Update(ctx, old, replacement)
	assert.ErrorAs(t, err, &nf, "updating a deleted node fails")

	_, err = h.Update(ctx, newID, []float32{1})
	var dimErr *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dimErr)
	assert.False(t, h.IsDeleted(newID), "a rejected update must not delete")

	res, err = h.Search(ctx, replacement, 1, 64, nil)
	require.NoError(t, err)
	assert.Equal(t, newID, res[0].ID)

	require.NoError(t, h.Verify())
}

func TestHNSW_Filter(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t)

	vectors := testutil.NewRNG(11).UniformVectors(300, 8)
	insertAll(t, h, vectors)
	require.NoError(t, h.Delete(ctx, 2))

	even := roaring.New()
	for i := uint32(0); i < 300; i += 2 {
		even.Add(i)
	}

	res, err := h.Search(ctx, vectors[1], 10, 64, &SearchOptions{Filter: even})
	require.NoError(t, err)
	require.NotEmpty(t, res)
	for _, r := range res {
		assert.Zero(t, r.ID%2, "id %d is outside the filter", r.ID)
		assert.NotEqual(t, model.NodeID(2), r.ID)
	}

	none, err := h.Search(ctx, vectors[1], 10, 64, &SearchOptions{Filter: roaring.New()})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHNSW_Float16Cells(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t, func(o *Options) { o.CellType = vectorstore.CellFloat16 })

	vectors := testutil.NewRNG(8).UniformVectors(50, 8)
	ids := insertAll(t, h, vectors)

	for i, id := range ids {
		got, err := h.Vector(ctx, id)
		require.NoError(t, err)
		for j := range got {
			assert.InDelta(t, vectors[i][j], got[j], 1e-3)
		}
	}

	res, err := h.Search(ctx, vectors[3], 1, 32, nil)
	require.NoError(t, err)
	assert.Equal(t, ids[3], res[0].ID)
}

func TestHNSW_BatchInsert(t *testing.T) {
	ctx := context.Background()
	h := newTestIndex(t, func(o *Options) { o.BuildWorkers = 4 })

	vectors := testutil.NewRNG(21).UniformVectors(500, 8)
	ids, err := h.BatchInsert(ctx, vectors)
	require.NoError(t, err)
	require.Len(t, ids, 500)

	seen := make(map[model.NodeID]bool, len(ids))
	for i, id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true

		got, err := h.Vector(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, vectors[i], got)
	}
	assert.Equal(t, 500, h.Len())
	require.NoError(t, h.Verify())

	bad := [][]float32{make([]float32, 8), make([]float32, 3)}
	_, err = h.BatchInsert(ctx, bad)
	var dimErr *ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 500, h.Len(), "a rejected batch inserts nothing")
}

func TestHNSW_ContextAndClose(t *testing.T) {
	h := newTestIndex(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Insert(ctx, make([]float32, 8))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = h.Insert(context.Background(), make([]float32, 8))
	require.NoError(t, err)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, err = h.Insert(context.Background(), make([]float32, 8))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = h.Search(context.Background(), make([]float32, 8), 1, 10, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHNSW_Stats(t *testing.T) {
	h := newTestIndex(t, func(o *Options) { o.M = 4 })
	insertAll(t, h, testutil.NewRNG(2).UniformVectors(400, 8))
	require.NoError(t, h.Delete(context.Background(), 0))

	st := h.Stats()
	assert.Equal(t, 400, st.Nodes)
	assert.Equal(t, 1, st.Deleted)
	assert.Equal(t, h.graph.MaxLevel(), st.MaxLevel)
	assert.Equal(t, "8", st.Parameters["m0"])
	assert.Equal(t, "euclidean", st.Parameters["metric"])
	assert.Positive(t, st.VectorBytes)

	require.NotEmpty(t, st.Levels)
	assert.Equal(t, 400, st.Levels[0].Nodes)
	assert.Greater(t, st.Levels[0].AvgDegree, 0.0)
	for i, ls := range st.Levels {
		assert.LessOrEqual(t, ls.MaxDegree, ls.Capacity)
		if i > 0 {
			assert.LessOrEqual(t, ls.Nodes, st.Levels[i-1].Nodes)
		}
	}
}

func TestOptions_Validation(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(o *Options)
		field string
	}{
		{"dimension", func(o *Options) { o.Dimension = 0 }, "Dimension"},
		{"m", func(o *Options) { o.M = 0 }, "M"},
		{"m0", func(o *Options) { o.M0 = -1 }, "M0"},
		{"ef", func(o *Options) { o.EFConstruction = 0 }, "EFConstruction"},
		{"multiplier", func(o *Options) { o.LevelMultiplier = math.NaN() }, "LevelMultiplier"},
		{"metric", func(o *Options) { o.Metric = distance.Metric(42) }, "Metric"},
		{"cell type", func(o *Options) { o.CellType = vectorstore.CellType(42) }, "CellType"},
		{"workers", func(o *Options) { o.BuildWorkers = -2 }, "BuildWorkers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(func(o *Options) { o.Dimension = 4 }, tt.fn)
			var optErr *ErrInvalidOption
			require.ErrorAs(t, err, &optErr)
			assert.Equal(t, tt.field, optErr.Field)
		})
	}

	h, err := New(func(o *Options) {
		o.Dimension = 4
		o.M = 12
	})
	require.NoError(t, err)
	opts := h.Options()
	assert.Equal(t, 24, opts.M0)
	assert.InDelta(t, 1/math.Log(12), opts.LevelMultiplier, 1e-12)
	assert.Equal(t, DefaultEFConstruction, opts.EFConstruction)
}

func TestLevelGenerator(t *testing.T) {
	assert.Equal(t, 0, levelFor(1, 1))
	assert.Equal(t, 0, levelFor(0.99, 1))
	assert.Equal(t, MaxLevel, levelFor(0, 1))
	assert.Equal(t, 2, levelFor(math.Exp(-2.5), 1))
	assert.Equal(t, MaxLevel, levelFor(1e-300, 10))

	seed := int64(99)
	a := newLevelGenerator(1/math.Log(16), &seed, nil)
	b := newLevelGenerator(1/math.Log(16), &seed, nil)
	above := 0
	const draws = 20000
	for range draws {
		la, lb := a.Next(), b.Next()
		require.Equal(t, la, lb, "same seed must give the same levels")
		require.GreaterOrEqual(t, la, 0)
		if la > 0 {
			above++
		}
	}
	// P(level >= 1) = 1/M for mult = 1/ln(M).
	assert.InDelta(t, 1.0/16, float64(above)/draws, 0.01)

	src := newLevelGenerator(1, nil, constSource(0.1))
	assert.Equal(t, 2, src.Next())
}

func TestHNSW_InjectedLevelSourceReproducesGraph(t *testing.T) {
	build := func() *HNSW {
		h := newTestIndex(t, func(o *Options) { o.LevelSource = testutil.NewRNG(1234) })
		insertAll(t, h, testutil.NewRNG(77).UniformVectors(150, 8))
		return h
	}

	a, b := build(), build()
	assert.Equal(t, a.graph.MaxLevel(), b.graph.MaxLevel())
	for id := model.NodeID(0); id < 150; id++ {
		na, nb := a.graph.Node(id), b.graph.Node(id)
		require.Equal(t, na.Level(), nb.Level())
		for l := 0; l <= na.Level(); l++ {
			assert.Equal(t, na.Links(l), nb.Links(l))
		}
	}
}

func TestHNSW_VerifyDetectsViolations(t *testing.T) {
	h := newTestIndex(t)
	insertAll(t, h, testutil.NewRNG(1).UniformVectors(20, 8))

	n := h.graph.Node(0)
	n.Lock()
	links := n.Links(0)
	n.SetLinks(0, links.With(graph.Neighbor{ID: 0}))
	n.Unlock()

	err := h.Verify()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariantViolation))
	assert.Contains(t, err.Error(), "self loop")
}

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

func resultIDs(res []SearchResult) []model.NodeID {
	ids := make([]model.NodeID, len(res))
	for i, r := range res {
		ids[i] = r.ID
	}
	return ids
}

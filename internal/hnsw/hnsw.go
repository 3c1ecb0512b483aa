package hnsw

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/hnswbench/distance"
	"github.com/hupe1980/hnswbench/internal/graph"
	"github.com/hupe1980/hnswbench/internal/searcher"
	"github.com/hupe1980/hnswbench/internal/vectorstore"
	"github.com/hupe1980/hnswbench/model"
)

// HNSW represents the Hierarchical Navigable Small World graph.
type HNSW struct {
	opts Options

	dist   distance.Func
	store  *vectorstore.Store
	graph  *graph.Graph
	levels *levelGenerator

	tombMu     sync.RWMutex
	tombstones *roaring.Bitmap
	deleted    atomic.Int64

	closed atomic.Bool
	logger *slog.Logger
}

// New creates a new HNSW instance.
func New(optFns ...func(o *Options)) (*HNSW, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := opts.normalize(); err != nil {
		return nil, err
	}

	store, err := vectorstore.New(opts.Dimension, opts.CellType)
	if err != nil {
		return nil, err
	}

	g, err := graph.New(opts.M, opts.M0)
	if err != nil {
		return nil, err
	}

	return &HNSW{
		opts:       opts,
		dist:       opts.Metric.Func(),
		store:      store,
		graph:      g,
		levels:     newLevelGenerator(opts.LevelMultiplier, opts.RandomSeed, opts.LevelSource),
		tombstones: roaring.New(),
		logger:     opts.Logger,
	}, nil
}

// Options returns the effective options, with defaults resolved.
func (h *HNSW) Options() Options { return h.opts }

// Dimension returns the vector dimensionality.
func (h *HNSW) Dimension() int { return h.opts.Dimension }

// Metric returns the distance metric.
func (h *HNSW) Metric() distance.Metric { return h.opts.Metric }

// Len returns the number of live (inserted and not deleted) vectors.
func (h *HNSW) Len() int {
	return h.graph.Len() - int(h.deleted.Load())
}

// Close releases the vector storage. Subsequent operations fail with ErrClosed.
func (h *HNSW) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.store.Close()
}

func (h *HNSW) checkUsable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.closed.Load() {
		return ErrClosed
	}
	return nil
}

// prepare validates v and writes its float64 form into s.Query,
// unit-normalized for metrics that require it.
func (h *HNSW) prepare(s *searcher.Searcher, v []float32) error {
	if len(v) != h.opts.Dimension {
		return &ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(v)}
	}
	q := s.Query[:0]
	for _, x := range v {
		q = append(q, float64(x))
	}
	if h.opts.Metric.NormalizesInput() {
		// Zero vectors stay as they are and sit at distance 1 from everything.
		q, _ = distance.NormalizeL2(q, q)
	}
	s.Query = q
	return nil
}

// distTo returns the internal distance between s.Query and node id.
func (h *HNSW) distTo(s *searcher.Searcher, id model.NodeID) float64 {
	v, err := h.store.Get(id, s.ScratchVec)
	if err != nil {
		return math.Inf(1)
	}
	// float64 cells alias store memory and must never become a decode target.
	if h.store.CellType() != vectorstore.CellFloat64 {
		s.ScratchVec = v
	}
	return h.dist(s.Query, v)
}

// Insert stores v and links it into the graph. The returned node is
// reachable by searches once Insert returns.
func (h *HNSW) Insert(ctx context.Context, v []float32) (model.NodeID, error) {
	if err := h.checkUsable(ctx); err != nil {
		return 0, err
	}

	s := searcher.Get()
	defer searcher.Put(s)

	if err := h.prepare(s, v); err != nil {
		return 0, err
	}
	return h.insert(s)
}

func (h *HNSW) insert(s *searcher.Searcher) (model.NodeID, error) {
	id, err := h.store.Append(s.Query)
	if err != nil {
		return 0, err
	}

	n, err := h.graph.Publish(id, h.levels.Next())
	if err != nil {
		return 0, err
	}

	if h.graph.InitEntry(n) {
		return id, nil
	}

	h.link(s, n)

	if h.graph.PromoteEntry(n) {
		h.logger.Debug("entry point promoted", "id", id, "level", n.Level())
	}
	return id, nil
}

// link connects n to its neighbors on every level it shares with the graph.
func (h *HNSW) link(s *searcher.Searcher, n *graph.Node) {
	ep, _ := h.graph.Entry()

	cur := searcher.PriorityQueueItem{Node: ep.ID, Distance: h.distTo(s, ep.ID)}
	cur = h.greedy(s, cur, ep.Level, n.Level())

	sel := getSelector()
	defer putSelector(sel)

	var (
		cands   []graph.Neighbor
		repairs []staleEdge
	)

	seeds := append(s.Sorted[:0], cur)
	for level := min(n.Level(), ep.Level); level >= 0; level-- {
		s.Visited.Reset()
		s.Visited.Visit(n.ID())
		h.searchLayer(s, seeds, level, h.opts.EFConstruction, nil)

		s.Sorted = s.Candidates.DrainSorted(s.Sorted[:0])
		seeds = s.Sorted

		cands = cands[:0]
		for _, item := range s.Sorted {
			cands = append(cands, graph.Neighbor{ID: item.Node, Dist: item.Distance})
		}

		selected, _ := h.selectNeighbors(sel, cands, h.graph.Capacity(level))

		repairs = repairs[:0]
		for _, nb := range selected {
			repairs = h.connect(sel, n, level, nb, repairs)
		}
		for _, e := range repairs {
			h.repair(level, e)
		}
	}
}

// greedy walks from cur towards s.Query on every level from top down to
// (excluding) bottom, moving to the closest neighbor until no improvement.
func (h *HNSW) greedy(s *searcher.Searcher, cur searcher.PriorityQueueItem, top, bottom int) searcher.PriorityQueueItem {
	for level := top; level > bottom; level-- {
		for changed := true; changed; {
			changed = false
			node := h.graph.Node(cur.Node)
			if node == nil {
				break
			}
			for _, nb := range node.Links(level) {
				item := searcher.PriorityQueueItem{Node: nb.ID, Distance: h.distTo(s, nb.ID)}
				if searcher.Before(item, cur) {
					cur = item
					changed = true
				}
			}
		}
	}
	return cur
}

// searchLayer runs a beam search of width ef on level, starting from seeds.
//
// Callers reset s.Visited and may pre-visit nodes to exclude them. Results
// end up in s.Candidates (bounded max-heap). Nodes rejected by accept are
// traversed but never become results.
func (h *HNSW) searchLayer(s *searcher.Searcher, seeds []searcher.PriorityQueueItem, level, ef int, accept func(model.NodeID) bool) {
	s.Candidates.Reset()
	s.ScratchCandidates.Reset()

	for _, seed := range seeds {
		if !s.Visited.Visit(seed.Node) {
			continue
		}
		s.ScratchCandidates.PushItem(seed)
		if accept == nil || accept(seed.Node) {
			s.Candidates.PushItemBounded(seed, ef)
		}
	}

	for s.ScratchCandidates.Len() > 0 {
		c, _ := s.ScratchCandidates.PopItem()

		if s.Candidates.Len() >= ef {
			if worst, _ := s.Candidates.TopItem(); searcher.Before(worst, c) {
				break
			}
		}

		node := h.graph.Node(c.Node)
		if node == nil {
			continue
		}

		for _, nb := range node.Links(level) {
			if !s.Visited.Visit(nb.ID) {
				continue
			}

			item := searcher.PriorityQueueItem{Node: nb.ID, Distance: h.distTo(s, nb.ID)}
			if s.Candidates.Len() >= ef {
				if worst, _ := s.Candidates.TopItem(); !searcher.Before(item, worst) {
					continue
				}
			}

			s.ScratchCandidates.PushItem(item)
			if accept == nil || accept(nb.ID) {
				s.Candidates.PushItemBounded(item, ef)
			}
		}
	}
}

// Search returns up to k approximate nearest neighbors of q, best first.
// The beam width is max(ef, k).
func (h *HNSW) Search(ctx context.Context, q []float32, k, ef int, opts *SearchOptions) ([]SearchResult, error) {
	if err := h.checkUsable(ctx); err != nil {
		return nil, err
	}

	s := searcher.Get()
	defer searcher.Put(s)

	if err := h.prepare(s, q); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}

	ep, ok := h.graph.Entry()
	if !ok {
		return nil, ErrEmptyIndex
	}

	cur := searcher.PriorityQueueItem{Node: ep.ID, Distance: h.distTo(s, ep.ID)}
	cur = h.greedy(s, cur, ep.Level, 0)

	s.Visited.Reset()
	h.searchLayer(s, append(s.Sorted[:0], cur), 0, max(ef, k), h.acceptFunc(opts))

	s.Sorted = s.Candidates.DrainSorted(s.Sorted[:0])
	n := min(k, len(s.Sorted))
	results := make([]SearchResult, n)
	for i := range n {
		results[i] = SearchResult{
			ID:       s.Sorted[i].Node,
			Distance: h.opts.Metric.External(s.Sorted[i].Distance),
		}
	}
	return results, nil
}

// acceptFunc returns the result predicate for a search, or nil if every
// node is acceptable.
func (h *HNSW) acceptFunc(opts *SearchOptions) func(model.NodeID) bool {
	var filter *roaring.Bitmap
	if opts != nil {
		filter = opts.Filter
	}
	hasDeletes := h.deleted.Load() > 0

	switch {
	case filter == nil && !hasDeletes:
		return nil
	case !hasDeletes:
		return func(id model.NodeID) bool { return filter.Contains(uint32(id)) }
	default:
		return func(id model.NodeID) bool {
			if filter != nil && !filter.Contains(uint32(id)) {
				return false
			}
			return !h.IsDeleted(id)
		}
	}
}

// IsDeleted reports whether id carries a tombstone.
func (h *HNSW) IsDeleted(id model.NodeID) bool {
	h.tombMu.RLock()
	defer h.tombMu.RUnlock()
	return h.tombstones.Contains(uint32(id))
}

// Delete tombstones id. The node stays in the graph for traversal but is
// never returned by Search. Deleting an already deleted node is a no-op.
func (h *HNSW) Delete(ctx context.Context, id model.NodeID) error {
	if err := h.checkUsable(ctx); err != nil {
		return err
	}
	if h.graph.Node(id) == nil {
		return &ErrNodeNotFound{ID: id}
	}

	h.tombMu.Lock()
	added := h.tombstones.CheckedAdd(uint32(id))
	h.tombMu.Unlock()

	if added {
		h.deleted.Add(1)
	}
	return nil
}

// Update replaces the vector of id: the old node is tombstoned and v is
// inserted as a new node, whose id is returned.
func (h *HNSW) Update(ctx context.Context, id model.NodeID, v []float32) (model.NodeID, error) {
	if err := h.checkUsable(ctx); err != nil {
		return 0, err
	}

	s := searcher.Get()
	defer searcher.Put(s)

	if err := h.prepare(s, v); err != nil {
		return 0, err
	}
	if h.graph.Node(id) == nil || h.IsDeleted(id) {
		return 0, &ErrNodeNotFound{ID: id}
	}

	if err := h.Delete(ctx, id); err != nil {
		return 0, err
	}
	return h.insert(s)
}

// Vector returns a copy of the stored vector of id. Cosine indexes return
// the unit-normalized vector.
func (h *HNSW) Vector(ctx context.Context, id model.NodeID) ([]float32, error) {
	if err := h.checkUsable(ctx); err != nil {
		return nil, err
	}
	if h.graph.Node(id) == nil || h.IsDeleted(id) {
		return nil, &ErrNodeNotFound{ID: id}
	}
	v, err := h.store.Float32(id)
	if err != nil {
		return nil, &ErrNodeNotFound{ID: id}
	}
	return v, nil
}

// BatchInsert validates every vector, then inserts them in parallel.
// ids[i] is the node id of vectors[i]. On error, some vectors may already
// have been inserted.
func (h *HNSW) BatchInsert(ctx context.Context, vectors [][]float32) ([]model.NodeID, error) {
	if err := h.checkUsable(ctx); err != nil {
		return nil, err
	}

	for i, v := range vectors {
		if len(v) != h.opts.Dimension {
			return nil, fmt.Errorf("vector %d: %w", i, &ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(v)})
		}
	}

	workers := h.opts.BuildWorkers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		ids      = make([]model.NodeID, len(vectors))
		done     atomic.Int64
		progress = rate.Sometimes{First: 1, Interval: time.Second}
		start    = time.Now()
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, v := range vectors {
		eg.Go(func() error {
			id, err := h.Insert(egCtx, v)
			if err != nil {
				return fmt.Errorf("vector %d: %w", i, err)
			}
			ids[i] = id

			n := done.Add(1)
			progress.Do(func() {
				h.logger.Info("batch insert progress",
					"done", n,
					"total", len(vectors),
					"elapsed", time.Since(start),
				)
			})
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

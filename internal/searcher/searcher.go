package searcher

import "sync"

// Searcher is a reusable execution context for graph traversal.
// It owns all scratch memory required for one search or insert.
//
// Searcher is NOT thread-safe. It is intended to be owned by a single goroutine
// during a search operation.
type Searcher struct {
	// Visited tracks visited nodes during graph traversal.
	Visited *VisitedSet

	// Candidates is a max-heap holding the best results found so far
	// (worst on top, bounded by ef).
	Candidates *PriorityQueue

	// ScratchCandidates is a min-heap of the frontier still to expand.
	ScratchCandidates *PriorityQueue

	// Query holds the prepared (float64, possibly normalized) query.
	Query []float64

	// ScratchVec is a reusable buffer for decoding stored vectors.
	ScratchVec []float64

	// Sorted is a reusable buffer for draining queues in rank order.
	Sorted []PriorityQueueItem
}

var pool = sync.Pool{
	New: func() any {
		return &Searcher{
			Visited:           NewVisitedSet(1024),
			Candidates:        NewPriorityQueue(true),
			ScratchCandidates: NewPriorityQueue(false),
		}
	},
}

// Get returns a reset Searcher from the pool.
func Get() *Searcher {
	s, _ := pool.Get().(*Searcher)
	s.Reset()
	return s
}

// Put returns a Searcher to the pool.
func Put(s *Searcher) {
	if s == nil {
		return
	}
	pool.Put(s)
}

// Reset clears all per-traversal state.
func (s *Searcher) Reset() {
	s.Visited.Reset()
	s.Candidates.Reset()
	s.ScratchCandidates.Reset()
	s.Sorted = s.Sorted[:0]
}

package hnsw

import (
	"sync"

	"github.com/hupe1980/hnswbench/internal/graph"
	"github.com/hupe1980/hnswbench/internal/vectorstore"
	"github.com/hupe1980/hnswbench/model"
)

// selector owns the scratch memory of one neighbor selection.
type selector struct {
	bufs      [][]float64 // decode buffers, one per kept candidate
	vecs      [][]float64 // vectors of the kept candidates
	kept      []graph.Neighbor
	discarded []graph.Neighbor
	dropped   []model.NodeID
}

var selectorPool = sync.Pool{
	New: func() any { return &selector{} },
}

func getSelector() *selector {
	s, _ := selectorPool.Get().(*selector)
	return s
}

func putSelector(s *selector) {
	selectorPool.Put(s)
}

func (s *selector) reset() {
	s.vecs = s.vecs[:0]
	s.kept = s.kept[:0]
	s.discarded = s.discarded[:0]
	s.dropped = s.dropped[:0]
}

// load decodes id into the next free buffer without claiming it.
func (s *selector) load(store *vectorstore.Store, id model.NodeID) ([]float64, bool) {
	i := len(s.vecs)
	if i == len(s.bufs) {
		s.bufs = append(s.bufs, nil)
	}
	v, err := store.Get(id, s.bufs[i])
	if err != nil {
		return nil, false
	}
	// float64 cells alias store memory and must never become a decode target.
	if store.CellType() != vectorstore.CellFloat64 {
		s.bufs[i] = v
	}
	return v, true
}

// selectNeighbors picks up to m neighbors from cands, which must be sorted by
// ascending distance to the list owner.
//
// A candidate is kept when it is not closer to any already kept neighbor than
// to the owner. Remaining slots are filled with the closest discarded
// candidates. It returns the selection as sorted Links together with the ids
// that were not selected. The dropped slice is only valid until the next call.
func (h *HNSW) selectNeighbors(s *selector, cands []graph.Neighbor, m int) (graph.Links, []model.NodeID) {
	if len(cands) <= m {
		return graph.Sorted(cands), nil
	}

	s.reset()
	for i, c := range cands {
		if len(s.kept) >= m {
			s.discarded = append(s.discarded, cands[i:]...)
			break
		}

		v, ok := s.load(h.store, c.ID)
		if !ok {
			s.discarded = append(s.discarded, c)
			continue
		}

		good := true
		for _, kv := range s.vecs {
			if h.dist(v, kv) < c.Dist {
				good = false
				break
			}
		}

		if good {
			s.kept = append(s.kept, c)
			s.vecs = append(s.vecs, v)
		} else {
			s.discarded = append(s.discarded, c)
		}
	}

	// Fill up from the closest discarded candidates.
	for _, c := range s.discarded {
		if len(s.kept) < m {
			s.kept = append(s.kept, c)
		} else {
			s.dropped = append(s.dropped, c.ID)
		}
	}

	return graph.Sorted(s.kept), s.dropped
}

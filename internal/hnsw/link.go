package hnsw

import (
	"github.com/hupe1980/hnswbench/internal/graph"
	"github.com/hupe1980/hnswbench/model"
)

// staleEdge is a half-edge candidate left behind by pruning: owner dropped
// peer from its list, so peer's edge back to owner must go too.
type staleEdge struct {
	owner model.NodeID
	peer  model.NodeID
}

// connect adds the undirected edge q <-> nb at level.
//
// Both endpoints are locked in id order. Lists that overflow are pruned with
// the selection rule; if pruning removes the edge being added from either
// side, it is removed from both. Other pruned edges are appended to repairs
// and must be passed to repair after all locks are released.
func (h *HNSW) connect(sel *selector, q *graph.Node, level int, nb graph.Neighbor, repairs []staleEdge) []staleEdge {
	p := h.graph.Node(nb.ID)
	if p == nil || p == q || p.Level() < level {
		return repairs
	}

	capacity := h.graph.Capacity(level)

	graph.LockPair(q, p)

	qLinks := q.Links(level).With(graph.Neighbor{ID: p.ID(), Dist: nb.Dist})
	pLinks := p.Links(level).With(graph.Neighbor{ID: q.ID(), Dist: nb.Dist})

	var qDropped, pDropped []model.NodeID
	if len(qLinks) > capacity {
		qLinks, qDropped = h.shrink(sel, qLinks, capacity)
	}
	if len(pLinks) > capacity {
		pLinks, pDropped = h.shrink(sel, pLinks, capacity)
	}

	if !qLinks.Contains(p.ID()) {
		pLinks = pLinks.Without(q.ID())
	}
	if !pLinks.Contains(q.ID()) {
		qLinks = qLinks.Without(p.ID())
	}

	q.SetLinks(level, qLinks)
	p.SetLinks(level, pLinks)

	graph.UnlockPair(q, p)

	for _, id := range qDropped {
		if id != p.ID() {
			repairs = append(repairs, staleEdge{owner: q.ID(), peer: id})
		}
	}
	for _, id := range pDropped {
		if id != q.ID() {
			repairs = append(repairs, staleEdge{owner: p.ID(), peer: id})
		}
	}
	return repairs
}

// shrink prunes an overflowing list back to capacity.
// The returned ids are a copy and stay valid across selections.
func (h *HNSW) shrink(sel *selector, l graph.Links, capacity int) (graph.Links, []model.NodeID) {
	kept, dropped := h.selectNeighbors(sel, l, capacity)
	return kept, append([]model.NodeID(nil), dropped...)
}

// repair removes peer -> owner at level if owner no longer links peer.
func (h *HNSW) repair(level int, e staleEdge) {
	owner := h.graph.Node(e.owner)
	peer := h.graph.Node(e.peer)
	if owner == nil || peer == nil {
		return
	}

	graph.LockPair(owner, peer)
	defer graph.UnlockPair(owner, peer)

	if !owner.Links(level).Contains(peer.ID()) {
		peer.SetLinks(level, peer.Links(level).Without(owner.ID()))
	}
}

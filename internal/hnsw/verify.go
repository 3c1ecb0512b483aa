package hnsw

import (
	"errors"
	"fmt"

	"github.com/hupe1980/hnswbench/internal/graph"
	"github.com/hupe1980/hnswbench/model"
)

// maxViolations bounds the number of errors Verify collects.
const maxViolations = 64

// Verify checks the structural invariants of the graph:
//
//   - every neighbor at level l is itself present at level l
//   - layer sizes do not grow with the level
//   - no list exceeds its capacity, holds duplicates or points to its owner
//   - every edge is reciprocal
//   - the entry point is a node at the maximum level
//
// Reciprocity only holds once all inserts have returned, so Verify must not
// run concurrently with writers. It returns nil or an error wrapping
// ErrInvariantViolation that joins the violations found.
func (h *HNSW) Verify() error {
	var errs []error
	report := func(format string, args ...any) bool {
		errs = append(errs, fmt.Errorf(format, args...))
		return len(errs) < maxViolations
	}

	numLayers := h.graph.NumLayers()
	counts := make([]int, numLayers)
	maxLevel := -1

	h.graph.ForEach(func(n *graph.Node) bool {
		maxLevel = max(maxLevel, n.Level())
		for l := 0; l <= n.Level(); l++ {
			if l < numLayers {
				counts[l]++
			}
			if !h.verifyList(n, l, report) {
				return false
			}
		}
		return true
	})

	if len(errs) < maxViolations {
		for l := 0; l < numLayers; l++ {
			if got := h.graph.Layer(l).Len(); got != counts[l] {
				report("level %d: layer size %d, counted %d nodes", l, got, counts[l])
			}
			if l > 0 && counts[l] > counts[l-1] {
				report("level %d: %d nodes exceed %d nodes on level %d", l, counts[l], counts[l-1], l-1)
			}
		}

		ep, ok := h.graph.Entry()
		switch {
		case !ok && h.graph.Len() > 0:
			report("entry point missing for %d nodes", h.graph.Len())
		case ok:
			n := h.graph.Node(ep.ID)
			if n == nil {
				report("entry point %d is not a node", ep.ID)
			} else if n.Level() != ep.Level || ep.Level != maxLevel {
				report("entry point %d at level %d (node level %d, max level %d)", ep.ID, ep.Level, n.Level(), maxLevel)
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvariantViolation, errors.Join(errs...))
}

func (h *HNSW) verifyList(n *graph.Node, level int, report func(string, ...any) bool) bool {
	links := n.Links(level)

	if c := h.graph.Capacity(level); len(links) > c {
		if !report("node %d level %d: %d neighbors exceed capacity %d", n.ID(), level, len(links), c) {
			return false
		}
	}

	seen := make(map[model.NodeID]struct{}, len(links))
	for _, nb := range links {
		if nb.ID == n.ID() {
			if !report("node %d level %d: self loop", n.ID(), level) {
				return false
			}
			continue
		}
		if _, dup := seen[nb.ID]; dup {
			if !report("node %d level %d: duplicate neighbor %d", n.ID(), level, nb.ID) {
				return false
			}
			continue
		}
		seen[nb.ID] = struct{}{}

		peer := h.graph.Node(nb.ID)
		if peer == nil || peer.Level() < level {
			if !report("node %d level %d: neighbor %d is not on this level", n.ID(), level, nb.ID) {
				return false
			}
			continue
		}
		if !peer.Links(level).Contains(n.ID()) {
			if !report("node %d level %d: edge to %d is not reciprocal", n.ID(), level, nb.ID) {
				return false
			}
		}
	}
	return true
}

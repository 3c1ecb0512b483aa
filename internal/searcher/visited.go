package searcher

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/hnswbench/model"
)

// VisitedSet tracks visited nodes using a bitset and a dirty list for fast reset.
type VisitedSet struct {
	bits  *bitset.BitSet
	dirty []model.NodeID
}

// NewVisitedSet creates a new visited set sized for capacity nodes.
func NewVisitedSet(capacity int) *VisitedSet {
	return &VisitedSet{
		bits:  bitset.New(uint(capacity)),
		dirty: make([]model.NodeID, 0, 128),
	}
}

// Visit marks a node as visited. It returns false if it was already visited.
func (v *VisitedSet) Visit(id model.NodeID) bool {
	if v.bits.Test(uint(id)) {
		return false
	}
	v.bits.Set(uint(id))
	v.dirty = append(v.dirty, id)
	return true
}

// Visited returns true if the node has been visited.
func (v *VisitedSet) Visited(id model.NodeID) bool {
	return v.bits.Test(uint(id))
}

// Count returns the number of nodes visited since the last Reset.
func (v *VisitedSet) Count() int {
	return len(v.dirty)
}

// Reset clears the visited status for all nodes visited in the current session.
// Cost is proportional to the number of visited nodes, not the capacity.
func (v *VisitedSet) Reset() {
	for _, id := range v.dirty {
		v.bits.Clear(uint(id))
	}
	v.dirty = v.dirty[:0]
}

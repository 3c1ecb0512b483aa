package graph

import (
	"github.com/hupe1980/hnswbench/model"
)

// Neighbor is an edge endpoint with its cached distance to the list owner.
type Neighbor struct {
	ID   model.NodeID
	Dist float64
}

// before orders neighbors by distance, then id.
func before(a, b Neighbor) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	return a.ID < b.ID
}

// Links is an immutable neighbor list sorted by ascending distance.
// Never modify a Links value after it has been published.
type Links []Neighbor

// Contains reports whether id is in the list.
func (l Links) Contains(id model.NodeID) bool {
	for _, n := range l {
		if n.ID == id {
			return true
		}
	}
	return false
}

// With returns a copy of l with n inserted in sorted position.
// If n.ID is already present, l is returned unchanged.
func (l Links) With(n Neighbor) Links {
	if l.Contains(n.ID) {
		return l
	}
	out := make(Links, 0, len(l)+1)
	inserted := false
	for _, c := range l {
		if !inserted && before(n, c) {
			out = append(out, n)
			inserted = true
		}
		out = append(out, c)
	}
	if !inserted {
		out = append(out, n)
	}
	return out
}

// Without returns a copy of l with id removed.
// If id is not present, l is returned unchanged.
func (l Links) Without(id model.NodeID) Links {
	idx := -1
	for i, n := range l {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return l
	}
	out := make(Links, 0, len(l)-1)
	out = append(out, l[:idx]...)
	return append(out, l[idx+1:]...)
}

// IDs returns the neighbor ids in list order.
func (l Links) IDs() []model.NodeID {
	ids := make([]model.NodeID, len(l))
	for i, n := range l {
		ids[i] = n.ID
	}
	return ids
}

// Sorted returns a sorted copy of ns as Links.
func Sorted(ns []Neighbor) Links {
	out := make(Links, len(ns))
	copy(out, ns)
	// Insertion sort: lists are bounded by M0.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && before(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

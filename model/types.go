package model

import "fmt"

// NodeID is a dense, index-local identifier for a stored vector.
// Used for all hot-path structures (graph adjacency, bitsets, heaps).
type NodeID uint32

// MaxNodeID is the largest representable NodeID.
const MaxNodeID = ^NodeID(0)

// String returns a string representation of the NodeID.
func (id NodeID) String() string {
	return fmt.Sprintf("Node(%d)", uint32(id))
}

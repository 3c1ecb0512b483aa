package graph

import (
	"sync"
	"sync/atomic"

	"github.com/hupe1980/hnswbench/model"
)

// Node is the per-node record: its top level and one neighbor list per level.
type Node struct {
	id    model.NodeID
	level int

	mu    sync.Mutex // guards writes to links
	links []atomic.Pointer[Links]
}

func newNode(id model.NodeID, level int) *Node {
	return &Node{
		id:    id,
		level: level,
		links: make([]atomic.Pointer[Links], level+1),
	}
}

// ID returns the node id.
func (n *Node) ID() model.NodeID { return n.id }

// Level returns the node's top level. It never changes.
func (n *Node) Level() int { return n.level }

// Links returns the current neighbor list at level.
// Returns nil if the node is not present at that level.
func (n *Node) Links(level int) Links {
	if level < 0 || level > n.level {
		return nil
	}
	if p := n.links[level].Load(); p != nil {
		return *p
	}
	return nil
}

// SetLinks publishes a new neighbor list at level.
// The caller must hold the node lock.
func (n *Node) SetLinks(level int, l Links) {
	n.links[level].Store(&l)
}

// Lock acquires the node's mutation lock.
func (n *Node) Lock() { n.mu.Lock() }

// Unlock releases the node's mutation lock.
func (n *Node) Unlock() { n.mu.Unlock() }

// LockPair locks a and b in ascending id order. a and b may be the same node.
func LockPair(a, b *Node) {
	switch {
	case a == b:
		a.mu.Lock()
	case a.id < b.id:
		a.mu.Lock()
		b.mu.Lock()
	default:
		b.mu.Lock()
		a.mu.Lock()
	}
}

// UnlockPair releases locks taken by LockPair.
func UnlockPair(a, b *Node) {
	a.mu.Unlock()
	if a != b {
		b.mu.Unlock()
	}
}

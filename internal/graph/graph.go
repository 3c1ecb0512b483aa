package graph

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/hupe1980/hnswbench/model"
)

const (
	// nodeSegmentBits sizes each node segment (4096 slots).
	// Using segments avoids copying the entire node table during growth.
	nodeSegmentBits = 12
	nodeSegmentSize = 1 << nodeSegmentBits
	nodeSegmentMask = nodeSegmentSize - 1
)

// NodeSegment is a fixed-size array of node pointers.
type NodeSegment [nodeSegmentSize]atomic.Pointer[Node]

// EntryPoint is the node used as the start of every top-down descent.
type EntryPoint struct {
	ID    model.NodeID
	Level int
}

// Layer is the view of one level of the graph: every node whose top level
// is >= Level, each with a neighbor list bounded by Capacity.
type Layer struct {
	g        *Graph
	level    int
	capacity int
	size     atomic.Int64
}

// Level returns the layer's level.
func (l *Layer) Level() int { return l.level }

// Capacity returns the maximum neighbor list length at this level.
func (l *Layer) Capacity() int { return l.capacity }

// Len returns the number of nodes present at this level.
func (l *Layer) Len() int { return int(l.size.Load()) }

// Contains reports whether id is present at this level.
func (l *Layer) Contains(id model.NodeID) bool {
	n := l.g.Node(id)
	return n != nil && n.level >= l.level
}

// Neighbors returns a consistent snapshot of id's neighbors at this level.
func (l *Layer) Neighbors(id model.NodeID) Links {
	n := l.g.Node(id)
	if n == nil {
		return nil
	}
	return n.Links(l.level)
}

// Graph is the multi-layer adjacency structure.
type Graph struct {
	m  int
	m0 int

	nodes   atomic.Pointer[[]*NodeSegment]
	nodesMu sync.Mutex // protects node table growth

	layers   atomic.Pointer[[]*Layer]
	layersMu sync.Mutex // protects layer growth

	entry   atomic.Pointer[EntryPoint]
	entryMu sync.Mutex // serializes entry point changes

	_         cpu.CacheLinePad
	count     atomic.Int64 // published nodes
	_         cpu.CacheLinePad
	watermark atomic.Uint32 // 1 + highest published id
	_         cpu.CacheLinePad
}

// New creates an empty graph with capacities m (levels > 0) and m0 (level 0).
func New(m, m0 int) (*Graph, error) {
	if m <= 0 || m0 <= 0 {
		return nil, fmt.Errorf("graph: capacities must be positive (m=%d, m0=%d)", m, m0)
	}
	g := &Graph{m: m, m0: m0}
	nodes := make([]*NodeSegment, 0, 4)
	g.nodes.Store(&nodes)
	layers := []*Layer{{g: g, level: 0, capacity: m0}}
	g.layers.Store(&layers)
	return g, nil
}

// Capacity returns the neighbor list bound at level.
func (g *Graph) Capacity(level int) int {
	if level == 0 {
		return g.m0
	}
	return g.m
}

// Len returns the number of published nodes.
func (g *Graph) Len() int { return int(g.count.Load()) }

// Watermark returns one past the highest published node id.
func (g *Graph) Watermark() model.NodeID { return model.NodeID(g.watermark.Load()) }

// Layer returns the layer at level, or nil if no node reaches that level.
func (g *Graph) Layer(level int) *Layer {
	layers := *g.layers.Load()
	if level < 0 || level >= len(layers) {
		return nil
	}
	return layers[level]
}

// NumLayers returns the number of non-empty layers.
func (g *Graph) NumLayers() int {
	return len(*g.layers.Load())
}

// Node returns the node record for id, or nil if it is not published.
func (g *Graph) Node(id model.NodeID) *Node {
	nodes := *g.nodes.Load()
	idx := int(id >> nodeSegmentBits)
	if idx >= len(nodes) {
		return nil
	}
	return nodes[idx][id&nodeSegmentMask].Load()
}

// Publish creates the record for id at the given top level with empty
// neighbor lists and makes it visible to readers.
func (g *Graph) Publish(id model.NodeID, level int) (*Node, error) {
	if level < 0 {
		return nil, fmt.Errorf("graph: invalid level %d", level)
	}
	n := newNode(id, level)
	for l := 0; l <= level; l++ {
		n.SetLinks(l, Links{})
	}

	g.ensureLayers(level)
	seg := g.segmentFor(id)
	if !seg[id&nodeSegmentMask].CompareAndSwap(nil, n) {
		return nil, fmt.Errorf("graph: node %d already published", id)
	}

	layers := *g.layers.Load()
	for l := 0; l <= level; l++ {
		layers[l].size.Add(1)
	}
	g.count.Add(1)
	for {
		cur := g.watermark.Load()
		if uint32(id) < cur || g.watermark.CompareAndSwap(cur, uint32(id)+1) {
			break
		}
	}
	return n, nil
}

func (g *Graph) segmentFor(id model.NodeID) *NodeSegment {
	idx := int(id >> nodeSegmentBits)

	// Fast path: segment exists.
	nodes := *g.nodes.Load()
	if idx < len(nodes) {
		return nodes[idx]
	}

	g.nodesMu.Lock()
	defer g.nodesMu.Unlock()

	nodes = *g.nodes.Load()
	if idx < len(nodes) {
		return nodes[idx]
	}
	grown := make([]*NodeSegment, len(nodes), max(2*len(nodes), idx+1))
	copy(grown, nodes)
	for len(grown) <= idx {
		grown = append(grown, new(NodeSegment))
	}
	g.nodes.Store(&grown)
	return grown[idx]
}

func (g *Graph) ensureLayers(level int) {
	if level < len(*g.layers.Load()) {
		return
	}

	g.layersMu.Lock()
	defer g.layersMu.Unlock()

	layers := *g.layers.Load()
	if level < len(layers) {
		return
	}
	grown := make([]*Layer, len(layers), level+1)
	copy(grown, layers)
	for l := len(layers); l <= level; l++ {
		grown = append(grown, &Layer{g: g, level: l, capacity: g.Capacity(l)})
	}
	g.layers.Store(&grown)
}

// Entry returns the current entry point.
func (g *Graph) Entry() (EntryPoint, bool) {
	ep := g.entry.Load()
	if ep == nil {
		return EntryPoint{}, false
	}
	return *ep, true
}

// MaxLevel returns the level of the entry point, or -1 for an empty graph.
func (g *Graph) MaxLevel() int {
	if ep := g.entry.Load(); ep != nil {
		return ep.Level
	}
	return -1
}

// InitEntry makes n the entry point if the graph has none yet.
// It reports whether n became the entry point.
func (g *Graph) InitEntry(n *Node) bool {
	g.entryMu.Lock()
	defer g.entryMu.Unlock()

	if g.entry.Load() != nil {
		return false
	}
	g.entry.Store(&EntryPoint{ID: n.id, Level: n.level})
	return true
}

// PromoteEntry makes n the entry point if its level exceeds the current
// maximum. It reports whether the entry point changed.
func (g *Graph) PromoteEntry(n *Node) bool {
	g.entryMu.Lock()
	defer g.entryMu.Unlock()

	cur := g.entry.Load()
	if cur != nil && n.level <= cur.Level {
		return false
	}
	g.entry.Store(&EntryPoint{ID: n.id, Level: n.level})
	return true
}

// ForEach calls fn for every published node in ascending id order until fn
// returns false.
func (g *Graph) ForEach(fn func(n *Node) bool) {
	end := g.Watermark()
	for id := model.NodeID(0); id < end; id++ {
		if n := g.Node(id); n != nil {
			if !fn(n) {
				return
			}
		}
	}
}

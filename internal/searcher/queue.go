package searcher

import (
	"github.com/hupe1980/hnswbench/model"
)

// PriorityQueueItem represents an item in the priority queue.
type PriorityQueueItem struct {
	Node     model.NodeID // Node is the graph node the distance belongs to.
	Distance float64      // Distance is the priority of the item in the queue.
}

// Before reports whether a ranks strictly ahead of b: smaller distance first,
// ties broken by ascending node id.
func Before(a, b PriorityQueueItem) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Node < b.Node
}

// PriorityQueue implements a binary heap holding PriorityQueueItems.
// It does NOT implement container/heap to avoid interface overhead.
type PriorityQueue struct {
	isMaxHeap bool // true = max heap (worst on top), false = min heap (best on top)
	items     []PriorityQueueItem
}

// NewPriorityQueue creates a new priority queue.
func NewPriorityQueue(isMaxHeap bool) *PriorityQueue {
	return &PriorityQueue{
		isMaxHeap: isMaxHeap,
		items:     make([]PriorityQueueItem, 0, 16),
	}
}

// Reset clears the priority queue for reuse.
func (pq *PriorityQueue) Reset() {
	pq.items = pq.items[:0]
}

// Len returns the number of elements in the heap.
func (pq *PriorityQueue) Len() int {
	return len(pq.items)
}

// TopItem returns the top element of the heap.
func (pq *PriorityQueue) TopItem() (PriorityQueueItem, bool) {
	if len(pq.items) == 0 {
		return PriorityQueueItem{}, false
	}
	return pq.items[0], true
}

// MinItem returns the best-ranked item in the queue.
// This is O(N) for a MaxHeap, but N (ef) is typically small.
func (pq *PriorityQueue) MinItem() (PriorityQueueItem, bool) {
	if len(pq.items) == 0 {
		return PriorityQueueItem{}, false
	}
	if !pq.isMaxHeap {
		return pq.items[0], true
	}
	best := pq.items[0]
	for _, item := range pq.items[1:] {
		if Before(item, best) {
			best = item
		}
	}
	return best, true
}

// PushItem inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) PushItem(item PriorityQueueItem) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// PushItemBounded inserts an item into a max-heap bounded by capacity.
// If the heap is full and the item does not rank ahead of the current worst,
// it is skipped and false is returned.
func (pq *PriorityQueue) PushItemBounded(item PriorityQueueItem, capacity int) bool {
	if len(pq.items) < capacity {
		pq.PushItem(item)
		return true
	}
	if !pq.isMaxHeap || len(pq.items) == 0 {
		return false
	}
	if Before(item, pq.items[0]) {
		pq.items[0] = item
		pq.siftDown(0)
		return true
	}
	return false
}

// PopItem removes and returns the top element from the heap.
func (pq *PriorityQueue) PopItem() (PriorityQueueItem, bool) {
	n := len(pq.items)
	if n == 0 {
		return PriorityQueueItem{}, false
	}

	item := pq.items[0]
	pq.items[0] = pq.items[n-1]
	pq.items = pq.items[:n-1]

	if len(pq.items) > 0 {
		pq.siftDown(0)
	}

	return item, true
}

// DrainSorted empties the queue and appends its items to dst, best first.
func (pq *PriorityQueue) DrainSorted(dst []PriorityQueueItem) []PriorityQueueItem {
	start := len(dst)
	for pq.Len() > 0 {
		item, _ := pq.PopItem()
		dst = append(dst, item)
	}
	if pq.isMaxHeap {
		// Popped worst to best.
		out := dst[start:]
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return dst
}

func (pq *PriorityQueue) less(i, j int) bool {
	if pq.isMaxHeap {
		return Before(pq.items[j], pq.items[i])
	}
	return Before(pq.items[i], pq.items[j])
}

// siftUp moves the element at index i up the heap until the heap invariant is restored.
func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !pq.less(i, parent) {
			break
		}
		pq.items[i], pq.items[parent] = pq.items[parent], pq.items[i]
		i = parent
	}
}

// siftDown moves the element at index i down the heap until the heap invariant is restored.
func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && pq.less(right, left) {
			child = right
		}
		if !pq.less(child, i) {
			break
		}
		pq.items[i], pq.items[child] = pq.items[child], pq.items[i]
		i = child
	}
}

package octree

import (
	"container/heap"
	"math"
)

// entry pairs a node with the weight it was pushed at. Weight is the node's
// bounding-sphere radius; the seed entry for the root uses +Inf so the root
// always pops first.
type entry struct {
	node   Node
	weight float32
	index  int
}

// PriorityQueue is a min-heap keyed on 1/weight, so the largest weight
// (coarsest, largest-radius node) pops first. Duplicate pushes of the same
// node are allowed; callers are responsible for identity dedup across
// reloads.
type PriorityQueue struct {
	items   pqHeap
	counter int
}

// NewPriorityQueue returns an empty queue.
func NewPriorityQueue() *PriorityQueue {
	pq := &PriorityQueue{}
	heap.Init(&pq.items)
	return pq
}

// Push inserts node at the given weight.
func (pq *PriorityQueue) Push(node Node, weight float32) {
	heap.Push(&pq.items, &entry{node: node, weight: weight, index: pq.counter})
	pq.counter++
}

// PushRoot inserts node with the +Inf seed weight so it pops before anything
// else currently or later in the queue.
func (pq *PriorityQueue) PushRoot(node Node) {
	pq.Push(node, float32(math.Inf(1)))
}

// Pop removes and returns the node with the largest weight. ok is false if
// the queue is empty.
func (pq *PriorityQueue) Pop() (node Node, weight float32, ok bool) {
	if pq.items.Len() == 0 {
		return nil, 0, false
	}
	e := heap.Pop(&pq.items).(*entry)
	return e.node, e.weight, true
}

// Len returns the number of pending entries.
func (pq *PriorityQueue) Len() int {
	return pq.items.Len()
}

// Clear drops every pending entry, used by cancel().
func (pq *PriorityQueue) Clear() {
	pq.items = pqHeap{}
}

// pqHeap implements container/heap.Interface, ordered ascending by 1/weight
// (equivalently: descending by weight). Ties break on insertion order via a
// stable index counter, matching heap's own FIFO-ish behavior for equal
// keys.
type pqHeap []*entry

func (h pqHeap) Len() int { return len(h) }

func (h pqHeap) Less(i, j int) bool {
	wi, wj := h[i].weight, h[j].weight
	if wi == wj {
		return h[i].index < h[j].index
	}
	// Larger weight should sort first, i.e. smaller 1/weight.
	return wi > wj
}

func (h pqHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *pqHeap) Push(x any) {
	*h = append(*h, x.(*entry))
}

func (h *pqHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

package routing

import "math"

// pqItem is a priority queue entry keyed by g+h cost in kilometers.
type pqItem struct {
	node     int
	priority float64
	seq      int // insertion order, used to break cost ties deterministically
}

// minHeap is a concrete-typed min-heap for the A* open set, avoiding the
// interface-boxing overhead of container/heap — grounded on the teacher's
// MinHeap for CH Dijkstra, generalized from uint32 millimeter weights to
// float64 kilometer costs and a single priority queue instead of a fwd/bwd
// pair.
type minHeap struct {
	items []pqItem
}

func (h *minHeap) Len() int { return len(h.items) }

func (h *minHeap) Push(node int, priority float64, seq int) {
	h.items = append(h.items, pqItem{node: node, priority: priority, seq: seq})
	h.siftUp(len(h.items) - 1)
}

func (h *minHeap) Pop() pqItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *minHeap) PeekPriority() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].priority
}

func (h *minHeap) less(i, j int) bool {
	if h.items[i].priority != h.items[j].priority {
		return h.items[i].priority < h.items[j].priority
	}
	return h.items[i].seq < h.items[j].seq
}

func (h *minHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *minHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

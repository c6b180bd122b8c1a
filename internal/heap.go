package internal

// Heap is a height-bucketed drain queue: a propagation dispatcher visits
// every dirty node exactly once per drain, in ascending height order, so a
// diamond dependency (two paths converging on one node) never recomputes its
// sink twice. Adapted from AnatoleLucet-sig/internal/heap.go — the part of
// the teacher that the functional sig/ subpackage lacked (see DESIGN.md,
// "Observed teacher bug").
type Heap struct {
	min, max int
	buckets  []*heapItem
}

type heapItem struct {
	node *Node
	next *heapItem
	prev *heapItem
}

const defaultHeapHeight = 256

func NewHeap() *Heap {
	return &Heap{buckets: make([]*heapItem, defaultHeapHeight)}
}

func (h *Heap) growTo(height int) {
	if height < len(h.buckets) {
		return
	}
	next := make([]*heapItem, height*2+1)
	copy(next, h.buckets)
	h.buckets = next
}

// Insert schedules node for processing. Re-inserting a node already queued
// in this drain is a no-op, which is what bounds each node to a single visit
// per drain regardless of how many converging paths dirty it.
func (h *Heap) Insert(node *Node) {
	if node.HasFlag(FlagInHeap) {
		return
	}
	node.AddFlag(FlagInHeap)

	h.growTo(node.Height)
	item := &heapItem{node: node}

	head := h.buckets[node.Height]
	if head == nil {
		h.buckets[node.Height] = item
		item.prev = item
		item.next = nil
	} else {
		tail := head.prev
		tail.next = item
		item.prev = tail
		item.next = nil
		head.prev = item
	}

	if node.Height > h.max {
		h.max = node.Height
	}
}

// InsertAll schedules every node in seq.
func (h *Heap) InsertAll(seq func(func(*Node) bool)) {
	seq(func(n *Node) bool {
		h.Insert(n)
		return true
	})
}

func (h *Heap) remove(height int, item *heapItem) {
	head := h.buckets[height]
	if item.prev == item {
		h.buckets[height] = nil
	} else {
		if item == head {
			h.buckets[height] = item.next
		} else {
			item.prev.next = item.next
		}
		if item.next != nil {
			item.next.prev = item.prev
		} else {
			h.buckets[height].prev = item.prev
		}
	}
	item.prev, item.next = nil, nil
}

// Drain processes every queued node in ascending height order, calling
// process for each. process may itself call Insert (e.g. to schedule a
// node's subscribers once it changes); newly inserted nodes at a height
// still to be visited are picked up in the same pass. Draining terminates
// because every node can only be re-queued after being removed, and height
// strictly increases along any dependency edge, so there is no cycle to
// loop forever on.
func (h *Heap) Drain(process func(*Node)) {
	for h.min = 0; h.min <= h.max; h.min++ {
		for {
			item := h.buckets[h.min]
			if item == nil {
				break
			}
			h.remove(h.min, item)
			item.node.RemoveFlag(FlagInHeap)
			process(item.node)
		}
	}
	h.max = 0
}

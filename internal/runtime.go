package internal

import "sync"

// Runtime is the single process-wide batching controller and propagation
// dispatcher (spec §4.2, §4.4). Unlike AnatoleLucet-sig/internal/runtime.go,
// which keys one Runtime per goroutine via petermattis/goid, this engine
// keeps exactly one Runtime behind a mutex: spec §4.2 calls the batching
// controller's reentrancy counter "process-wide", and a per-goroutine
// runtime would let two goroutines observe divergent batch states for the
// same signal, which spec §5 rules out ("the engine assumes a single
// process-wide... counter").
type Runtime struct {
	mu sync.Mutex

	depth   int
	pending []*Node

	heap  *Heap
	clock uint64
	ids   uint64

	draining bool
}

var global = NewRuntime()

// Global returns the single process-wide runtime instance.
func Global() *Runtime { return global }

func NewRuntime() *Runtime {
	return &Runtime{heap: NewHeap()}
}

// NextID returns a monotonically increasing identity, never reused (spec §3:
// "Identity is assigned at construction and never reused").
func (r *Runtime) NextID() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids++
	return r.ids
}

// Tick returns the current logical clock, used to version-stamp nodes.
func (r *Runtime) Tick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock
}

// Batch opens a reentrant batch, running fn, and drains pending propagation
// only when the outermost batch exits (spec §4.2). Writes made directly
// (outside an explicit Batch call) implicitly open and close their own
// single-write batch — see ScheduleWrite.
func (r *Runtime) Batch(fn func()) {
	r.mu.Lock()
	r.depth++
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.depth--
		depth := r.depth
		r.mu.Unlock()

		if depth == 0 {
			r.drain()
		}
	}()

	fn()
}

// ScheduleWrite marks node dirty for propagation. If no batch is open, it
// opens and closes an implicit single-write batch so the write is visible
// to subscribers before ScheduleWrite returns (spec §4.5: "auto-opens a
// batch... and auto-closes on return").
func (r *Runtime) ScheduleWrite(node *Node) {
	r.mu.Lock()
	inBatch := r.depth > 0
	if !node.HasFlag(FlagQueued) {
		node.AddFlag(FlagQueued)
		r.pending = append(r.pending, node)
	}
	r.mu.Unlock()

	if !inBatch {
		r.drain()
	}
}

// IsBatching reports whether a batch is currently open anywhere in the
// process: the depth counter is shared by all goroutines.
func (r *Runtime) IsBatching() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.depth > 0
}

const maxDrainIterations = 100000

// drain repeatedly processes the pending queue and the resulting dirty-node
// heap until both are empty, so a computed cell writing to a mutable cell
// mid-evaluation joins the current drain instead of being lost or
// recursing unboundedly (spec §4.4 tie-breaks, I6).
func (r *Runtime) drain() {
	r.mu.Lock()
	if r.draining {
		// A nested call reached here via a re-entrant write observed from
		// inside process(); the outer drain loop will pick it up.
		r.mu.Unlock()
		return
	}
	r.draining = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.draining = false
		r.mu.Unlock()
	}()

	for iterations := 0; ; iterations++ {
		r.mu.Lock()
		pending := r.pending
		r.pending = nil
		if len(pending) > 0 {
			r.clock++
		}
		r.mu.Unlock()

		if len(pending) == 0 {
			return
		}
		if iterations > maxDrainIterations {
			return
		}

		for _, n := range pending {
			n.RemoveFlag(FlagQueued)
			n.Version = r.clock
			if n.Notify != nil {
				n.Notify()
			}
			r.heap.InsertAll(n.Subs())
		}

		r.heap.Drain(func(n *Node) {
			if n.Disposed || n.Recompute == nil {
				return
			}
			n.Version = r.clock
			if n.Recompute() {
				r.heap.InsertAll(n.Subs())
			}
		})
	}
}

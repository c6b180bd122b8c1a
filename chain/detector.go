// Package chain implements the chain-reaction detector (spec §4.9): it
// observes signal:change events and assembles contiguous propagation
// chains bounded by a zero-delay timer, the Go analogue of a zero-delay
// timer boundary (time.AfterFunc(0, ...)) since the runtime has no
// microtask queue to hook into deterministically (see DESIGN.md).
package chain

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/flowgraph/reactive/observer"
)

const maxOccurrences = 100

// Occurrence is one completed firing of a chain (spec §4.9).
type Occurrence struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
	Status   string
}

// Chain is a coalesced propagation path: a sequence of signal identities
// observed to change contiguously, with its async members and its
// bounded occurrence history (spec §4.9).
type Chain struct {
	Path         []uint64
	AsyncSignals map[uint64]bool
	Occurrences  []Occurrence
}

// asyncValuer is satisfied by reactive.Loadable[T], the engine's thenable
// rendering — a signal whose last observed value implements it counts as
// "async" for chain bookkeeping (spec §4.9: "an async signal is one whose
// last observed value satisfies the thenable predicate").
type asyncValuer interface {
	IsLoading() bool
}

func isAsyncValue(v any) bool {
	_, ok := v.(asyncValuer)
	return ok
}

type pending struct {
	ids   []uint64
	async map[uint64]bool
	start time.Time
	end   time.Time
}

// Detector assembles and persists propagation chains. It installs itself
// as the process-wide observer sink while enabled (spec §9 Open Question
// #1: single sink, last-writer-wins — the same constraint that governs
// every observer.SetHooks caller).
type Detector struct {
	mu      sync.Mutex
	enabled bool
	cur     *pending
	timer   *time.Timer

	chains map[string]*Chain
	order  []string

	// afterFunc lets tests substitute a synchronous/fake boundary instead
	// of a real timer.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// New constructs a disabled Detector.
func New() *Detector {
	return &Detector{
		chains:    map[string]*Chain{},
		afterFunc: time.AfterFunc,
	}
}

// Enable installs the detector as the observer sink.
func (d *Detector) Enable() {
	d.mu.Lock()
	if d.enabled {
		d.mu.Unlock()
		return
	}
	d.enabled = true
	d.mu.Unlock()

	observer.SetHooks(&observer.Hooks{OnSignalChange: d.onChange})
}

// Disable removes the detector as the observer sink, flushing any
// in-flight chain immediately.
func (d *Detector) Disable() {
	d.mu.Lock()
	if !d.enabled {
		d.mu.Unlock()
		return
	}
	d.enabled = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.finalize()
	observer.SetHooks(nil)
}

func (d *Detector) onChange(e observer.Event) {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cur == nil {
		d.cur = &pending{async: map[uint64]bool{}, start: e.Timestamp}
	}
	d.cur.ids = append(d.cur.ids, e.ID)
	if isAsyncValue(e.Value) {
		d.cur.async[e.ID] = true
	}
	d.cur.end = e.Timestamp
	d.timer = d.afterFunc(0, d.finalize)
	d.mu.Unlock()
}

func (d *Detector) finalize() {
	d.mu.Lock()
	defer d.mu.Unlock()

	cur := d.cur
	d.cur = nil
	d.timer = nil
	if cur == nil || len(cur.ids) < 2 {
		return
	}

	path := append([]uint64(nil), cur.ids...)
	key := pathHash(path)
	c, ok := d.chains[key]
	if !ok {
		c = &Chain{Path: path, AsyncSignals: map[uint64]bool{}}
		d.chains[key] = c
		d.order = append(d.order, key)
	}
	for id := range cur.async {
		c.AsyncSignals[id] = true
	}

	c.Occurrences = append(c.Occurrences, Occurrence{
		Start:    cur.start,
		End:      cur.end,
		Duration: cur.end.Sub(cur.start),
		Status:   "complete",
	})
	if len(c.Occurrences) > maxOccurrences {
		c.Occurrences = c.Occurrences[len(c.Occurrences)-maxOccurrences:]
	}
}

// pathHash coalesces identical id sequences to the same key (spec §4.9:
// "identical paths are coalesced by a path hash").
func pathHash(path []uint64) string {
	h := fnv.New64a()
	for _, id := range path {
		h.Write([]byte(strconv.FormatUint(id, 10)))
		h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Chains returns a snapshot of every chain observed so far, in first-seen
// order.
func (d *Detector) Chains() []Chain {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Chain, 0, len(d.order))
	for _, key := range d.order {
		c := d.chains[key]
		cp := Chain{
			Path:         append([]uint64(nil), c.Path...),
			AsyncSignals: make(map[uint64]bool, len(c.AsyncSignals)),
			Occurrences:  append([]Occurrence(nil), c.Occurrences...),
		}
		for id, v := range c.AsyncSignals {
			cp.AsyncSignals[id] = v
		}
		out = append(out, cp)
	}
	return out
}

// Package observer implements the engine's devtools hook surface (spec
// §4.8): a single process-wide sink that receives an ordered sequence of
// signal/tag lifecycle events, plus the signals/tags registries and a
// bounded replay cache that let a late-installed sink catch up.
package observer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

// EventKind names one of the event stream's members (spec §4.8).
type EventKind string

const (
	EventSignalCreate   EventKind = "signal:create"
	EventSignalChange   EventKind = "signal:change"
	EventSignalError    EventKind = "signal:error"
	EventSignalDispose  EventKind = "signal:dispose"
	EventSignalRename   EventKind = "signal:rename"
	EventSignalsForget  EventKind = "signals:forget"
	EventTagCreate      EventKind = "tag:create"
	EventTagAdd         EventKind = "tag:add"
	EventTagRemove      EventKind = "tag:remove"
	// EventRuntimePanic is this module's slot for the browser-hosted
	// engine's window:error/window:unhandledrejection events: a panic
	// that isn't attributed to a specific cell's error slot. It is
	// dispatched to OnRuntimePanic like any other kind, but nothing in
	// this module emits it; a panic inside a goroutine started by Go is
	// not recovered.
	EventRuntimePanic EventKind = "runtime:panic"
)

// CellKind distinguishes a mutable signal from a computed one in a
// signal:create event.
type CellKind string

const (
	CellMutable  CellKind = "mutable"
	CellComputed CellKind = "computed"
)

// Event is one entry in the observer stream. Fields not relevant to Kind are
// left zero.
type Event struct {
	Kind      EventKind
	ID        uint64
	Name      string
	CellKind  CellKind
	Value     any
	Err       error
	Tag       string
	Timestamp time.Time
	// Goroutine is the id of the goroutine that produced this event,
	// stamped via github.com/petermattis/goid — the engine's one genuine
	// third-party runtime dependency, repurposed here for concurrent
	// provenance now that the propagation engine itself no longer needs
	// per-goroutine runtime isolation (see DESIGN.md).
	Goroutine int64
}

// Hooks is the devtools callback surface (spec §4.8, §6 Surface C). Any
// field may be nil.
type Hooks struct {
	OnSignalCreate  func(Event)
	OnSignalChange  func(Event)
	OnSignalError   func(Event)
	OnSignalDispose func(Event)
	OnSignalRename  func(Event)
	OnSignalsForget func(Event)
	OnTagCreate     func(Event)
	OnTagAdd        func(Event)
	OnTagRemove     func(Event)
	OnRuntimePanic  func(Event)
}

var (
	mu      sync.Mutex
	hooks   *Hooks
	enabled atomic.Bool
)

// SetHooks installs h as the single process-wide sink, replacing any prior
// sink (spec §9 Open Question: fan-out is not supported — last writer
// wins). Passing nil uninstalls the sink. Installing a sink immediately
// replays the bounded event cache to it, in time order (spec §4.8, §6).
func SetHooks(h *Hooks) {
	mu.Lock()
	hooks = h
	enabled.Store(h != nil)
	replay := registrySnapshotEvents()
	mu.Unlock()

	if h == nil {
		return
	}
	for _, e := range replay {
		dispatch(h, e)
	}
}

// Enabled reports whether a sink is currently installed, as a single atomic
// read. The cell types in package reactive do not consult it: they call Emit
// unconditionally, so the registries are kept up to date with or without a
// sink.
func Enabled() bool { return enabled.Load() }

// Emit records e into the registries/replay cache and, if a sink is
// installed, dispatches it. It is a cheap no-op when no sink is installed
// beyond the registry bookkeeping needed for a future SetHooks replay —
// callers that want to skip even that should guard with Enabled() first.
func Emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Goroutine == 0 {
		e.Goroutine = goid.Get()
	}

	mu.Lock()
	recordLocked(e)
	h := hooks
	mu.Unlock()

	if h != nil {
		dispatch(h, e)
	}
}

func dispatch(h *Hooks, e Event) {
	var cb func(Event)
	switch e.Kind {
	case EventSignalCreate:
		cb = h.OnSignalCreate
	case EventSignalChange:
		cb = h.OnSignalChange
	case EventSignalError:
		cb = h.OnSignalError
	case EventSignalDispose:
		cb = h.OnSignalDispose
	case EventSignalRename:
		cb = h.OnSignalRename
	case EventSignalsForget:
		cb = h.OnSignalsForget
	case EventTagCreate:
		cb = h.OnTagCreate
	case EventTagAdd:
		cb = h.OnTagAdd
	case EventTagRemove:
		cb = h.OnTagRemove
	case EventRuntimePanic:
		cb = h.OnRuntimePanic
	}
	if cb == nil {
		return
	}
	// A listener panicking must not prevent other observer work (spec §7,
	// PropagationError).
	defer func() { recover() }()
	cb(e)
}

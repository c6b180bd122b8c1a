package reactive

import (
	"fmt"
	"sync"

	"github.com/flowgraph/reactive/internal"
	"github.com/flowgraph/reactive/observer"
)

// Focus is a bidirectional lens onto a Signal[S]'s value (spec §4.7).
// Go has no dynamic property-path traversal, so — per the Open Question
// decision recorded in DESIGN.md — a Focus is built from an explicit
// getter/setter pair plus a path string kept only for the canonical
// `focus(parent.path)` display name the graph builder parses (spec
// §4.10).
type Focus[S, T any] struct {
	n internal.Node

	mu     sync.Mutex
	source *Signal[S]
	path   string
	get    func(S) T
	set    func(S, T) S
	equal  Resolver[T]
	name   string

	value    T
	updating bool
	unsub    Unsubscribe

	subs   map[uint64]func(T)
	nextID uint64
}

// NewFocus constructs a Focus lens over source at the given path, using
// get/set to project into and reconstruct the source's value (spec
// §4.7). It subscribes to source and installs the reentrancy guard that
// prevents a focus-originated write from recursing back through its own
// source subscription.
func NewFocus[S, T any](source *Signal[S], path string, get func(S) T, set func(S, T) S, opts ...SignalOptions[T]) *Focus[S, T] {
	var o SignalOptions[T]
	if len(opts) > 0 {
		o = opts[0]
	}
	f := &Focus[S, T]{
		source: source,
		path:   path,
		get:    get,
		set:    set,
		equal:  resolveEquality(o.EqualTag, o.Equal),
		subs:   make(map[uint64]func(T)),
	}
	f.name = o.Name
	if f.name == "" {
		f.name = fmt.Sprintf("focus(%s.%s)", source.displayName(), path)
	}
	f.value = get(source.Get())

	f.n = *internal.NewNode(internal.KindComputed, internal.Global().NextID())
	f.n.Link(source.node())
	f.n.Notify = f.fireChange

	f.unsub = source.On(func(v S) {
		f.mu.Lock()
		if f.updating || f.n.Disposed {
			f.mu.Unlock()
			return
		}
		next := f.get(v)
		if f.equal(f.value, next) {
			f.mu.Unlock()
			return
		}
		f.value = next
		f.mu.Unlock()

		internal.Global().ScheduleWrite(&f.n)
	})

	observer.Emit(observer.Event{
		Kind:     observer.EventSignalCreate,
		ID:       f.n.ID,
		Name:     f.name,
		CellKind: observer.CellComputed,
	})
	return f
}

func (f *Focus[S, T]) node() *internal.Node { return &f.n }

func (f *Focus[S, T]) displayName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name
}

func (f *Focus[S, T]) readRaw() (any, error) { return f.Get(), nil }

// Get returns the value currently projected from the source (spec §4.7:
// "reading yields the value at path within the source").
func (f *Focus[S, T]) Get() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// TryGet aliases Get for AnySignal-shaped call sites.
func (f *Focus[S, T]) TryGet() T { return f.Get() }

// Err always returns nil: a focus surfaces no error state of its own
// (errors belong to the source, if any).
func (f *Focus[S, T]) Err() error { return nil }

// Set writes v through the lens: it reconstructs the source's value with
// path replaced by v (via the caller-supplied set function) and applies
// that to the source, guarding against the resulting source notification
// recursing back into this method (spec §4.7). As with Signal.Set, the
// listener/observer notification is deferred to the enclosing batch's
// drain (spec §4.5).
func (f *Focus[S, T]) Set(v T) {
	f.mu.Lock()
	if f.n.Disposed {
		f.mu.Unlock()
		return
	}
	if f.equal(f.value, v) {
		f.mu.Unlock()
		return
	}
	f.value = v
	f.updating = true
	f.mu.Unlock()

	root := f.source.Get()
	f.source.Set(f.set(root, v))

	f.mu.Lock()
	f.updating = false
	f.mu.Unlock()

	internal.Global().ScheduleWrite(&f.n)
}

// fireChange is installed as the node's Notify hook (spec §4.5).
func (f *Focus[S, T]) fireChange() {
	f.mu.Lock()
	value := f.value
	name := f.name
	callbacks := f.snapshotSubs()
	f.mu.Unlock()

	observer.Emit(observer.Event{Kind: observer.EventSignalChange, ID: f.n.ID, Name: name, Value: value})
	f.notify(callbacks, value)
}

// Update applies fn to the current projected value and writes the result
// through Set.
func (f *Focus[S, T]) Update(fn func(T) T) {
	f.Set(fn(f.Get()))
}

// On registers a low-level change listener.
func (f *Focus[S, T]) On(listener func(T)) Unsubscribe {
	f.mu.Lock()
	if f.n.Disposed {
		f.mu.Unlock()
		return func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = listener
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

// Dispose unsubscribes from the source and marks this lens disposed.
func (f *Focus[S, T]) Dispose() {
	f.mu.Lock()
	if f.n.Disposed {
		f.mu.Unlock()
		return
	}
	f.n.Disposed = true
	f.mu.Unlock()

	f.unsub()
	f.n.ClearDeps()
	observer.Emit(observer.Event{Kind: observer.EventSignalDispose, ID: f.n.ID, Name: f.displayName()})
}

func (f *Focus[S, T]) snapshotSubs() []func(T) {
	cbs := make([]func(T), 0, len(f.subs))
	for _, fn := range f.subs {
		cbs = append(cbs, fn)
	}
	return cbs
}

func (f *Focus[S, T]) notify(callbacks []func(T), value T) {
	for _, fn := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					observer.Emit(observer.Event{
						Kind: observer.EventSignalError,
						ID:   f.n.ID,
						Name: f.displayName(),
						Err:  newError(KindPropagation, f.displayName(), panicToError(r)),
					})
				}
			}()
			fn(value)
		}()
	}
}

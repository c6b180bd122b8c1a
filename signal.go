package reactive

import (
	"encoding/json"
	"sync"

	"github.com/flowgraph/reactive/internal"
	"github.com/flowgraph/reactive/observer"
)

// Unsubscribe removes a previously registered listener (spec §6, Surface B).
type Unsubscribe func()

// SignalOptions configures a mutable Signal[T], grounded on
// coregx-signals/options.go's struct-options shape.
type SignalOptions[T any] struct {
	Equal    Resolver[T]
	EqualTag EqualityTag
	Name     string
}

// Signal is a mutable value cell (spec §3, §4.5).
type Signal[T any] struct {
	n internal.Node

	mu       sync.RWMutex
	value    T
	initial  T
	lazyInit func() T

	equal Resolver[T]
	name  string

	subs   map[uint64]func(T)
	nextID uint64
}

// Mutable constructs a mutable cell holding value, per spec §6 Surface A's
// value-first constructor form.
func Mutable[T any](value T, opts ...SignalOptions[T]) *Signal[T] {
	s := newSignal(opts...)
	s.value = value
	s.initial = value
	return s
}

// MutableLazy constructs a mutable cell whose initial value is computed by
// init on first construction (spec §6 Surface A's lazy-first form).
func MutableLazy[T any](init func() T, opts ...SignalOptions[T]) *Signal[T] {
	s := newSignal(opts...)
	v := init()
	s.value = v
	s.initial = v
	s.lazyInit = init
	return s
}

func newSignal[T any](opts ...SignalOptions[T]) *Signal[T] {
	var o SignalOptions[T]
	if len(opts) > 0 {
		o = opts[0]
	}
	s := &Signal[T]{
		equal: resolveEquality(o.EqualTag, o.Equal),
		name:  o.Name,
		subs:  make(map[uint64]func(T)),
	}
	s.n = *internal.NewNode(internal.KindMutable, internal.Global().NextID())
	s.n.Notify = s.fireChange
	observer.Emit(observer.Event{
		Kind:     observer.EventSignalCreate,
		ID:       s.n.ID,
		Name:     s.name,
		CellKind: observer.CellMutable,
	})
	return s
}

func (s *Signal[T]) node() *internal.Node { return &s.n }

func (s *Signal[T]) displayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *Signal[T]) readRaw() (any, error) {
	return s.Get(), nil
}

// Get returns the current value. Reading through Get does not itself record
// a dependency — only Dep(ctx, key) inside a computed's evaluation does
// (spec §4.5: "the proxy, not get directly, handles tracking").
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// TryGet returns the current value; for a mutable signal this never
// differs from Get since mutable cells hold no pending/errored state
// (spec §6 Surface B).
func (s *Signal[T]) TryGet() T { return s.Get() }

// Set stores value if it differs from the current value under the
// configured equality resolver, bumping the version and scheduling
// propagation (spec §4.5). Set is a no-op on a disposed cell (spec §7,
// DisposedAccess). The new value is visible to Get immediately (mutations
// apply in call order, spec §5), but On listeners and the signal:change
// observer event are deferred until the enclosing batch drains, so that
// several writes to the same cell inside one batch coalesce into a single
// notification carrying the last-written value (spec §4.4 tie-breaks,
// scenario 5).
func (s *Signal[T]) Set(value T) {
	s.mu.Lock()
	if s.n.Disposed {
		s.mu.Unlock()
		return
	}
	if s.equal(s.value, value) {
		s.mu.Unlock()
		return
	}
	s.value = value
	s.mu.Unlock()

	internal.Global().ScheduleWrite(&s.n)
}

// fireChange is installed as the node's Notify hook: it fires once per
// batch drain that touched this cell, reading whatever value is current at
// drain time (spec §4.5).
func (s *Signal[T]) fireChange() {
	s.mu.RLock()
	value := s.value
	name := s.name
	callbacks := s.snapshotSubs()
	s.mu.RUnlock()

	observer.Emit(observer.Event{Kind: observer.EventSignalChange, ID: s.n.ID, Name: name, Value: value})
	s.notify(callbacks, value)
}

// Update evaluates fn against the current value and applies the result via
// Set, matching spec §4.5's updater-function overload of set().
func (s *Signal[T]) Update(fn func(T) T) {
	s.mu.RLock()
	next := fn(s.value)
	s.mu.RUnlock()
	s.Set(next)
}

// Reset restores the value captured at construction (or recomputed by the
// lazy initializer, if one was supplied), equality-checked like Set (spec
// §4.5).
func (s *Signal[T]) Reset() {
	if s.lazyInit != nil {
		s.Set(s.lazyInit())
		return
	}
	s.Set(s.initial)
}

// On registers a low-level change listener, fired once per observable
// version change after a batch drains (spec §4.5). The returned
// Unsubscribe is idempotent.
func (s *Signal[T]) On(listener func(T)) Unsubscribe {
	s.mu.Lock()
	if s.n.Disposed {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = listener
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Err always returns nil for a mutable signal: mutable cells never hold an
// error state (spec §3's error slot is exclusive to computed/async cells).
func (s *Signal[T]) Err() error { return nil }

// Dispose marks the cell disposed; subsequent Set calls become no-ops and On
// returns a no-op unsubscribe (spec §7, DisposedAccess). Disposal is
// idempotent (spec §3).
func (s *Signal[T]) Dispose() {
	s.mu.Lock()
	if s.n.Disposed {
		s.mu.Unlock()
		return
	}
	s.n.Disposed = true
	s.mu.Unlock()

	observer.Emit(observer.Event{Kind: observer.EventSignalDispose, ID: s.n.ID, Name: s.displayName()})
}

// Rename updates the signal's display name without changing its identity
// (spec §4.8).
func (s *Signal[T]) Rename(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
	observer.Emit(observer.Event{Kind: observer.EventSignalRename, ID: s.n.ID, Name: name})
}

// MarshalJSON coerces the signal to its current value (spec §6 Surface B).
func (s *Signal[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Get())
}

func (s *Signal[T]) snapshotSubs() []func(T) {
	cbs := make([]func(T), 0, len(s.subs))
	for _, fn := range s.subs {
		cbs = append(cbs, fn)
	}
	return cbs
}

func (s *Signal[T]) notify(callbacks []func(T), value T) {
	for _, fn := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					observer.Emit(observer.Event{
						Kind: observer.EventSignalError,
						ID:   s.n.ID,
						Name: s.displayName(),
						Err:  newError(KindPropagation, s.displayName(), panicToError(r)),
					})
				}
			}()
			fn(value)
		}()
	}
}

package reactive

import "sync"

// Status is the Loadable discriminator (spec §3).
type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "loading"
	}
}

// Promise is the Go stand-in for a JS thenable: a value that resolves
// exactly once, observable from any number of callers. Go settles it on a
// background goroutine; Resolved and Rejected return one already settled. Go can genuinely block a goroutine on Await, so unlike the
// source engine there is no need for a microtask-scheduled resolution
// callback — see SPEC_FULL.md §4.11 ("wait's dual mode").
type Promise[T any] struct {
	done chan struct{}

	mu       sync.Mutex
	value    T
	err      error
	resolved bool

	loadable *Loadable[T]
}

// Go launches fn on a new goroutine and returns a Promise that settles with
// its result.
func Go[T any](fn func() (T, error)) *Promise[T] {
	p := &Promise[T]{done: make(chan struct{})}
	go func() {
		v, err := fn()
		p.settle(v, err)
	}()
	return p
}

// Resolved returns an already-settled Promise, useful for synthesizing a
// promise from a value already in hand (spec §3: "promise synthesized if
// absent").
func Resolved[T any](v T) *Promise[T] {
	p := &Promise[T]{done: make(chan struct{})}
	p.settle(v, nil)
	return p
}

// Rejected returns an already-settled, errored Promise.
func Rejected[T any](err error) *Promise[T] {
	p := &Promise[T]{done: make(chan struct{})}
	var zero T
	p.settle(zero, err)
	return p
}

func (p *Promise[T]) settle(v T, err error) {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return
	}
	p.value, p.err, p.resolved = v, err, true
	p.mu.Unlock()
	close(p.done)
}

// Done returns a channel closed once the promise settles.
func (p *Promise[T]) Done() <-chan struct{} { return p.done }

// Await blocks until the promise settles and returns its result.
func (p *Promise[T]) Await() (T, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}

// TryResult returns the settled value without blocking, if available.
func (p *Promise[T]) TryResult() (T, error, bool) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.value, p.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Loadable is a tagged snapshot of an async value's state (spec §3).
type Loadable[T any] struct {
	Status Status
	value  T
	err    error

	promise *Promise[T]
}

// Loading builds a Loadable[T] in the loading state backed by p.
func Loading[T any](p *Promise[T]) Loadable[T] {
	return Loadable[T]{Status: StatusLoading, promise: p}
}

// Success builds a Loadable[T] already holding v.
func Success[T any](v T) Loadable[T] {
	return Loadable[T]{Status: StatusSuccess, value: v, promise: Resolved(v)}
}

// Failure builds a Loadable[T] already holding err.
func Failure[T any](err error) Loadable[T] {
	return Loadable[T]{Status: StatusError, err: err, promise: Rejected[T](err)}
}

// IsLoading mirrors the convenience boolean from spec §3.
func (l Loadable[T]) IsLoading() bool { return l.Status == StatusLoading }

// Value returns the held value and whether the loadable is in success
// state (the invariant-safe way to read it, vs a raw type assertion).
func (l Loadable[T]) Value() (T, bool) {
	return l.value, l.Status == StatusSuccess
}

// Error returns the held error and whether the loadable is in error state.
func (l Loadable[T]) Error() (error, bool) {
	return l.err, l.Status == StatusError
}

// Promise returns the backing promise, synthesizing one from the current
// value/error if the loadable was built directly (success/error invariant
// in spec §3: "promise synthesized if absent").
func (l Loadable[T]) Promise() *Promise[T] {
	if l.promise != nil {
		return l.promise
	}
	switch l.Status {
	case StatusSuccess:
		return Resolved(l.value)
	case StatusError:
		return Rejected[T](l.err)
	default:
		return Resolved(l.value)
	}
}

// LoadableOf bridges a Promise to a Loadable. The same promise identity
// always yields the same *Loadable[T] pointer (spec §8: "loadable(p) ===
// loadable(p) for the same p identity"); its fields are refreshed in place
// each call so a loadable obtained before settlement still reflects the
// eventual success/error once the promise resolves.
func LoadableOf[T any](p *Promise[T]) *Loadable[T] {
	p.mu.Lock()
	if p.loadable == nil {
		p.loadable = &Loadable[T]{Status: StatusLoading, promise: p}
	}
	l := p.loadable
	p.mu.Unlock()

	select {
	case <-p.done:
		p.mu.Lock()
		v, err := p.value, p.err
		if err != nil {
			l.Status, l.err = StatusError, err
		} else {
			l.Status, l.value = StatusSuccess, v
		}
		p.mu.Unlock()
	default:
	}
	return l
}

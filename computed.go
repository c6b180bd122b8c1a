package reactive

import (
	"sync"

	"github.com/flowgraph/reactive/internal"
	"github.com/flowgraph/reactive/observer"
)

// ComputeFunc is a computed cell's pure evaluation function (spec §4.3,
// §4.6). Dep reads go through ctx, not a closed-over Signal reference, so
// the tracked-dep set can be rebuilt every evaluation.
type ComputeFunc[T any] func(ctx *Context) (T, error)

// ComputedOptions configures a Computed[T], grounded on
// coregx-signals/options.go's struct-options shape and renamed per
// SPEC_FULL.md §4.6 (`fallback`, `onChange`, `onError`).
type ComputedOptions[T any] struct {
	Equal    Resolver[T]
	EqualTag EqualityTag
	Name     string
	Fallback func(error) T
	OnChange func(T)
	OnError  func(error)
}

// Computed is a derived cell: a declared dependency map plus a pure
// compute function, re-evaluated on dependency change or lazily on read
// (spec §3, §4.6).
type Computed[T any] struct {
	n internal.Node

	mu      sync.Mutex
	deps    Deps
	compute ComputeFunc[T]
	equal   Resolver[T]
	name    string

	fallback func(error) T
	onChange func(T)
	onError  func(error)

	ctx       *Context
	evaluated bool
	evalClock uint64
	live      bool
	paused    bool
	dirty     bool

	value T
	err   error

	subs   map[uint64]func(T)
	nextID uint64
}

// NewComputed constructs a computed cell over deps, matching the
// `(deps, compute, options)` constructor shape of spec §4.6/§6 Surface A.
func NewComputed[T any](deps Deps, compute ComputeFunc[T], opts ...ComputedOptions[T]) *Computed[T] {
	var o ComputedOptions[T]
	if len(opts) > 0 {
		o = opts[0]
	}
	c := &Computed[T]{
		deps:     deps,
		compute:  compute,
		equal:    resolveEquality(o.EqualTag, o.Equal),
		name:     o.Name,
		fallback: o.Fallback,
		onChange: o.OnChange,
		onError:  o.OnError,
		subs:     make(map[uint64]func(T)),
	}
	c.n = *internal.NewNode(internal.KindComputed, internal.Global().NextID())
	c.n.Recompute = c.doRecompute
	c.n.OnFirstSub = func() {
		c.mu.Lock()
		c.live = true
		c.mu.Unlock()
	}
	c.n.OnLastUnsub = func() {
		c.mu.Lock()
		c.live = false
		c.mu.Unlock()
	}

	observer.Emit(observer.Event{
		Kind:     observer.EventSignalCreate,
		ID:       c.n.ID,
		Name:     c.name,
		CellKind: observer.CellComputed,
	})
	return c
}

func (c *Computed[T]) node() *internal.Node { return &c.n }

func (c *Computed[T]) displayName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Computed[T]) readRaw() (any, error) { return c.resolve() }

// Get returns the current (possibly freshly recomputed) value, discarding
// any compute error — matching spec §6 Surface B's read-through-get
// convenience. Use Err to inspect the error slot.
func (c *Computed[T]) Get() T {
	v, _ := c.resolve()
	return v
}

// TryGet is Get's alias for AnySignal-shaped call sites.
func (c *Computed[T]) TryGet() T { return c.Get() }

// Err returns the last evaluation's error, if any (spec §3: the error slot
// is mutually exclusive with a successful value).
func (c *Computed[T]) Err() error {
	_, err := c.resolve()
	return err
}

// resolve runs the compute lazily on first read, and again on later reads
// only when the cell has no live subscriber (so nothing has already kept
// it current via push propagation) and the global clock has advanced
// since its last evaluation (spec §4.6: "the compute runs lazily on first
// get"; a live cell's value is already current via Recompute).
func (c *Computed[T]) resolve() (T, error) {
	c.mu.Lock()
	stale := !c.evaluated || (!c.live && c.evalClock != internal.Global().Tick())
	c.mu.Unlock()

	if stale {
		c.doRecompute()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.err
}

// doRecompute is installed as the node's Recompute callback: it re-runs
// compute against a fresh Context, reconciles tracked deps, and reports
// whether the externally observable value changed (spec §4.3, §4.6, I1).
func (c *Computed[T]) doRecompute() bool {
	c.mu.Lock()
	if c.paused {
		c.dirty = true
		c.mu.Unlock()
		return false
	}
	prevCtx := c.ctx
	c.mu.Unlock()

	if prevCtx != nil {
		prevCtx.abort.signal()
		prevCtx.cleanups.drain()
	}
	c.n.ClearDeps()

	ctx := newContext(&c.n, c.deps, c.onError)
	var (
		result T
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = newError(KindCompute, c.name, panicToError(r))
			}
		}()
		result, err = c.compute(ctx)
		if err != nil {
			err = newError(KindCompute, c.name, err)
		}
	}()

	c.mu.Lock()
	wasEvaluated := c.evaluated
	prevVal, prevErr := c.value, c.err

	if err != nil && c.fallback != nil {
		result = c.fallback(err)
		err = nil
	}

	changed := !wasEvaluated ||
		(err != nil) != (prevErr != nil) ||
		(err == nil && !c.equal(prevVal, result))

	c.ctx = ctx
	c.evalClock = internal.Global().Tick()
	c.evaluated = true
	c.dirty = false
	c.value = result
	c.err = err
	name := c.name
	onChange := c.onChange
	callbacks := c.snapshotSubs()
	c.mu.Unlock()

	if err != nil {
		observer.Emit(observer.Event{Kind: observer.EventSignalError, ID: c.n.ID, Name: name, Err: err})
	}
	if changed {
		observer.Emit(observer.Event{Kind: observer.EventSignalChange, ID: c.n.ID, Name: name, Value: result})
		if onChange != nil {
			onChange(result)
		}
		if wasEvaluated {
			c.notify(callbacks, result)
		}
	}
	return changed
}

// Pause suspends re-evaluation on dependency change; a change observed
// while paused only marks the cell dirty (spec §4.6).
func (c *Computed[T]) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume re-enables re-evaluation, immediately recomputing if the cell
// became dirty while paused (spec §4.6).
func (c *Computed[T]) Resume() {
	c.mu.Lock()
	dirty := c.dirty
	c.paused = false
	c.mu.Unlock()
	if dirty {
		c.doRecompute()
	}
}

// On registers a low-level change listener, matching Signal.On's contract.
func (c *Computed[T]) On(listener func(T)) Unsubscribe {
	c.mu.Lock()
	if c.n.Disposed {
		c.mu.Unlock()
		return func() {}
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = listener
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Dispose tears down the cell's tracked-dep links and cleanups, and marks
// it disposed (spec §7, DisposedAccess; I4).
func (c *Computed[T]) Dispose() {
	c.mu.Lock()
	if c.n.Disposed {
		c.mu.Unlock()
		return
	}
	c.n.Disposed = true
	ctx := c.ctx
	name := c.name
	c.mu.Unlock()

	if ctx != nil {
		ctx.abort.signal()
		ctx.cleanups.drain()
	}
	c.n.ClearDeps()

	observer.Emit(observer.Event{Kind: observer.EventSignalDispose, ID: c.n.ID, Name: name})
}

// Rename updates the cell's display name without changing its identity.
func (c *Computed[T]) Rename(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
	observer.Emit(observer.Event{Kind: observer.EventSignalRename, ID: c.n.ID, Name: name})
}

func (c *Computed[T]) snapshotSubs() []func(T) {
	cbs := make([]func(T), 0, len(c.subs))
	for _, fn := range c.subs {
		cbs = append(cbs, fn)
	}
	return cbs
}

func (c *Computed[T]) notify(callbacks []func(T), value T) {
	for _, fn := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					observer.Emit(observer.Event{
						Kind: observer.EventSignalError,
						ID:   c.n.ID,
						Name: c.displayName(),
						Err:  newError(KindPropagation, c.displayName(), panicToError(r)),
					})
				}
			}()
			fn(value)
		}()
	}
}

// AsyncComputeFunc is an async computed cell's evaluation function: it
// returns a Promise rather than a settled value (spec §4.6, "if compute
// returns a thenable").
type AsyncComputeFunc[T any] func(ctx *Context) (*Promise[T], error)

// AsyncComputed is a computed cell whose compute function returns a
// Promise[T]; its externally observed value is a Loadable[T] (spec §3's
// Loadable model bridged onto §4.6's async computed semantics). Grounded
// on AnatoleLucet-sig/sig.go's (stubbed) AsyncComputed[T] shape, given
// real semantics here.
type AsyncComputed[T any] struct {
	n internal.Node

	mu      sync.Mutex
	deps    Deps
	compute AsyncComputeFunc[T]
	equal   Resolver[T]
	name    string

	fallback func(error) T
	onChange func(Loadable[T])
	onError  func(error)

	ctx       *Context
	gen       uint64
	evaluated bool
	loadable  Loadable[T]
	resolved  T
	hasValue  bool

	subs   map[uint64]func(Loadable[T])
	nextID uint64
}

// NewAsyncComputed constructs an async computed cell.
func NewAsyncComputed[T any](deps Deps, compute AsyncComputeFunc[T], opts ...ComputedOptions[T]) *AsyncComputed[T] {
	var o ComputedOptions[T]
	if len(opts) > 0 {
		o = opts[0]
	}
	c := &AsyncComputed[T]{
		deps:     deps,
		compute:  compute,
		equal:    resolveEquality(o.EqualTag, o.Equal),
		name:     o.Name,
		fallback: o.Fallback,
		onError:  o.OnError,
		subs:     make(map[uint64]func(Loadable[T])),
	}
	if o.OnChange != nil {
		onChange := o.OnChange
		c.onChange = func(l Loadable[T]) {
			if v, ok := l.Value(); ok {
				onChange(v)
			}
		}
	}
	c.n = *internal.NewNode(internal.KindComputed, internal.Global().NextID())
	c.n.Recompute = c.doRecompute

	observer.Emit(observer.Event{
		Kind:     observer.EventSignalCreate,
		ID:       c.n.ID,
		Name:     c.name,
		CellKind: observer.CellComputed,
	})
	return c
}

func (c *AsyncComputed[T]) node() *internal.Node { return &c.n }

func (c *AsyncComputed[T]) displayName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// readRaw satisfies AnySignal by surfacing the resolved value once
// available, matching a downstream Dep[T] read against the settled type
// rather than the Loadable wrapper (spec §4.6: "equality is evaluated
// against the previous resolved value").
func (c *AsyncComputed[T]) readRaw() (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		c.mu.Unlock()
		c.doRecompute()
		c.mu.Lock()
	}
	if v, ok := c.loadable.Value(); ok {
		return v, nil
	}
	if err, ok := c.loadable.Error(); ok {
		return c.resolved, err
	}
	return c.resolved, nil
}

// Get returns the current Loadable snapshot (spec §3, §4.6).
func (c *AsyncComputed[T]) Get() Loadable[T] {
	c.mu.Lock()
	started := c.ctx != nil
	c.mu.Unlock()
	if !started {
		c.doRecompute()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadable
}

// doRecompute starts a new evaluation: it cancels/cleans up the prior one,
// rebuilds tracked deps, invokes compute to obtain a fresh Promise, and
// spawns a reconciler that applies the settled result only if no newer
// evaluation has since superseded it (spec §4.6, §7 "late-arriving
// promise resolution is dropped").
func (c *AsyncComputed[T]) doRecompute() bool {
	c.mu.Lock()
	prevCtx := c.ctx
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	if prevCtx != nil {
		prevCtx.abort.signal()
		prevCtx.cleanups.drain()
	}
	c.n.ClearDeps()

	ctx := newContext(&c.n, c.deps, c.onError)
	var (
		p   *Promise[T]
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = newError(KindCompute, c.name, panicToError(r))
			}
		}()
		p, err = c.compute(ctx)
	}()

	if err != nil {
		p = Rejected[T](err)
	}

	c.mu.Lock()
	c.ctx = ctx
	loading := Loading(p)
	c.loadable = loading
	name := c.name
	c.mu.Unlock()

	observer.Emit(observer.Event{Kind: observer.EventSignalChange, ID: c.n.ID, Name: name, Value: loading})

	go c.reconcile(gen, p)
	return true
}

func (c *AsyncComputed[T]) reconcile(gen uint64, p *Promise[T]) {
	v, err := p.Await()

	c.mu.Lock()
	if gen != c.gen {
		// Superseded by a newer evaluation; drop per spec §7.
		c.mu.Unlock()
		return
	}

	if err != nil {
		err = newError(KindAsync, c.name, err)
	}
	if err != nil && c.fallback != nil {
		v = c.fallback(err)
		err = nil
	}

	wasEvaluated := c.evaluated
	prevVal, prevErr := c.resolved, c.loadable.err
	changed := !wasEvaluated || (err != nil) != (prevErr != nil) || (err == nil && !c.equal(prevVal, v))

	c.evaluated = true
	if err != nil {
		c.loadable = Loadable[T]{Status: StatusError, err: err, promise: p}
	} else {
		c.resolved = v
		c.hasValue = true
		c.loadable = Loadable[T]{Status: StatusSuccess, value: v, promise: p}
	}
	name := c.name
	onChange := c.onChange
	callbacks := c.snapshotSubs()
	snapshot := c.loadable
	c.mu.Unlock()

	if err != nil {
		observer.Emit(observer.Event{Kind: observer.EventSignalError, ID: c.n.ID, Name: name, Err: err})
	}
	if changed {
		observer.Emit(observer.Event{Kind: observer.EventSignalChange, ID: c.n.ID, Name: name, Value: snapshot})
		internal.Global().ScheduleWrite(&c.n)
		if onChange != nil {
			onChange(snapshot)
		}
		for _, fn := range callbacks {
			c.safeNotify(fn, snapshot)
		}
	}
}

// On registers a listener fired with the full Loadable snapshot on every
// settle-driven change.
func (c *AsyncComputed[T]) On(listener func(Loadable[T])) Unsubscribe {
	c.mu.Lock()
	if c.n.Disposed {
		c.mu.Unlock()
		return func() {}
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = listener
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Dispose aborts any in-flight evaluation and tears down tracked deps.
func (c *AsyncComputed[T]) Dispose() {
	c.mu.Lock()
	if c.n.Disposed {
		c.mu.Unlock()
		return
	}
	c.n.Disposed = true
	c.gen++
	ctx := c.ctx
	name := c.name
	c.mu.Unlock()

	if ctx != nil {
		ctx.abort.signal()
		ctx.cleanups.drain()
	}
	c.n.ClearDeps()

	observer.Emit(observer.Event{Kind: observer.EventSignalDispose, ID: c.n.ID, Name: name})
}

func (c *AsyncComputed[T]) snapshotSubs() []func(Loadable[T]) {
	cbs := make([]func(Loadable[T]), 0, len(c.subs))
	for _, fn := range c.subs {
		cbs = append(cbs, fn)
	}
	return cbs
}

func (c *AsyncComputed[T]) safeNotify(fn func(Loadable[T]), l Loadable[T]) {
	defer func() {
		if r := recover(); r != nil {
			observer.Emit(observer.Event{
				Kind: observer.EventSignalError,
				ID:   c.n.ID,
				Name: c.displayName(),
				Err:  newError(KindPropagation, c.displayName(), panicToError(r)),
			})
		}
	}()
	fn(l)
}

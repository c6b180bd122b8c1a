package reactive

import (
	"context"
	"fmt"

	"github.com/flowgraph/reactive/internal"
)

// AnySignal is the type-erased view of a Signal[T]/Computed[T] used to
// populate a Computed's declared dependency map. Go has no dynamic property
// proxy (spec §9's design note), so the declared deps map is explicit and
// keyed by caller-chosen names, exactly as spec §3 describes.
type AnySignal interface {
	node() *internal.Node
	readRaw() (any, error)
	displayName() string
}

// Deps is the declared dependency map passed to NewComputed: caller-chosen
// names mapped to upstream signal references (spec §3).
type Deps map[string]AnySignal

// Context is the per-evaluation capture context passed to a computed cell's
// compute function (spec §4.3). It is the explicit-API replacement for the
// source engine's property proxy.
type Context struct {
	deps         Deps
	tracked      map[string]bool
	trackedOrder []string
	cache        map[string]any

	abort    abortToken
	cleanups *cleanupList
	owner    *internal.Node
	onError  func(error)
}

func newContext(owner *internal.Node, deps Deps, onError func(error)) *Context {
	return &Context{
		deps:     deps,
		tracked:  make(map[string]bool, len(deps)),
		cache:    make(map[string]any, len(deps)),
		abort:    newAbortToken(),
		cleanups: &cleanupList{},
		owner:    owner,
		onError:  onError,
	}
}

// Dep reads the named declared dependency, recording it as tracked on first
// read within this evaluation, subscribing the owning computed cell to it,
// and caching the result for the remainder of the evaluation (spec §4.3).
func Dep[T any](ctx *Context, key string) T {
	if v, ok := ctx.cache[key]; ok {
		typed, _ := v.(T)
		return typed
	}

	sig, ok := ctx.deps[key]
	if !ok {
		var zero T
		return zero
	}

	if !ctx.tracked[key] {
		ctx.tracked[key] = true
		ctx.trackedOrder = append(ctx.trackedOrder, key)
		ctx.owner.Link(sig.node())
	}

	raw, _ := sig.readRaw()
	ctx.cache[key] = raw
	typed, _ := raw.(T)
	return typed
}

// AbortSignal returns this evaluation's cancellation context. It is
// canceled exactly once: when a newer evaluation begins, or when the cell
// disposes (spec I4).
func (c *Context) AbortSignal() context.Context { return c.abort.ctx }

// Cleanup registers fn to run, in LIFO order with any other cleanups
// registered this evaluation, at the start of the next evaluation or at
// disposal — whichever comes first (spec I3).
func (c *Context) Cleanup(fn func()) { c.cleanups.add(fn) }

// Safe runs fn, recovering a panic into an error. If the owning cell has an
// OnError callback configured, the error is reported through it and
// swallowed (nil is returned); otherwise it propagates to the caller (spec
// §4.3, §7). A Fallback option plays no part here.
func (c *Context) Safe(fn func() error) error {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = newError(KindCompute, "", panicToError(r))
			}
		}()
		return fn()
	}()

	if err != nil && c.onError != nil {
		c.onError(err)
		return nil
	}
	return err
}

// Use runs fn with the same context, enabling composable sub-logics that
// still participate in this evaluation's dependency tracking and cleanup.
func Use[R any](ctx *Context, fn func(*Context) R) R {
	return fn(ctx)
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

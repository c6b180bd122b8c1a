package reactive

import "fmt"

const sourceDepKey = "source"

// Map produces a computed signal whose sole declared dependency is src,
// evaluating fn(src.value) on every source change (spec §4.7).
func Map[S, T any](src AnySignal, fn func(S) T, opts ...ComputedOptions[T]) *Computed[T] {
	o := mapOptions(opts, "map", src)
	return NewComputed(Deps{sourceDepKey: src}, func(ctx *Context) (T, error) {
		return fn(Dep[S](ctx, sourceDepKey)), nil
	}, o)
}

// Scan produces a computed holding a running accumulator: seed is returned
// on first read, and reducer(prev, source.value) on every later source
// change (spec §4.7).
func Scan[S, T any](src AnySignal, reducer func(prev T, next S) T, seed T, opts ...ComputedOptions[T]) *Computed[T] {
	o := mapOptions(opts, "scan", src)
	acc := seed
	first := true
	return NewComputed(Deps{sourceDepKey: src}, func(ctx *Context) (T, error) {
		v := Dep[S](ctx, sourceDepKey)
		if first {
			first = false
			return acc, nil
		}
		acc = reducer(acc, v)
		return acc, nil
	}, o)
}

// Filter produces a computed that holds its last accepted value: once a
// value has been accepted, a source change that predicate rejects leaves
// the computed at its previous value and does not propagate (spec §4.7).
// Until a value has been accepted, the computed mirrors the source, rejected
// values included.
func Filter[S any](src AnySignal, predicate func(S) bool, opts ...ComputedOptions[S]) *Computed[S] {
	o := mapOptions(opts, "filter", src)
	var (
		last   S
		hasAny bool
	)
	return NewComputed(Deps{sourceDepKey: src}, func(ctx *Context) (S, error) {
		v := Dep[S](ctx, sourceDepKey)
		if predicate(v) {
			last = v
			hasAny = true
		} else if !hasAny {
			last = v
		}
		return last, nil
	}, o)
}

// To is Map with a name distinguishing it for observability, matching
// spec §4.7's "like map but separately named" contract. It defaults to
// EqualShallow, the identity-sensitive comparator `to` is meant to convey.
func To[S, T any](src AnySignal, fn func(S) T, opts ...ComputedOptions[T]) *Computed[T] {
	var o ComputedOptions[T]
	if len(opts) > 0 {
		o = opts[0]
	} else {
		o.EqualTag = EqualShallow
	}
	o.Name = pipeName("to", src)
	return NewComputed(Deps{sourceDepKey: src}, func(ctx *Context) (T, error) {
		return fn(Dep[S](ctx, sourceDepKey)), nil
	}, o)
}

func mapOptions[T any](opts []ComputedOptions[T], op string, src AnySignal) ComputedOptions[T] {
	var o ComputedOptions[T]
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Name == "" {
		o.Name = pipeName(op, src)
	}
	return o
}

// pipeName renders the canonical `(op)(source)` name spec §4.10's graph
// builder parses for pipe parentage edges.
func pipeName(op string, src AnySignal) string {
	return fmt.Sprintf("%s(%s)", op, src.displayName())
}

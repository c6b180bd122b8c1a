package reactive

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/flowgraph/reactive/chain"
	"github.com/flowgraph/reactive/observer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios implements spec.md §8's six named end-to-end scenarios.
func TestScenarios(t *testing.T) {
	t.Run("1 diamond", func(t *testing.T) {
		a := Mutable(1)
		b := Map(a, func(x int) int { return x + 1 })
		c := Map(a, func(x int) int { return x * 2 })

		var evals int
		var lastChange int
		d := NewComputed(Deps{"b": b, "c": c}, func(ctx *Context) (int, error) {
			evals++
			return Dep[int](ctx, "b") + Dep[int](ctx, "c"), nil
		}, ComputedOptions[int]{OnChange: func(v int) { lastChange = v }})
		d.Get()
		evals = 0

		a.Set(5)

		assert.Equal(t, 16, d.Get())
		assert.Equal(t, 16, lastChange)
		assert.Equal(t, 1, evals, "d must evaluate exactly once per a change")
	})

	t.Run("2 async success", func(t *testing.T) {
		x := Mutable(0)
		y := NewAsyncComputed(Deps{"x": x}, func(ctx *Context) (*Promise[int], error) {
			xv := Dep[int](ctx, "x")
			return Go(func() (int, error) {
				<-Delay(10 * time.Millisecond).Done()
				return xv * 2, nil
			}), nil
		})

		assert.True(t, y.Get().IsLoading())

		x.Set(3) // must supersede the in-flight evaluation before it settles

		time.Sleep(30 * time.Millisecond)
		v, ok := y.Get().Value()
		require.True(t, ok)
		assert.Equal(t, 6, v, "only success(6) must be observed, never success(0)")
	})

	t.Run("3 cancellation", func(t *testing.T) {
		x := Mutable(0)
		var aborted int32
		var mu sync.Mutex

		y := NewAsyncComputed(Deps{"x": x}, func(ctx *Context) (*Promise[int], error) {
			_ = Dep[int](ctx, "x")
			abortCtx := ctx.AbortSignal()
			return Go(func() (int, error) {
				select {
				case <-time.After(20 * time.Millisecond):
					return 1, nil
				case <-abortCtx.Done():
					mu.Lock()
					aborted++
					mu.Unlock()
					return 0, abortCtx.Err()
				}
			}), nil
		})
		y.Get() // start the first, superseded evaluation

		x.Set(1) // supersedes the in-flight evaluation, aborting its token

		time.Sleep(30 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, int32(1), aborted, "the superseded evaluation's abort token must fire exactly once")
	})

	t.Run("4 focus write round trip", func(t *testing.T) {
		type u struct{ N string }
		type r struct{ U u }

		src := Mutable(r{U: u{N: "A"}})
		prevU := src.Get().U
		n := NewFocus(src, "u.n",
			func(v r) string { return v.U.N },
			func(v r, next string) r { v.U.N = next; return v },
		)

		n.Set("B")
		assert.Equal(t, r{U: u{N: "B"}}, src.Get())
		assert.NotEqual(t, prevU, src.Get().U)

		src.Set(r{U: u{N: "C"}})
		assert.Equal(t, "C", n.Get())
	})

	t.Run("5 batching", func(t *testing.T) {
		a := Mutable(0)
		b := Mutable(0)
		var order []string
		a.On(func(v int) { order = append(order, fmt.Sprintf("a=%d", v)) })
		b.On(func(v int) { order = append(order, fmt.Sprintf("b=%d", v)) })

		Batch(func() {
			a.Set(1)
			b.Set(2)
			a.Set(3)
		})

		assert.Equal(t, 3, a.Get())
		assert.Equal(t, 2, b.Get())
		assert.Equal(t, []string{"a=3", "b=2"}, order, "writes to the same cell inside one batch coalesce into a single notification carrying the last-written value, in enqueue order")
	})

	t.Run("6 chain detection", func(t *testing.T) {
		detector := chain.New()
		detector.Enable()
		defer detector.Disable()

		a := Mutable(1)
		b := Map(a, func(x int) int { return x + 1 })
		c := Map(a, func(x int) int { return x * 2 })
		d := NewComputed(Deps{"b": b, "c": c}, func(ctx *Context) (int, error) {
			return Dep[int](ctx, "b") + Dep[int](ctx, "c"), nil
		})
		d.Get()

		a.Set(5)
		d.Get()

		time.Sleep(5 * time.Millisecond)
		chains := detector.Chains()
		require.NotEmpty(t, chains)
		assert.GreaterOrEqual(t, len(chains[0].Path), 2)
		assert.Len(t, chains[0].Occurrences, 1)
	})

	_ = observer.EventSignalChange // keep the observer import exercised by name
}

package reactive

import (
	"testing"

	"github.com/flowgraph/reactive/internal"
	"github.com/stretchr/testify/assert"
)

func TestBatch(t *testing.T) {
	t.Run("coalesces writes into one propagation", func(t *testing.T) {
		x := Mutable(0)
		y := Mutable(0)
		var runs int
		sum := NewComputed(Deps{"x": x, "y": y}, func(ctx *Context) (int, error) {
			runs++
			return Dep[int](ctx, "x") + Dep[int](ctx, "y"), nil
		})
		sum.Get()
		runs = 0

		Batch(func() {
			x.Set(1)
			y.Set(2)
		})

		assert.Equal(t, 3, sum.Get())
		assert.Equal(t, 1, runs, "batched writes must coalesce into a single recompute")
	})

	t.Run("a bare write auto-opens and closes its own batch", func(t *testing.T) {
		x := Mutable(0)
		x.Set(1)
		assert.Equal(t, 1, x.Get())
		assert.False(t, internal.Global().IsBatching())
	})

	t.Run("nested batches only drain on the outermost exit", func(t *testing.T) {
		x := Mutable(0)
		var seen []int
		x.On(func(v int) { seen = append(seen, v) })

		Batch(func() {
			Batch(func() {
				x.Set(1)
			})
			assert.True(t, internal.Global().IsBatching())
		})

		assert.Equal(t, []int{1}, seen)
	})
}

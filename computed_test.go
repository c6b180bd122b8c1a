package reactive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputed(t *testing.T) {
	t.Run("derives from a single dependency", func(t *testing.T) {
		x := Mutable(2)
		y := NewComputed(Deps{"x": x}, func(ctx *Context) (int, error) {
			return Dep[int](ctx, "x") * 10, nil
		})
		assert.Equal(t, 20, y.Get())

		x.Set(3)
		assert.Equal(t, 30, y.Get())
	})

	t.Run("diamond recomputes the sink exactly once", func(t *testing.T) {
		a := Mutable(1)
		b := NewComputed(Deps{"a": a}, func(ctx *Context) (int, error) {
			return Dep[int](ctx, "a") + 1, nil
		})
		c := NewComputed(Deps{"a": a}, func(ctx *Context) (int, error) {
			return Dep[int](ctx, "a") + 2, nil
		})

		var runs int
		d := NewComputed(Deps{"b": b, "c": c}, func(ctx *Context) (int, error) {
			runs++
			return Dep[int](ctx, "b") + Dep[int](ctx, "c"), nil
		})

		assert.Equal(t, 5, d.Get())
		runs = 0

		a.Set(10)
		assert.Equal(t, 23, d.Get())
		assert.Equal(t, 1, runs, "diamond sink must recompute exactly once per write")
	})

	t.Run("compute error surfaces through Err", func(t *testing.T) {
		boom := errors.New("boom")
		c := NewComputed(Deps{}, func(ctx *Context) (int, error) {
			return 0, boom
		})
		assert.Equal(t, 0, c.Get())
		assert.ErrorIs(t, c.Err(), boom)
	})

	t.Run("fallback recovers from an error", func(t *testing.T) {
		boom := errors.New("boom")
		c := NewComputed(Deps{}, func(ctx *Context) (int, error) {
			return 0, boom
		}, ComputedOptions[int]{Fallback: func(error) int { return -1 }})
		assert.Equal(t, -1, c.Get())
		assert.NoError(t, c.Err())
	})

	t.Run("panicking compute is contained", func(t *testing.T) {
		c := NewComputed(Deps{}, func(ctx *Context) (int, error) {
			panic("kaboom")
		})
		assert.Equal(t, 0, c.Get())
		assert.Error(t, c.Err())
	})

	t.Run("pause suppresses recompute until resume", func(t *testing.T) {
		x := Mutable(1)
		var runs int
		c := NewComputed(Deps{"x": x}, func(ctx *Context) (int, error) {
			runs++
			return Dep[int](ctx, "x"), nil
		})
		c.On(func(int) {})
		assert.Equal(t, 1, c.Get())
		runs = 0

		c.Pause()
		x.Set(2)
		assert.Equal(t, 0, runs)

		c.Resume()
		assert.Equal(t, 1, runs)
		assert.Equal(t, 2, c.Get())
	})

	t.Run("on change listener only fires on real change", func(t *testing.T) {
		x := Mutable(1)
		c := NewComputed(Deps{"x": x}, func(ctx *Context) (int, error) {
			return Dep[int](ctx, "x") % 2, nil
		})
		var fired int
		c.On(func(int) { fired++ })
		c.Get()

		x.Set(3) // same parity, should not change the computed's value
		assert.Equal(t, 0, fired)

		x.Set(4)
		assert.Equal(t, 1, fired)
	})

	t.Run("dispose clears tracked deps", func(t *testing.T) {
		x := Mutable(1)
		c := NewComputed(Deps{"x": x}, func(ctx *Context) (int, error) {
			return Dep[int](ctx, "x"), nil
		})
		c.Get()
		c.Dispose()
		assert.Equal(t, 0, x.node().SubCount())
	})
}

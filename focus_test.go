package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type user struct {
	Name string
}

type root struct {
	U user
}

func TestFocus(t *testing.T) {
	t.Run("write round-trips through the source", func(t *testing.T) {
		r := Mutable(root{U: user{Name: "A"}})
		n := NewFocus(r, "u.name",
			func(v root) string { return v.U.Name },
			func(v root, next string) root { v.U.Name = next; return v },
		)

		assert.Equal(t, "A", n.Get())

		n.Set("B")
		assert.Equal(t, root{U: user{Name: "B"}}, r.Get())
		assert.Equal(t, "B", n.Get())
	})

	t.Run("reverse write updates the focus without recursing", func(t *testing.T) {
		r := Mutable(root{U: user{Name: "A"}})
		n := NewFocus(r, "u.name",
			func(v root) string { return v.U.Name },
			func(v root, next string) root { v.U.Name = next; return v },
		)
		var writes int
		n.On(func(string) { writes++ })

		r.Set(root{U: user{Name: "C"}})
		assert.Equal(t, "C", n.Get())
		assert.Equal(t, 1, writes)
	})

	t.Run("focus write does not double-notify its own listener", func(t *testing.T) {
		r := Mutable(root{U: user{Name: "A"}})
		n := NewFocus(r, "u.name",
			func(v root) string { return v.U.Name },
			func(v root, next string) root { v.U.Name = next; return v },
		)
		var writes int
		n.On(func(string) { writes++ })

		n.Set("B")
		assert.Equal(t, 1, writes)
	})

	t.Run("dispose unsubscribes from the source", func(t *testing.T) {
		r := Mutable(root{U: user{Name: "A"}})
		n := NewFocus(r, "u.name",
			func(v root) string { return v.U.Name },
			func(v root, next string) root { v.U.Name = next; return v },
		)
		n.Dispose()

		r.Set(root{U: user{Name: "Z"}})
		assert.Equal(t, "A", n.Get(), "a disposed focus must not keep tracking its source")
	})
}

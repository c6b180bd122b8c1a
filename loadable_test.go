package reactive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadable(t *testing.T) {
	t.Run("success snapshot", func(t *testing.T) {
		l := Success(5)
		assert.False(t, l.IsLoading())
		v, ok := l.Value()
		assert.True(t, ok)
		assert.Equal(t, 5, v)
	})

	t.Run("failure snapshot", func(t *testing.T) {
		boom := errors.New("boom")
		l := Failure[int](boom)
		err, ok := l.Error()
		assert.True(t, ok)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("loadable of a promise transitions from loading to success", func(t *testing.T) {
		p := Go(func() (int, error) { return 9, nil })
		l1 := LoadableOf(p)
		_, err := p.Await()
		assert.NoError(t, err)

		l2 := LoadableOf(p)
		assert.Same(t, l1, l2, "bridging the same promise identity must return the same loadable pointer")
		v, ok := l2.Value()
		assert.True(t, ok)
		assert.Equal(t, 9, v)
	})

	t.Run("loadable of a rejected promise", func(t *testing.T) {
		boom := errors.New("boom")
		p := Go(func() (int, error) { return 0, boom })
		p.Await()
		l := LoadableOf(p)
		err, ok := l.Error()
		assert.True(t, ok)
		assert.ErrorIs(t, err, boom)
	})
}

package chain

import (
	"testing"
	"time"

	"github.com/flowgraph/reactive/observer"
	"github.com/stretchr/testify/assert"
)

// fakeAfterFunc lets tests fire the zero-delay boundary deterministically
// instead of waiting on a real timer.
func fakeAfterFunc(calls *[]func()) func(time.Duration, func()) *time.Timer {
	return func(d time.Duration, f func()) *time.Timer {
		*calls = append(*calls, f)
		return time.NewTimer(time.Hour) // never fires on its own; test drives it
	}
}

func TestDetector(t *testing.T) {
	t.Run("a contiguous run of changes becomes one chain", func(t *testing.T) {
		d := New()
		var pending []func()
		d.afterFunc = fakeAfterFunc(&pending)

		d.onChange(observer.Event{ID: 1, Timestamp: time.Unix(0, 0)})
		d.onChange(observer.Event{ID: 2, Timestamp: time.Unix(0, 1)})
		d.onChange(observer.Event{ID: 3, Timestamp: time.Unix(0, 2)})

		// run the most recently scheduled boundary, as the real timer would
		pending[len(pending)-1]()

		chains := d.Chains()
		assert.Len(t, chains, 1)
		assert.Equal(t, []uint64{1, 2, 3}, chains[0].Path)
		assert.Len(t, chains[0].Occurrences, 1)
	})

	t.Run("a single change never becomes a chain", func(t *testing.T) {
		d := New()
		var pending []func()
		d.afterFunc = fakeAfterFunc(&pending)

		d.onChange(observer.Event{ID: 1, Timestamp: time.Unix(0, 0)})
		pending[len(pending)-1]()

		assert.Empty(t, d.Chains())
	})

	t.Run("identical paths coalesce into repeated occurrences", func(t *testing.T) {
		d := New()
		var pending []func()
		d.afterFunc = fakeAfterFunc(&pending)

		fire := func() {
			d.onChange(observer.Event{ID: 1, Timestamp: time.Unix(0, 0)})
			d.onChange(observer.Event{ID: 2, Timestamp: time.Unix(0, 1)})
			pending[len(pending)-1]()
		}
		fire()
		fire()

		chains := d.Chains()
		assert.Len(t, chains, 1)
		assert.Len(t, chains[0].Occurrences, 2)
	})

	t.Run("a loadable-valued event marks its signal async", func(t *testing.T) {
		d := New()
		var pending []func()
		d.afterFunc = fakeAfterFunc(&pending)

		type loadableStub struct{}
		_ = loadableStub{}

		d.onChange(observer.Event{ID: 1, Timestamp: time.Unix(0, 0), Value: asyncStub{}})
		d.onChange(observer.Event{ID: 2, Timestamp: time.Unix(0, 1)})
		pending[len(pending)-1]()

		chains := d.Chains()
		assert.True(t, chains[0].AsyncSignals[1])
		assert.False(t, chains[0].AsyncSignals[2])
	})
}

type asyncStub struct{}

func (asyncStub) IsLoading() bool { return true }

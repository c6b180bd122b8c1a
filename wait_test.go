package reactive

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWait(t *testing.T) {
	t.Run("blocks until the promise settles", func(t *testing.T) {
		p := Go(func() (int, error) {
			time.Sleep(5 * time.Millisecond)
			return 42, nil
		})
		v, err := Wait(p)
		assert.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("callback form maps success and error", func(t *testing.T) {
		ok := Go(func() (int, error) { return 2, nil })
		r := WaitCallback(ok, func(v int) string { return "ok" }, func(error) string { return "err" })
		v, err := r.Await()
		assert.NoError(t, err)
		assert.Equal(t, "ok", v)

		boom := errors.New("boom")
		failing := Go(func() (int, error) { return 0, boom })
		r2 := WaitCallback(failing, func(v int) string { return "ok" }, func(error) string { return "recovered" })
		v2, err2 := r2.Await()
		assert.NoError(t, err2)
		assert.Equal(t, "recovered", v2)
	})

	t.Run("any returns the first success and ignores an earlier error", func(t *testing.T) {
		fast := Go(func() (int, error) { return 0, errors.New("fails fast") })
		slow := Go(func() (int, error) {
			time.Sleep(5 * time.Millisecond)
			return 7, nil
		})
		v, key, err := WaitAny(map[string]awaitable{"fast": fast, "slow": slow})
		assert.NoError(t, err)
		assert.Equal(t, "slow", key)
		assert.Equal(t, 7, v)
	})

	t.Run("race returns the first terminal result even if it errors", func(t *testing.T) {
		boom := errors.New("boom")
		fast := Go(func() (int, error) { return 0, boom })
		slow := Go(func() (int, error) {
			time.Sleep(5 * time.Millisecond)
			return 7, nil
		})
		_, key, err := WaitRace(map[string]awaitable{"fast": fast, "slow": slow})
		assert.Equal(t, "fast", key)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("settled reports fulfilled and rejected per key", func(t *testing.T) {
		ok := Go(func() (int, error) { return 1, nil })
		boom := errors.New("boom")
		bad := Go(func() (int, error) { return 0, boom })

		settled := WaitSettled(map[string]awaitable{"ok": ok, "bad": bad})
		assert.Equal(t, StatusSuccess, settled["ok"].Status)
		assert.Equal(t, 1, settled["ok"].Value)
		assert.Equal(t, StatusError, settled["bad"].Status)
		assert.ErrorIs(t, settled["bad"].Err, boom)
	})

	t.Run("timeout rejects a slow promise", func(t *testing.T) {
		p := Go(func() (int, error) {
			time.Sleep(50 * time.Millisecond)
			return 1, nil
		})
		_, err := WaitTimeout(p, 5*time.Millisecond)
		assert.ErrorIs(t, err, ErrTimeout)
	})

	t.Run("delay resolves after the given duration", func(t *testing.T) {
		start := time.Now()
		_, err := Delay(5 * time.Millisecond).Await()
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	})
}

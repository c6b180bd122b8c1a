package reactive

import (
	"context"
	"reflect"
	"time"
)

// awaitable is the type-erased surface any Promise[T] satisfies. Go has no
// tuple/record types, so spec §4.11's "record of awaitables" input is
// rendered as map[string]awaitable.
type awaitable interface {
	Done() <-chan struct{}
	anyResult() (any, error)
}

func (p *Promise[T]) anyResult() (any, error) { return p.Await() }

// Wait blocks until p settles and returns its result. Go can genuinely
// block a goroutine, so this single blocking form subsumes spec §4.11's
// suspense-style and promise-style entry points — see DESIGN.md's Open
// Question decision on wait's dual mode.
func Wait[T any](p *Promise[T]) (T, error) {
	return p.Await()
}

// WaitCallback mirrors spec §4.11's promise-style form: it returns a
// Promise that settles to onResolve(v) once p succeeds, or to
// onError(err) if p fails and onError is non-nil; with a nil onError the
// returned promise rejects with p's error.
func WaitCallback[T, R any](p *Promise[T], onResolve func(T) R, onError func(error) R) *Promise[R] {
	return Go(func() (R, error) {
		v, err := p.Await()
		if err != nil {
			if onError != nil {
				return onError(err), nil
			}
			var zero R
			return zero, err
		}
		return onResolve(v), nil
	})
}

// WaitAny blocks until the first entry reaches success, returning its
// value and key (spec §4.11, `wait.any`). An entry that errors before any
// other succeeds is skipped; if every entry errors, the last observed
// error is returned.
func WaitAny(entries map[string]awaitable) (any, string, error) {
	return waitFirst(entries, true)
}

// WaitRace blocks until the first entry reaches any terminal state
// (success or error), returning its value/key or its error (spec §4.11,
// `wait.race`).
func WaitRace(entries map[string]awaitable) (any, string, error) {
	return waitFirst(entries, false)
}

func waitFirst(entries map[string]awaitable, successOnly bool) (any, string, error) {
	remaining := make(map[string]awaitable, len(entries))
	for k, v := range entries {
		remaining[k] = v
	}

	var lastErr error
	var lastKey string
	for len(remaining) > 0 {
		cases := make([]reflect.SelectCase, 0, len(remaining))
		keys := make([]string, 0, len(remaining))
		for k, v := range remaining {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(v.Done())})
			keys = append(keys, k)
		}

		chosen, _, _ := reflect.Select(cases)
		k := keys[chosen]
		v := remaining[k]
		val, err := v.anyResult()
		if err != nil {
			lastErr, lastKey = err, k
			delete(remaining, k)
			if !successOnly {
				return nil, k, err
			}
			continue
		}
		return val, k, nil
	}
	return nil, lastKey, lastErr
}

// Settled is one entry's terminal snapshot from WaitSettled (spec §4.11,
// `wait.settled`).
type Settled struct {
	Status Status
	Value  any
	Err    error
}

// WaitSettled blocks until every entry settles, returning a per-key
// Settled snapshot.
func WaitSettled(entries map[string]awaitable) map[string]Settled {
	out := make(map[string]Settled, len(entries))
	for k, v := range entries {
		val, err := v.anyResult()
		if err != nil {
			out[k] = Settled{Status: StatusError, Err: err}
		} else {
			out[k] = Settled{Status: StatusSuccess, Value: val}
		}
	}
	return out
}

// WaitTimeout returns p's result if it settles within d, or ErrTimeout if
// not (spec §4.11, `wait.timeout`).
func WaitTimeout[T any](p *Promise[T], d time.Duration) (T, error) {
	select {
	case <-p.Done():
		return p.Await()
	case <-time.After(d):
		var zero T
		return zero, newError(KindTimeout, "", context.DeadlineExceeded)
	}
}

// Delay returns a Promise resolving to struct{}{} after d — a trivial
// timed promise for composition (spec §4.11, `wait.delay`).
func Delay(d time.Duration) *Promise[struct{}] {
	return Go(func() (struct{}, error) {
		time.Sleep(d)
		return struct{}{}, nil
	})
}

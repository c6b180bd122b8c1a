package reactive

import "context"

// cleanupList is the per-evaluation ordered cleanup registry (spec §3, I3):
// registrations drain in LIFO order, exactly once, either at the start of
// the next evaluation or at cell disposal — whichever comes first.
// Grounded on AnatoleLucet-sig/internal/owner.go's OnCleanup/Dispose list.
type cleanupList struct {
	fns []func()
}

func (c *cleanupList) add(fn func()) {
	c.fns = append(c.fns, fn)
}

// drain runs every registered cleanup once, most-recently-added first, then
// empties the list.
func (c *cleanupList) drain() {
	for i := len(c.fns) - 1; i >= 0; i-- {
		c.fns[i]()
	}
	c.fns = nil
}

// abortToken is one evaluation's cancellation handle (spec §3, I4): a fresh
// token is installed per evaluation and is signaled exactly once, either
// when the next evaluation begins or when the cell disposes. context.Context
// is the idiomatic Go rendering of spec §4.3's abortSignal — every
// cancellation-aware example in the pack threads one.
type abortToken struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newAbortToken() abortToken {
	ctx, cancel := context.WithCancel(context.Background())
	return abortToken{ctx: ctx, cancel: cancel}
}

func (t abortToken) signal() {
	if t.cancel != nil {
		t.cancel()
	}
}

package reactive

import "github.com/flowgraph/reactive/internal"

// Batch opens a reentrant batching scope: writes to mutable cells made
// inside fn are applied in call order but their propagation (On listeners,
// the signal:change observer event, and dependent recomputation) is
// deferred until the outermost Batch call returns (spec §4.2, §4.4). A
// bare Set call outside any Batch auto-opens and auto-closes its own
// single-write batch (spec §4.5), so Batch is only needed to coalesce
// several writes into one propagation pass.
func Batch(fn func()) {
	internal.Global().Batch(fn)
}

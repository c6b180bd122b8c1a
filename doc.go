// Package reactive implements a glitch-free, push-based reactive signal
// engine: mutable and computed cells, batched propagation, async-aware
// computed values via Loadable, explicit cleanup/abort discipline, and an
// observer hook surface for external introspection (see the observer,
// chain and graph subpackages).
package reactive

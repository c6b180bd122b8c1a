package reactive

import "github.com/flowgraph/reactive/observer"

// Tag is a named, many-to-many grouping of signal identities (spec §4.8).
// Membership is tracked in the observer package's tags registry so a
// devtools sink sees the same create/add/remove events a program's own
// code does.
type Tag struct {
	name string
}

// NewTag declares a new tag and emits a tag:create event.
func NewTag(name string) *Tag {
	observer.TagCreate(name)
	return &Tag{name: name}
}

// Name returns the tag's identifying string.
func (t *Tag) Name() string { return t.name }

// Add adds sig's identity to the tag's membership set.
func (t *Tag) Add(sig AnySignal) {
	observer.TagAdd(t.name, sig.node().ID)
}

// Remove removes sig's identity from the tag's membership set.
func (t *Tag) Remove(sig AnySignal) {
	observer.TagRemove(t.name, sig.node().ID)
}

// Members returns the identities currently belonging to this tag.
func (t *Tag) Members() []uint64 {
	snapshot := observer.TagsSnapshot()
	set := snapshot[t.name]
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// Has reports whether sig's identity currently belongs to this tag.
func (t *Tag) Has(sig AnySignal) bool {
	snapshot := observer.TagsSnapshot()
	return snapshot[t.name][sig.node().ID]
}

// Package internal implements the untyped propagation graph shared by every
// generic cell type in the reactive package. It knows nothing about value
// types: a Node is identified by height and linked-list position only, and
// recomputation is delegated back to the generic layer via a closure.
package internal

import "iter"

// Kind distinguishes a mutable source node from a derived one.
type Kind int

const (
	KindMutable Kind = iota
	KindComputed
)

// Flags track transient graph membership, mirroring the teacher's
// height-bucketed heap flags (AnatoleLucet-sig/internal/heap.go, node.go).
type Flags int

const (
	FlagNone   Flags = 0
	FlagInHeap Flags = 1 << 0 // currently queued in the drain heap
	FlagQueued Flags = 1 << 1 // currently queued as a dirty batch root
)

// Node is one vertex of the dependency graph: either a mutable source or a
// computed derivation. The generic Signal[T]/Computed[T] wrappers each embed
// exactly one Node.
type Node struct {
	ID   uint64
	Kind Kind

	Version  uint64
	Height   int
	Flags    Flags
	Disposed bool

	// Recompute re-evaluates a computed node. It is nil for mutable nodes.
	// It returns whether the node's externally observable value changed.
	Recompute func() bool

	// OnFirstSub/OnLastUnsub run when this node gains its first subscriber
	// and loses its last one. Computed uses them only to track whether it
	// has a subscriber (its "live" flag); its links to its tracked deps are
	// kept either way, so it is recomputed on dependency change whether or
	// not anything subscribes to it.
	OnFirstSub  func()
	OnLastUnsub func()

	// Notify fires a mutable-style node's own On listeners and its
	// signal:change observer event, deferred until the node's enclosing
	// batch drains (spec §4.2, §4.5: "fire once per observable version
	// change after a batch drains"). It is nil for Computed and
	// AsyncComputed nodes, whose doRecompute callback already runs exactly
	// once per drain and fires its own notifications inline; a Focus node
	// is computed-kind but writable, and installs one.
	Notify func()

	depsHead *Link
	subsHead *Link
	subCount int
}

// Link is a bidirectional dependency/subscriber edge, adapted near-verbatim
// from AnatoleLucet-sig/internal/link.go + node.go.
type Link struct {
	dep *Node
	sub *Node

	prevDep *Link
	nextDep *Link

	prevSub *Link
	nextSub *Link
}

func NewNode(kind Kind, id uint64) *Node {
	return &Node{ID: id, Kind: kind}
}

func (n *Node) HasFlag(f Flags) bool { return n.Flags&f != 0 }
func (n *Node) AddFlag(f Flags)      { n.Flags |= f }
func (n *Node) RemoveFlag(f Flags)   { n.Flags &^= f }

// SubCount reports how many subscribers currently depend on this node.
func (n *Node) SubCount() int { return n.subCount }

// Link records that sub depends on dep, subscribing sub to dep's changes.
// Re-linking the most recently linked dependency is a no-op (mirrors the
// teacher's "most recent dependency" short-circuit); linking any other dep
// that is already present adds a second link.
func (sub *Node) Link(dep *Node) {
	if sub.depsHead != nil {
		tail := sub.depsHead.prevDep
		if tail.dep == dep {
			return
		}
	}

	link := &Link{dep: dep, sub: sub}
	sub.addDepLink(link)
	dep.addSubLink(link)

	if dep.Height >= sub.Height {
		sub.Height = dep.Height + 1
	}

	if dep.subCount == 1 && dep.OnFirstSub != nil {
		dep.OnFirstSub()
	}
}

// ClearDeps removes every dependency link from sub, notifying each
// dependency's OnLastUnsub hook if that was its final subscriber.
func (sub *Node) ClearDeps() {
	for link := sub.depsHead; link != nil; {
		next := link.nextDep
		link.dep.removeSubLink(link)
		link = next
	}
	sub.depsHead = nil
}

// Deps iterates the current dependency set.
func (sub *Node) Deps() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for link := sub.depsHead; link != nil; link = link.nextDep {
			if !yield(link.dep) {
				return
			}
		}
	}
}

// Subs iterates the current subscriber set, in insertion order.
func (dep *Node) Subs() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for link := dep.subsHead; link != nil; link = link.nextSub {
			if !yield(link.sub) {
				return
			}
		}
	}
}

func (sub *Node) addDepLink(link *Link) {
	if sub.depsHead == nil {
		sub.depsHead = link
		link.prevDep = link
		link.nextDep = nil
		return
	}
	tail := sub.depsHead.prevDep
	tail.nextDep = link
	link.prevDep = tail
	link.nextDep = nil
	sub.depsHead.prevDep = link
}

func (dep *Node) addSubLink(link *Link) {
	dep.subCount++
	if dep.subsHead == nil {
		dep.subsHead = link
		link.prevSub = link
		link.nextSub = nil
		return
	}
	tail := dep.subsHead.prevSub
	tail.nextSub = link
	link.prevSub = tail
	link.nextSub = nil
	dep.subsHead.prevSub = link
}

func (dep *Node) removeSubLink(link *Link) {
	dep.subCount--

	if link.prevSub == link {
		dep.subsHead = nil
	} else {
		if link == dep.subsHead {
			dep.subsHead = link.nextSub
		} else {
			link.prevSub.nextSub = link.nextSub
		}
		if link.nextSub != nil {
			link.nextSub.prevSub = link.prevSub
		} else {
			dep.subsHead.prevSub = link.prevSub
		}
	}
	link.prevSub = nil
	link.nextSub = nil

	if dep.subCount == 0 && dep.OnLastUnsub != nil {
		dep.OnLastUnsub()
	}
}

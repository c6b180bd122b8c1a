// Package graph implements the pure dependency graph builder (spec §4.10):
// it reads the observer package's signals registry and a chain-detector
// snapshot and derives a read-only node/edge view. No example repo in the
// retrieval pack ships a literal analogue, but pumped-fn-pumped-go's
// graph.go/extensions/graph_debug.go show the read-only node/edge
// snapshot shape this is grounded on (see DESIGN.md).
package graph

import (
	"regexp"

	"github.com/flowgraph/reactive/chain"
	"github.com/flowgraph/reactive/observer"
)

// NodeInfo is one graph vertex, copied from the observer registry.
type NodeInfo struct {
	ID       uint64
	Name     string
	Kind     observer.CellKind
	Disposed bool
}

// Edge is one graph edge, deduplicated and weighted by occurrence count
// (spec §4.10).
type Edge struct {
	From, To uint64
	Kind     string // "chain", "focus", or "pipe"
	Label    string
	Weight   int
}

// Graph is the builder's read-only output.
type Graph struct {
	Nodes map[uint64]NodeInfo
	Edges []Edge
}

var (
	focusNameRe = regexp.MustCompile(`^focus\(([^.]+)\.(.+)\)$`)
	pipeNameRe  = regexp.MustCompile(`^(to|filter|scan|map|debounce|throttle)\(([^)]+)\)$`)
)

type edgeKey struct {
	from, to   uint64
	kind, name string
}

// Build derives a Graph from the current signals registry and chains. It
// never mutates either input (spec §4.10: "the builder must be pure").
func Build(chains []chain.Chain) Graph {
	signals := observer.SignalsSnapshot()

	nodes := make(map[uint64]NodeInfo, len(signals))
	byName := make(map[string]uint64, len(signals))
	for id, m := range signals {
		nodes[id] = NodeInfo{ID: id, Name: m.Name, Kind: m.Kind, Disposed: m.Disposed}
		if m.Name != "" {
			byName[m.Name] = id
		}
	}

	weights := map[edgeKey]int{}
	var order []edgeKey
	add := func(from, to uint64, kind, label string) {
		k := edgeKey{from, to, kind, label}
		if _, ok := weights[k]; !ok {
			order = append(order, k)
		}
		weights[k]++
	}

	// 1. Temporal: each adjacent pair in a chain path becomes a chain edge.
	for _, c := range chains {
		for i := 0; i+1 < len(c.Path); i++ {
			add(c.Path[i], c.Path[i+1], "chain", "")
		}
	}

	for id, m := range signals {
		// 2. Focus parentage: focus(parent.path) -> focus edge from parent.
		if mm := focusNameRe.FindStringSubmatch(m.Name); mm != nil {
			if parentID, ok := byName[mm[1]]; ok {
				add(parentID, id, "focus", mm[2])
			}
			continue
		}
		// 3. Pipe parentage: (op)(source) -> pipe edge from source.
		if mm := pipeNameRe.FindStringSubmatch(m.Name); mm != nil {
			if srcID, ok := byName[mm[2]]; ok {
				add(srcID, id, "pipe", mm[1])
			}
		}
	}

	edges := make([]Edge, 0, len(order))
	for _, k := range order {
		edges = append(edges, Edge{From: k.from, To: k.to, Kind: k.kind, Label: k.name, Weight: weights[k]})
	}

	return Graph{Nodes: nodes, Edges: edges}
}

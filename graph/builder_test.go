package graph

import (
	"testing"

	"github.com/flowgraph/reactive/chain"
	"github.com/flowgraph/reactive/observer"
	"github.com/stretchr/testify/assert"
)

func emitSignal(id uint64, name string) {
	observer.Emit(observer.Event{Kind: observer.EventSignalCreate, ID: id, Name: name, CellKind: observer.CellComputed})
}

func TestBuild(t *testing.T) {
	t.Run("chain path becomes adjacent chain edges", func(t *testing.T) {
		chains := []chain.Chain{{Path: []uint64{100, 101, 102}}}
		g := Build(chains)

		found := map[[2]uint64]bool{}
		for _, e := range g.Edges {
			if e.Kind == "chain" {
				found[[2]uint64{e.From, e.To}] = true
			}
		}
		assert.True(t, found[[2]uint64{100, 101}])
		assert.True(t, found[[2]uint64{101, 102}])
	})

	t.Run("focus name yields a focus edge from the parent", func(t *testing.T) {
		emitSignal(200, "root")
		emitSignal(201, "focus(root.name)")

		g := Build(nil)
		var edge *Edge
		for i := range g.Edges {
			if g.Edges[i].Kind == "focus" && g.Edges[i].To == 201 {
				edge = &g.Edges[i]
			}
		}
		if assert.NotNil(t, edge) {
			assert.Equal(t, uint64(200), edge.From)
			assert.Equal(t, "name", edge.Label)
		}
	})

	t.Run("pipe name yields a pipe edge labeled with the operator", func(t *testing.T) {
		emitSignal(300, "source")
		emitSignal(301, "map(source)")

		g := Build(nil)
		var edge *Edge
		for i := range g.Edges {
			if g.Edges[i].Kind == "pipe" && g.Edges[i].To == 301 {
				edge = &g.Edges[i]
			}
		}
		if assert.NotNil(t, edge) {
			assert.Equal(t, uint64(300), edge.From)
			assert.Equal(t, "map", edge.Label)
		}
	})

	t.Run("repeated chain edges accumulate weight", func(t *testing.T) {
		chains := []chain.Chain{
			{Path: []uint64{1, 2}},
			{Path: []uint64{1, 2}},
		}
		g := Build(chains)
		for _, e := range g.Edges {
			if e.Kind == "chain" && e.From == 1 && e.To == 2 {
				assert.Equal(t, 2, e.Weight)
				return
			}
		}
		t.Fatal("expected a chain edge from 1 to 2")
	})
}

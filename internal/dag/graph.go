// Package dag holds the dependency graph used by the plan builder:
// deterministic Kahn ordering, waves of independent nodes and
// strongly connected components for cycle reports.
package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// NodeID is the dense node index. Callers use declaration order, so the
// smallest ready id is also the earliest declared node.
type NodeID uint32

// EdgeLabel annotates why an edge exists. The graph itself does not
// interpret it.
type EdgeLabel struct {
	Kind uint8
	Prop uint32
}

type Edge struct {
	To    NodeID
	Label EdgeLabel
}

type Graph struct {
	Edges   [][]Edge // Edges[from] = []to
	Indeg   []int    // входящие степени для Kahn (только присутствующие узлы)
	Present []bool   // узел участвует в сортировке
}

// New allocates a graph with n nodes, none of them present.
func New(n int) *Graph {
	return &Graph{
		Edges:   make([][]Edge, n),
		Indeg:   make([]int, n),
		Present: make([]bool, n),
	}
}

// Len returns the number of node slots.
func (g *Graph) Len() int {
	return len(g.Edges)
}

// Mark makes node id present.
func (g *Graph) Mark(id NodeID) {
	g.Present[int(id)] = true
}

// AddEdge records from -> to. Self edges are ignored, and a second edge
// between the same pair only keeps the first label.
func (g *Graph) AddEdge(from, to NodeID, label EdgeLabel) bool {
	if from == to {
		return false
	}
	for _, e := range g.Edges[int(from)] {
		if e.To == to {
			return false
		}
	}
	g.Edges[int(from)] = append(g.Edges[int(from)], Edge{To: to, Label: label})
	if g.Present[int(to)] {
		g.Indeg[int(to)]++
	}
	return true
}

// Sort orders every adjacency list by target id so traversal is stable.
func (g *Graph) Sort() {
	for i := range g.Edges {
		if len(g.Edges[i]) > 1 {
			slices.SortFunc(g.Edges[i], func(a, b Edge) int {
				return int(a.To) - int(b.To)
			})
		}
	}
}

// EdgeBetween returns the label of from -> to when it exists.
func (g *Graph) EdgeBetween(from, to NodeID) (EdgeLabel, bool) {
	for _, e := range g.Edges[int(from)] {
		if e.To == to {
			return e.Label, true
		}
	}
	return EdgeLabel{}, false
}

func toNodeID(i int) NodeID {
	id, err := safecast.Conv[NodeID](i)
	if err != nil {
		panic(fmt.Errorf("node id overflow: %w", err))
	}
	return id
}

package dag

import (
	"container/heap"
	"slices"
)

type Topo struct {
	Order   []NodeID   // линейный порядок (только присутствующие узлы)
	Batches [][]NodeID // волны независимых узлов
	Cyclic  bool
	Cycles  []NodeID // узлы, оставшиеся в цикле
}

// idHeap is a min-heap of ready node ids.
type idHeap []NodeID

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(NodeID)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// ToposortKahn returns the lexicographically smallest topological order:
// whenever several nodes are ready the one with the smallest id goes
// first. Batches group the same nodes by depth (wave number).
func ToposortKahn(g *Graph) *Topo {
	nodeCount := g.Len()
	indeg := make([]int, len(g.Indeg))
	copy(indeg, g.Indeg)

	topo := &Topo{
		Order:   make([]NodeID, 0, nodeCount),
		Batches: make([][]NodeID, 0),
	}

	active := 0
	depth := make([]int, nodeCount)
	ready := make(idHeap, 0, nodeCount)
	for i := range nodeCount {
		if !g.Present[i] {
			continue
		}
		active++
		if indeg[i] == 0 {
			ready = append(ready, toNodeID(i))
		}
	}
	heap.Init(&ready)

	for ready.Len() > 0 {
		id := heap.Pop(&ready).(NodeID)
		topo.Order = append(topo.Order, id)

		d := depth[int(id)]
		for len(topo.Batches) <= d {
			topo.Batches = append(topo.Batches, nil)
		}
		topo.Batches[d] = append(topo.Batches[d], id)

		for _, e := range g.Edges[int(id)] {
			to := int(e.To)
			if !g.Present[to] {
				continue
			}
			if depth[to] < d+1 {
				depth[to] = d + 1
			}
			indeg[to]--
			if indeg[to] == 0 {
				heap.Push(&ready, e.To)
			}
		}
	}
	for i := range topo.Batches {
		slices.Sort(topo.Batches[i])
	}

	if len(topo.Order) != active {
		topo.Cyclic = true
		for i := range nodeCount {
			if g.Present[i] && indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, toNodeID(i))
			}
		}
	}

	return topo
}

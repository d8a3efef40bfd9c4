package dag

import "slices"

// Components returns the strongly connected components among the given
// nodes that form a real cycle (size > 1; self edges are never stored).
// Each component is sorted by id and components are ordered by their
// smallest id, so reports are deterministic.
func Components(g *Graph, within []NodeID) [][]NodeID {
	member := make(map[NodeID]bool, len(within))
	for _, id := range within {
		member[id] = true
	}

	var (
		index   = 0
		stack   []NodeID
		indices = make(map[NodeID]int, len(within))
		lowlink = make(map[NodeID]int, len(within))
		onStack = make(map[NodeID]bool, len(within))
		out     [][]NodeID
	)

	var strongConnect func(NodeID)
	strongConnect = func(v NodeID) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range g.Edges[int(v)] {
			w := e.To
			if !member[w] {
				continue
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []NodeID
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if len(scc) > 1 {
				slices.Sort(scc)
				out = append(out, scc)
			}
		}
	}

	sorted := slices.Clone(within)
	slices.Sort(sorted)
	for _, id := range sorted {
		if _, visited := indices[id]; !visited {
			strongConnect(id)
		}
	}

	slices.SortFunc(out, func(a, b []NodeID) int {
		return int(a[0]) - int(b[0])
	})
	return out
}

// CyclePath walks one concrete cycle inside a component, starting at its
// smallest node and always following the smallest in-component successor.
// The returned path ends with the start node again.
func CyclePath(g *Graph, scc []NodeID) []NodeID {
	if len(scc) == 0 {
		return nil
	}
	member := make(map[NodeID]bool, len(scc))
	for _, id := range scc {
		member[id] = true
	}
	start := scc[0]

	// BFS from start over the component to find the shortest way back.
	prev := make(map[NodeID]NodeID, len(scc))
	seen := map[NodeID]bool{start: true}
	queue := []NodeID{start}
	var last NodeID
	found := false
	for len(queue) > 0 && !found {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.Edges[int(cur)] {
			if !member[e.To] {
				continue
			}
			if e.To == start {
				last = cur
				found = true
				break
			}
			if !seen[e.To] {
				seen[e.To] = true
				prev[e.To] = cur
				queue = append(queue, e.To)
			}
		}
	}
	if !found {
		return append(slices.Clone(scc), start)
	}

	var rev []NodeID
	for n := last; n != start; n = prev[n] {
		rev = append(rev, n)
	}
	path := []NodeID{start}
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return append(path, start)
}

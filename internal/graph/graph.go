// Package graph provides reference graph construction and cycle analysis
// for schema definitions.
package graph

import (
	"slices"
)

// Graph is a directed graph of definition names with forward edges.
type Graph struct {
	nodes map[string]struct{}
	edges map[string][]string
}

// New returns a graph with no nodes or edges.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]struct{}),
		edges: make(map[string][]string),
	}
}

// AddNode registers a definition. Duplicate calls are no-ops.
func (g *Graph) AddNode(name string) {
	g.nodes[name] = struct{}{}
}

// AddEdge records that "from" refers to "to". Missing nodes are created
// implicitly. Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.nodes[from] = struct{}{}
	g.nodes[to] = struct{}{}

	if slices.Contains(g.edges[from], to) {
		return
	}
	g.edges[from] = append(g.edges[from], to)
}

// References returns the definitions that name refers to (forward edges).
func (g *Graph) References(name string) []string {
	return g.edges[name]
}

// HasNode reports whether the definition exists in the graph.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// Cycles returns every strongly connected component with more than one
// node, plus single nodes with a self-loop, found via Tarjan's algorithm.
// Nodes are visited in sorted order and each cycle is sorted, so the
// result is deterministic.
func (g *Graph) Cycles() [][]string {
	var (
		index    int
		stack    []string
		onStack  = make(map[string]bool)
		indices  = make(map[string]int)
		lowlinks = make(map[string]int)
		cycles   [][]string
	)

	var strongConnect func(name string)
	strongConnect = func(name string) {
		indices[name] = index
		lowlinks[name] = index
		index++
		stack = append(stack, name)
		onStack[name] = true

		for _, ref := range g.edges[name] {
			if _, visited := indices[ref]; !visited {
				strongConnect(ref)
				lowlinks[name] = min(lowlinks[name], lowlinks[ref])
			} else if onStack[ref] {
				lowlinks[name] = min(lowlinks[name], indices[ref])
			}
		}

		if lowlinks[name] != indices[name] {
			return
		}
		var scc []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == name {
				break
			}
		}
		if len(scc) > 1 || slices.Contains(g.edges[scc[0]], scc[0]) {
			slices.Sort(scc)
			cycles = append(cycles, scc)
		}
	}

	sorted := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		sorted = append(sorted, name)
	}
	slices.Sort(sorted)

	for _, name := range sorted {
		if _, visited := indices[name]; !visited {
			strongConnect(name)
		}
	}

	slices.SortFunc(cycles, func(a, b []string) int {
		return slices.Compare(a, b)
	})
	return cycles
}

// HasCycles reports whether the graph contains any cycles.
func (g *Graph) HasCycles() bool {
	return len(g.Cycles()) > 0
}

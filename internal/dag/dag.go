// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed graph operations for topological sorting
// and cycle detection. It is used by the resolution pipeline to order
// registry items so that every dependency precedes its dependents.
package dag

import (
	"fmt"
	"slices"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing
	// topological ordering. Cycle holds the exact path of the first cycle
	// encountered, closed on itself: the first and last entries are the
	// same node (e.g. [A B C A]).
	CycleError struct {
		Cycle []string
	}

	// Graph is a directed dependency graph. Nodes are identified by string
	// keys. An edge from A to B means "A depends on B": B must appear
	// before A in the topological order.
	Graph struct {
		// adjacency maps each node to the nodes it depends on.
		adjacency map[string][]string
		// nodes tracks all nodes for deterministic traversal.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge meaning "from depends on to".
// Both nodes are implicitly added if they don't exist.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Traversal colors for the DFS: white = unvisited, gray = on the current
// DFS path, black = fully processed.
const (
	white = iota
	gray
	black
)

// TopologicalSort returns an order in which every node appears strictly
// after all of its dependencies. It uses a depth-first post-order walk with
// three-color marking, so re-entering a gray node identifies a cycle and
// yields its exact path in CycleError.
//
// The order is deterministic: roots and dependency lists are walked
// alphabetically, so nodes with no dependency relationship to each other
// appear in alphabetical order.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	color := make(map[string]int, len(g.nodes))
	order := make([]string, 0, len(g.nodes))
	var path []string

	var visit func(node string) *CycleError
	visit = func(node string) *CycleError {
		switch color[node] {
		case black:
			return nil
		case gray:
			// The cycle is the segment of the current DFS path from the
			// first occurrence of node, closed by node itself.
			start := slices.Index(path, node)
			cycle := make([]string, 0, len(path)-start+1)
			cycle = append(cycle, path[start:]...)
			cycle = append(cycle, node)
			return &CycleError{Cycle: cycle}
		}

		color[node] = gray
		path = append(path, node)

		for _, dep := range slices.Sorted(slices.Values(g.adjacency[node])) {
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		color[node] = black
		order = append(order, node)
		return nil
	}

	for _, root := range slices.Sorted(slices.Values(g.nodes)) {
		if err := visit(root); err != nil {
			return nil, err
		}
	}

	return order, nil
}

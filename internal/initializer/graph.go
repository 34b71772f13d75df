// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package initializer

import (
	"fmt"
	"sort"

	"github.com/AleutianAI/bridge-registry/internal/envelope"
)

// dependencyGraph is the Hard-edge graph the initializer sorts. Soft edges
// are tracked separately and never constrain order.
type dependencyGraph struct {
	nodes map[string]bool
	edges map[string][]string // from -> to, Hard only
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		nodes: make(map[string]bool),
		edges: make(map[string][]string),
	}
}

func (g *dependencyGraph) addNode(name string) {
	g.nodes[name] = true
}

func (g *dependencyGraph) addEdge(from, to string) {
	g.edges[from] = append(g.edges[from], to)
}

// topologicalSort runs Kahn's algorithm over Hard edges. It is
// deterministic given a fixed iteration order: names are sorted
// lexicographically whenever more than one node has in-degree zero, so two
// runs over the same graph produce the same order.
//
// If nodes remain after the algorithm terminates, those nodes participate in
// a cycle; the caller should report one DependencyMissing error per cyclic
// node (§4.3, P8).
func (g *dependencyGraph) topologicalSort() ([]string, []string) {
	inDegree := make(map[string]int, len(g.nodes))
	for n := range g.nodes {
		inDegree[n] = 0
	}
	for from, tos := range g.edges {
		if !g.nodes[from] {
			continue
		}
		for _, to := range tos {
			if !g.nodes[to] {
				continue
			}
			inDegree[to]++
		}
	}

	var ready []string
	for n, d := range inDegree {
		if d == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		sort.Strings(ready)
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		var next []string
		for _, to := range g.edges[n] {
			if !g.nodes[to] {
				continue
			}
			inDegree[to]--
			if inDegree[to] == 0 {
				next = append(next, to)
			}
		}
		ready = append(ready, next...)
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}

	visited := make(map[string]bool, len(order))
	for _, n := range order {
		visited[n] = true
	}
	var cyclic []string
	for n := range g.nodes {
		if !visited[n] {
			cyclic = append(cyclic, n)
		}
	}
	sort.Strings(cyclic)
	return order, cyclic
}

// cycleErrors renders one DependencyMissing ModuleError per cyclic node.
func cycleErrors(cyclic []string) []*envelope.ModuleError {
	errs := make([]*envelope.ModuleError, 0, len(cyclic))
	for _, name := range cyclic {
		errs = append(errs, envelope.NewModuleError(name, fmt.Sprintf("module '%s' participates in a dependency cycle", name), envelope.ErrModDependencyMissing))
	}
	return errs
}

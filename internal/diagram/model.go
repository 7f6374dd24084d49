// Package diagram exports a FlowchartGraph to text diagram formats: Mermaid
// flowchart syntax and a level-based box drawing for terminals.
package diagram

import (
	"strings"

	"github.com/rendis/flowdsl/pkg/flowchart"
)

// Levels ranks the nodes of g by longest path from the entry nodes and
// returns the node ids of each rank in node order. Cycles are broken at the
// first unranked node in node order; self-loops and edges with a missing
// endpoint are ignored.
func Levels(g *flowchart.FlowchartGraph) [][]string {
	if len(g.Nodes) == 0 {
		return nil
	}

	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}

	indegree := make(map[string]int, len(g.Nodes))
	adj := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		if e.Source == e.Target || !known[e.Source] || !known[e.Target] {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		indegree[e.Target]++
	}

	var queue []string
	for _, n := range g.Nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}

	rank := make(map[string]int, len(g.Nodes))
	done := make(map[string]bool, len(g.Nodes))
	for len(done) < len(g.Nodes) {
		if len(queue) == 0 {
			for _, n := range g.Nodes {
				if !done[n.ID] {
					queue = append(queue, n.ID)
					break
				}
			}
		}

		id := queue[0]
		queue = queue[1:]
		if done[id] {
			continue
		}
		done[id] = true

		for _, next := range adj[id] {
			if done[next] {
				continue
			}
			if rank[id]+1 > rank[next] {
				rank[next] = rank[id] + 1
			}
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	depth := 0
	for _, r := range rank {
		depth = max(depth, r)
	}
	levels := make([][]string, depth+1)
	for _, n := range g.Nodes {
		levels[rank[n.ID]] = append(levels[rank[n.ID]], n.ID)
	}
	return levels
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

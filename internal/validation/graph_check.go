package validation

import (
	"fmt"

	"github.com/rendis/flowdsl/pkg/flowchart"
)

// CheckGraph verifies the structural invariants of g and adds advisory
// warnings: self-loops, isolated nodes, and nodes that no entry node
// (a node without incoming edges) can reach.
func CheckGraph(g *flowchart.FlowchartGraph) *flowchart.ValidationResult {
	if g == nil {
		result := &flowchart.ValidationResult{}
		result.AddError("/", flowchart.ErrCodeValidation, "graph is nil")
		return result
	}

	result := g.Check()
	if !result.Valid() {
		return result // broken references make the analysis below meaningless
	}

	index := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		index[n.ID] = i
	}

	out := make(map[string][]string, len(g.Nodes))
	inDegree := make(map[string]int, len(g.Nodes))
	touched := make(map[string]bool, len(g.Nodes))
	for i, e := range g.Edges {
		if e.Source == e.Target {
			result.AddWarning(fmt.Sprintf("edges[%d]", i), flowchart.ErrCodeValidation,
				fmt.Sprintf("edge loops on node %q", g.Nodes[index[e.Source]].Label))
			continue
		}
		out[e.Source] = append(out[e.Source], e.Target)
		inDegree[e.Target]++
		touched[e.Source] = true
		touched[e.Target] = true
	}

	if len(g.Nodes) > 1 {
		for i, n := range g.Nodes {
			if !touched[n.ID] && !hasSelfLoop(g, n.ID) {
				result.AddWarning(fmt.Sprintf("nodes[%d]", i), flowchart.ErrCodeValidation,
					fmt.Sprintf("node %q has no connections", n.Label))
			}
		}
	}

	// Reachability: BFS from entry nodes in node order.
	var queue []string
	reachable := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if touched[n.ID] && inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
			reachable[n.ID] = true
		}
	}
	if len(queue) == 0 {
		return result // every connected node sits on a cycle; no entry to measure from
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range out[id] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}
	for i, n := range g.Nodes {
		if touched[n.ID] && !reachable[n.ID] {
			result.AddWarning(fmt.Sprintf("nodes[%d]", i), flowchart.ErrCodeValidation,
				fmt.Sprintf("node %q is unreachable from any entry node", n.Label))
		}
	}

	return result
}

func hasSelfLoop(g *flowchart.FlowchartGraph, id string) bool {
	for _, e := range g.Edges {
		if e.Source == id && e.Target == id {
			return true
		}
	}
	return false
}

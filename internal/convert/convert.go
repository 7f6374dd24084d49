// Package convert maps between the programmatic FlowchartInput format and
// FlowchartGraph.
package convert

import (
	"github.com/rendis/flowdsl/internal/identity"
	"github.com/rendis/flowdsl/pkg/flowchart"
)

// FromInput builds a graph from a FlowchartInput. Input node ids only scope
// edge references: every node and edge receives a fresh id from gen.
// Unknown shapes and edges naming unknown nodes are rejected.
func FromInput(in *flowchart.FlowchartInput, gen identity.Generator) (*flowchart.FlowchartGraph, error) {
	if in == nil {
		return nil, flowchart.NewError(flowchart.ErrCodeValidation, "flowchart input is nil")
	}
	if gen == nil {
		gen = identity.UUID()
	}

	g := &flowchart.FlowchartGraph{
		Nodes:   make([]flowchart.GraphNode, 0, len(in.Nodes)),
		Edges:   make([]flowchart.GraphEdge, 0, len(in.Edges)),
		Options: in.Options.Apply(flowchart.DefaultLayoutOptions()),
	}

	ids := make(map[string]string, len(in.Nodes))
	for i, n := range in.Nodes {
		shape := flowchart.ShapeKind(n.Type)
		if !shape.Valid() {
			return nil, flowchart.NewErrorf(flowchart.ErrCodeValidation,
				"nodes[%d]: unknown node type %q", i, n.Type)
		}
		if _, dup := ids[n.ID]; dup {
			return nil, flowchart.NewErrorf(flowchart.ErrCodeValidation,
				"nodes[%d]: duplicate node id %q", i, n.ID)
		}
		id := gen.NewID()
		ids[n.ID] = id
		g.Nodes = append(g.Nodes, flowchart.GraphNode{
			ID:    id,
			Type:  shape,
			Label: n.Label,
			Style: n.Style,
		})
	}

	for i, e := range in.Edges {
		src, ok := ids[e.From]
		if !ok {
			return nil, flowchart.NewErrorf(flowchart.ErrCodeValidation,
				"edges[%d]: unknown source node %q", i, e.From)
		}
		dst, ok := ids[e.To]
		if !ok {
			return nil, flowchart.NewErrorf(flowchart.ErrCodeValidation,
				"edges[%d]: unknown target node %q", i, e.To)
		}
		g.Edges = append(g.Edges, flowchart.GraphEdge{
			ID:     gen.NewID(),
			Source: src,
			Target: dst,
			Label:  e.Label,
			Style:  e.Style,
		})
	}

	return g, nil
}

// ToInput is the inverse of FromInput. Graph ids become input ids and every
// option is spelled out.
func ToInput(g *flowchart.FlowchartGraph) *flowchart.FlowchartInput {
	in := &flowchart.FlowchartInput{
		Nodes: make([]flowchart.InputNode, 0, len(g.Nodes)),
	}
	for _, n := range g.Nodes {
		in.Nodes = append(in.Nodes, flowchart.InputNode{
			ID:    n.ID,
			Type:  string(n.Type),
			Label: n.Label,
			Style: n.Style,
		})
	}
	for _, e := range g.Edges {
		in.Edges = append(in.Edges, flowchart.InputEdge{
			From:  e.Source,
			To:    e.Target,
			Label: e.Label,
			Style: e.Style,
		})
	}

	opts := g.Options
	in.Options = &flowchart.InputOptions{
		Algorithm:   &opts.Algorithm,
		Direction:   &opts.Direction,
		NodeSpacing: &opts.NodeSpacing,
		RankSpacing: &opts.RankSpacing,
		Padding:     &opts.Padding,
	}
	return in
}

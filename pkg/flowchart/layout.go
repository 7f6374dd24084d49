package flowchart

import "context"

// Layouter is implemented by layout engines that place a FlowchartGraph.
// Implementations must not mutate the input graph.
type Layouter interface {
	Layout(ctx context.Context, g *FlowchartGraph) (*LayoutedGraph, error)
}

// Point is a position in layout coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// LayoutedNode is a node with its computed box.
type LayoutedNode struct {
	GraphNode `yaml:",inline"`
	X         float64 `json:"x" yaml:"x"`
	Y         float64 `json:"y" yaml:"y"`
	Width     float64 `json:"width" yaml:"width"`
	Height    float64 `json:"height" yaml:"height"`
}

// LayoutedEdge is an edge with its routed polyline.
type LayoutedEdge struct {
	GraphEdge   `yaml:",inline"`
	Points      [][2]float64 `json:"points" yaml:"points"`
	SourcePoint Point        `json:"sourcePoint" yaml:"sourcePoint"`
	TargetPoint Point        `json:"targetPoint" yaml:"targetPoint"`
}

// LayoutedGraph is the output of a Layouter.
type LayoutedGraph struct {
	Nodes   []LayoutedNode `json:"nodes" yaml:"nodes"`
	Edges   []LayoutedEdge `json:"edges" yaml:"edges"`
	Options LayoutOptions  `json:"options" yaml:"options"`
	Width   float64        `json:"width" yaml:"width"`
	Height  float64        `json:"height" yaml:"height"`
}

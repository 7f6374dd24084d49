// Package flowchart defines the graph model produced by the flowchart DSL
// front end and consumed by layout and export stages.
package flowchart

import (
	"fmt"
	"strconv"
	"strings"
)

// ShapeKind determines how a node is drawn downstream.
type ShapeKind string

const (
	ShapeRectangle ShapeKind = "rectangle"
	ShapeDiamond   ShapeKind = "diamond"
	ShapeEllipse   ShapeKind = "ellipse"
	ShapeDatabase  ShapeKind = "database"
)

// Valid reports whether k is one of the four known shapes.
func (k ShapeKind) Valid() bool {
	switch k {
	case ShapeRectangle, ShapeDiamond, ShapeEllipse, ShapeDatabase:
		return true
	}
	return false
}

// FlowDirection is the rank direction handed to the layout stage.
type FlowDirection string

const (
	DirectionTB FlowDirection = "TB"
	DirectionBT FlowDirection = "BT"
	DirectionLR FlowDirection = "LR"
	DirectionRL FlowDirection = "RL"
)

// ParseDirection upper-cases s and returns the matching direction.
// ok is false for anything other than TB, BT, LR or RL.
func ParseDirection(s string) (dir FlowDirection, ok bool) {
	switch d := FlowDirection(strings.ToUpper(s)); d {
	case DirectionTB, DirectionBT, DirectionLR, DirectionRL:
		return d, true
	}
	return "", false
}

// LayoutAlgorithm selects the layout strategy of the downstream stage.
type LayoutAlgorithm string

const (
	AlgorithmLayered LayoutAlgorithm = "layered"
	AlgorithmTree    LayoutAlgorithm = "tree"
	AlgorithmForce   LayoutAlgorithm = "force"
)

// ParseAlgorithm returns the algorithm named by s (case-insensitive).
func ParseAlgorithm(s string) (alg LayoutAlgorithm, ok bool) {
	switch a := LayoutAlgorithm(strings.ToLower(s)); a {
	case AlgorithmLayered, AlgorithmTree, AlgorithmForce:
		return a, true
	}
	return "", false
}

// StrokeStyle is the line style of a node border or an edge.
type StrokeStyle string

const (
	StrokeSolid  StrokeStyle = "solid"
	StrokeDashed StrokeStyle = "dashed"
	StrokeDotted StrokeStyle = "dotted"
)

// FillStyle is the fill pattern of a node.
type FillStyle string

const (
	FillSolid      FillStyle = "solid"
	FillHachure    FillStyle = "hachure"
	FillCrossHatch FillStyle = "cross-hatch"
)

// ArrowheadType is the marker drawn at an edge end. The empty value means none.
type ArrowheadType string

const (
	ArrowheadArrow    ArrowheadType = "arrow"
	ArrowheadBar      ArrowheadType = "bar"
	ArrowheadDot      ArrowheadType = "dot"
	ArrowheadTriangle ArrowheadType = "triangle"
)

// NodeStyle holds optional visual overrides for a node.
type NodeStyle struct {
	BackgroundColor string      `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	StrokeColor     string      `json:"strokeColor,omitempty" yaml:"strokeColor,omitempty"`
	StrokeWidth     *float64    `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty"`
	StrokeStyle     StrokeStyle `json:"strokeStyle,omitempty" yaml:"strokeStyle,omitempty"`
	FillStyle       FillStyle   `json:"fillStyle,omitempty" yaml:"fillStyle,omitempty"`
	Opacity         *float64    `json:"opacity,omitempty" yaml:"opacity,omitempty"`
	FontSize        *float64    `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	FontFamily      *int        `json:"fontFamily,omitempty" yaml:"fontFamily,omitempty"`
	Roughness       *float64    `json:"roughness,omitempty" yaml:"roughness,omitempty"`
}

// EdgeStyle holds optional visual overrides for an edge.
type EdgeStyle struct {
	StrokeColor    string        `json:"strokeColor,omitempty" yaml:"strokeColor,omitempty"`
	StrokeWidth    *float64      `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty"`
	StrokeStyle    StrokeStyle   `json:"strokeStyle,omitempty" yaml:"strokeStyle,omitempty"`
	StartArrowhead ArrowheadType `json:"startArrowhead,omitempty" yaml:"startArrowhead,omitempty"`
	EndArrowhead   ArrowheadType `json:"endArrowhead,omitempty" yaml:"endArrowhead,omitempty"`
	Roughness      *float64      `json:"roughness,omitempty" yaml:"roughness,omitempty"`
}

// GraphNode is one deduplicated node. Two DSL node tokens with the same
// shape and trimmed label resolve to the same GraphNode.
type GraphNode struct {
	ID    string     `json:"id" yaml:"id"`
	Type  ShapeKind  `json:"type" yaml:"type"`
	Label string     `json:"label" yaml:"label"`
	Style *NodeStyle `json:"style,omitempty" yaml:"style,omitempty"`
}

// GraphEdge is a directed connection between two nodes of the same graph.
type GraphEdge struct {
	ID     string     `json:"id" yaml:"id"`
	Source string     `json:"source" yaml:"source"`
	Target string     `json:"target" yaml:"target"`
	Label  string     `json:"label,omitempty" yaml:"label,omitempty"`
	Style  *EdgeStyle `json:"style,omitempty" yaml:"style,omitempty"`
}

// Dashed reports whether the edge carries a dashed stroke override.
func (e GraphEdge) Dashed() bool {
	return e.Style != nil && e.Style.StrokeStyle == StrokeDashed
}

// LayoutOptions configures the downstream layout stage.
type LayoutOptions struct {
	Algorithm   LayoutAlgorithm `json:"algorithm" yaml:"algorithm"`
	Direction   FlowDirection   `json:"direction" yaml:"direction"`
	NodeSpacing int             `json:"nodeSpacing" yaml:"nodeSpacing"`
	RankSpacing int             `json:"rankSpacing" yaml:"rankSpacing"`
	Padding     int             `json:"padding" yaml:"padding"`
}

// DefaultLayoutOptions returns the options used when no directive overrides them.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{
		Algorithm:   AlgorithmLayered,
		Direction:   DirectionTB,
		NodeSpacing: 50,
		RankSpacing: 80,
		Padding:     50,
	}
}

// FlowchartGraph is the aggregate produced by one parse call.
// Nodes keep first-seen order; edges keep source-text order.
type FlowchartGraph struct {
	Nodes   []GraphNode   `json:"nodes" yaml:"nodes"`
	Edges   []GraphEdge   `json:"edges" yaml:"edges"`
	Options LayoutOptions `json:"options" yaml:"options"`
}

// Node returns the node with the given id, or nil.
func (g *FlowchartGraph) Node(id string) *GraphNode {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// FindNode returns the node with the given shape and label, or nil.
func (g *FlowchartGraph) FindNode(shape ShapeKind, label string) *GraphNode {
	for i := range g.Nodes {
		if g.Nodes[i].Type == shape && g.Nodes[i].Label == label {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Check verifies the structural invariants of the graph: unique node and
// edge ids and edge endpoints that exist. Repeated (shape, label) pairs are
// reported as warnings: the DSL never produces them, programmatic input may.
func (g *FlowchartGraph) Check() *ValidationResult {
	result := &ValidationResult{}

	nodeIDs := make(map[string]bool, len(g.Nodes))
	keys := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		path := "nodes[" + strconv.Itoa(i) + "]"
		if n.ID == "" {
			result.AddError(path+".id", ErrCodeValidation, "node id is empty")
		} else if nodeIDs[n.ID] {
			result.AddErrorf(path+".id", ErrCodeValidation, "duplicate node id %q", n.ID)
		} else {
			nodeIDs[n.ID] = true
		}

		if !n.Type.Valid() {
			result.AddErrorf(path+".type", ErrCodeValidation, "unknown shape %q", n.Type)
		}
		key := string(n.Type) + ":" + n.Label
		if keys[key] {
			result.AddWarning(path, ErrCodeValidation, fmt.Sprintf("duplicate %s node %q", n.Type, n.Label))
		}
		keys[key] = true
	}

	edgeIDs := make(map[string]bool, len(g.Edges))
	for i, e := range g.Edges {
		path := "edges[" + strconv.Itoa(i) + "]"
		if e.ID == "" {
			result.AddError(path+".id", ErrCodeValidation, "edge id is empty")
		} else if edgeIDs[e.ID] {
			result.AddErrorf(path+".id", ErrCodeValidation, "duplicate edge id %q", e.ID)
		}
		edgeIDs[e.ID] = true

		if !nodeIDs[e.Source] {
			result.AddErrorf(path+".source", ErrCodeValidation, "edge source %q is not a node", e.Source)
		}
		if !nodeIDs[e.Target] {
			result.AddErrorf(path+".target", ErrCodeValidation, "edge target %q is not a node", e.Target)
		}
	}

	return result
}

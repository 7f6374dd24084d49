package diagram

import (
	"fmt"
	"strings"

	"github.com/rendis/flowdsl/pkg/flowchart"
)

var dotShapes = map[flowchart.ShapeKind]string{
	flowchart.ShapeRectangle: "box",
	flowchart.ShapeDiamond:   "diamond",
	flowchart.ShapeEllipse:   "ellipse",
	flowchart.ShapeDatabase:  "cylinder",
}

// RenderDOT renders a graph as a Graphviz digraph. Nodes and edges keep
// graph order so output is deterministic for a given graph.
func RenderDOT(g *flowchart.FlowchartGraph) string {
	var b strings.Builder

	b.WriteString("digraph flowchart {\n")

	dir := g.Options.Direction
	if dir == "" {
		dir = flowchart.DirectionTB
	}
	fmt.Fprintf(&b, "  graph [rankdir=%s", dir)
	if g.Options.NodeSpacing > 0 {
		// Graphviz spacing is in inches.
		fmt.Fprintf(&b, ", nodesep=%s", inches(g.Options.NodeSpacing))
	}
	if g.Options.RankSpacing > 0 {
		fmt.Fprintf(&b, ", ranksep=%s", inches(g.Options.RankSpacing))
	}
	b.WriteString("]\n\n")

	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
		shape, ok := dotShapes[n.Type]
		if !ok {
			shape = "box"
		}
		attrs := []string{"label=" + dotQuote(firstLine(n.Label)), "shape=" + shape}
		if n.Style != nil {
			if n.Style.BackgroundColor != "" {
				attrs = append(attrs, "style=filled", "fillcolor="+dotQuote(n.Style.BackgroundColor))
			}
			if n.Style.StrokeColor != "" {
				attrs = append(attrs, "color="+dotQuote(n.Style.StrokeColor))
			}
		}
		fmt.Fprintf(&b, "  %s [%s]\n", dotQuote(n.ID), strings.Join(attrs, ", "))
	}

	if len(g.Edges) > 0 {
		b.WriteString("\n")
	}
	for _, e := range g.Edges {
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		var attrs []string
		if e.Label != "" {
			attrs = append(attrs, "label="+dotQuote(firstLine(e.Label)))
		}
		if e.Style != nil {
			switch e.Style.StrokeStyle {
			case flowchart.StrokeDashed:
				attrs = append(attrs, "style=dashed")
			case flowchart.StrokeDotted:
				attrs = append(attrs, "style=dotted")
			}
			if e.Style.StrokeColor != "" {
				attrs = append(attrs, "color="+dotQuote(e.Style.StrokeColor))
			}
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&b, "  %s -> %s [%s]\n", dotQuote(e.Source), dotQuote(e.Target), strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&b, "  %s -> %s\n", dotQuote(e.Source), dotQuote(e.Target))
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// dotQuote returns s as a double-quoted DOT string.
func dotQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// inches converts layout pixels (72 per inch) to a DOT length.
func inches(px int) string {
	return fmt.Sprintf("%.2f", float64(px)/72)
}

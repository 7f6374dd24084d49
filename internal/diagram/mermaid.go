package diagram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rendis/flowdsl/pkg/flowchart"
)

// RenderMermaid renders a graph as a Mermaid flowchart string.
func RenderMermaid(g *flowchart.FlowchartGraph) string {
	var b strings.Builder

	dir := g.Options.Direction
	if dir == "" {
		dir = flowchart.DirectionTB
	}
	fmt.Fprintf(&b, "flowchart %s\n", dir)

	ids := mermaidIDs(g.Nodes)

	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "    %s\n", mermaidNodeDef(ids[n.ID], n))
	}

	for _, e := range g.Edges {
		src, okSrc := ids[e.Source]
		dst, okDst := ids[e.Target]
		if !okSrc || !okDst {
			continue
		}
		arrow := "-->"
		if e.Style != nil && (e.Style.StrokeStyle == flowchart.StrokeDashed || e.Style.StrokeStyle == flowchart.StrokeDotted) {
			arrow = "-.->"
		}
		label := ""
		if e.Label != "" {
			label = "|\"" + mermaidEscapeLabel(firstLine(e.Label)) + "\"|"
		}
		fmt.Fprintf(&b, "    %s %s%s %s\n", src, arrow, label, dst)
	}

	// Style overrides.
	for _, n := range g.Nodes {
		if css := mermaidNodeStyle(n.Style); css != "" {
			fmt.Fprintf(&b, "    style %s %s\n", ids[n.ID], css)
		}
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(id string, n flowchart.GraphNode) string {
	label := mermaidEscapeLabel(firstLine(n.Label))

	switch n.Type {
	case flowchart.ShapeDiamond:
		return fmt.Sprintf("%s{\"%s\"}", id, label)
	case flowchart.ShapeEllipse:
		return fmt.Sprintf("%s([\"%s\"])", id, label)
	case flowchart.ShapeDatabase:
		return fmt.Sprintf("%s[(\"%s\")]", id, label)
	default: // rectangle
		return fmt.Sprintf("%s[\"%s\"]", id, label)
	}
}

// mermaidIDs maps graph ids to unique Mermaid-safe identifiers.
func mermaidIDs(nodes []flowchart.GraphNode) map[string]string {
	ids := make(map[string]string, len(nodes))
	taken := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		safe := mermaidSafeID(n.ID)
		if safe == "" || taken[safe] || strings.EqualFold(safe, "end") {
			safe = "n" + strconv.Itoa(i) + "_" + safe
		}
		taken[safe] = true
		ids[n.ID] = safe
	}
	return ids
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
// Replaces dots, dashes and spaces with underscores.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

// mermaidEscapeLabel escapes characters that end a quoted Mermaid label.
func mermaidEscapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

func mermaidNodeStyle(s *flowchart.NodeStyle) string {
	if s == nil {
		return ""
	}
	var parts []string
	if s.BackgroundColor != "" {
		parts = append(parts, "fill:"+s.BackgroundColor)
	}
	if s.StrokeColor != "" {
		parts = append(parts, "stroke:"+s.StrokeColor)
	}
	if s.StrokeWidth != nil {
		parts = append(parts, "stroke-width:"+strconv.FormatFloat(*s.StrokeWidth, 'f', -1, 64)+"px")
	}
	if s.StrokeStyle == flowchart.StrokeDashed {
		parts = append(parts, "stroke-dasharray:5 5")
	}
	return strings.Join(parts, ",")
}

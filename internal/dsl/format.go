package dsl

import (
	"fmt"
	"strings"

	"github.com/rendis/flowdsl/pkg/flowchart"
)

// Format serializes a graph back to canonical DSL text: directives for
// options that differ from the defaults, one declaration per node in node
// order, then one line per edge in edge order.
//
// Parsing the output yields an isomorphic graph (same shapes and labels,
// same edge endpoints by label) as long as node labels are trimmed, contain
// balanced delimiters of their own shape, and database labels contain no
// "]]". @rankspacing, @padding and @algorithm lines need
// WithExtendedDirectives to be read back. Edge styles other than dashed
// are not representable and are dropped.
func Format(g *flowchart.FlowchartGraph) string {
	var b strings.Builder

	writeDirectives(&b, g.Options)

	for _, n := range g.Nodes {
		b.WriteString(nodeSyntax(n))
		b.WriteByte('\n')
	}

	for _, e := range g.Edges {
		src, dst := g.Node(e.Source), g.Node(e.Target)
		if src == nil || dst == nil {
			continue
		}
		arrow := "->"
		if e.Dashed() {
			arrow = "-->"
		}
		if e.Label != "" {
			fmt.Fprintf(&b, "%s %s %s %s %s\n", nodeSyntax(*src), arrow, quoteLabel(e.Label), arrow, nodeSyntax(*dst))
		} else {
			fmt.Fprintf(&b, "%s %s %s\n", nodeSyntax(*src), arrow, nodeSyntax(*dst))
		}
	}

	return b.String()
}

func writeDirectives(b *strings.Builder, opts flowchart.LayoutOptions) {
	def := flowchart.DefaultLayoutOptions()
	if opts.Direction != def.Direction {
		fmt.Fprintf(b, "@direction %s\n", opts.Direction)
	}
	if opts.NodeSpacing != def.NodeSpacing {
		fmt.Fprintf(b, "@spacing %d\n", opts.NodeSpacing)
	}
	if opts.RankSpacing != def.RankSpacing {
		fmt.Fprintf(b, "@rankspacing %d\n", opts.RankSpacing)
	}
	if opts.Padding != def.Padding {
		fmt.Fprintf(b, "@padding %d\n", opts.Padding)
	}
	if opts.Algorithm != def.Algorithm {
		fmt.Fprintf(b, "@algorithm %s\n", opts.Algorithm)
	}
}

// nodeSyntax returns the DSL form of a node.
func nodeSyntax(n flowchart.GraphNode) string {
	switch n.Type {
	case flowchart.ShapeDiamond:
		return "{" + n.Label + "}"
	case flowchart.ShapeEllipse:
		return "(" + n.Label + ")"
	case flowchart.ShapeDatabase:
		return "[[" + n.Label + "]]"
	default:
		// A leading space keeps "[[" from reading as a database node.
		if strings.HasPrefix(n.Label, "[") {
			return "[ " + n.Label + "]"
		}
		return "[" + n.Label + "]"
	}
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quoteLabel(s string) string {
	return `"` + labelEscaper.Replace(s) + `"`
}

package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rendis/flowdsl/pkg/flowchart"
)

// boxFrame holds the drawing characters of one node shape.
type boxFrame struct {
	topLeft, topRight, bottomLeft, bottomRight string
	horizontal, left, right                    string
}

var frames = map[flowchart.ShapeKind]boxFrame{
	flowchart.ShapeRectangle: {"┌", "┐", "└", "┘", "─", "│", "│"},
	flowchart.ShapeEllipse:   {"╭", "╮", "╰", "╯", "─", "(", ")"},
	flowchart.ShapeDiamond:   {"/", "\\", "\\", "/", "─", "<", ">"},
	flowchart.ShapeDatabase:  {"╒", "╕", "╘", "╛", "═", "│", "│"},
}

// RenderASCII renders a graph as a text diagram: one row of boxes per level
// followed by the edge list.
func RenderASCII(g *flowchart.FlowchartGraph) string {
	var b strings.Builder

	levels := Levels(g)
	for i, level := range levels {
		boxes := make([]asciiBox, 0, len(level))
		for _, id := range level {
			if n := g.Node(id); n != nil {
				boxes = append(boxes, makeBox(n))
			}
		}

		renderBoxRow(&b, boxes)

		if i < len(levels)-1 {
			renderConnector(&b, boxes)
		}
	}

	if len(g.Edges) > 0 {
		b.WriteString("\n--- edges ---\n")
		for _, e := range g.Edges {
			src, dst := g.Node(e.Source), g.Node(e.Target)
			if src == nil || dst == nil {
				continue
			}
			arrow := "─→"
			if e.Dashed() {
				arrow = "╌→"
			}
			label := ""
			if e.Label != "" {
				label = fmt.Sprintf(" [%s]", firstLine(e.Label))
			}
			fmt.Fprintf(&b, "  %s %s %s%s\n", firstLine(src.Label), arrow, firstLine(dst.Label), label)
		}
	}

	return b.String()
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

// makeBox creates a box for a node using the frame of its shape.
func makeBox(n *flowchart.GraphNode) asciiBox {
	frame, ok := frames[n.Type]
	if !ok {
		frame = frames[flowchart.ShapeRectangle]
	}

	label := firstLine(n.Label)
	inner := utf8.RuneCountInString(label) + 2 // 1 padding each side

	lines := []string{
		frame.topLeft + strings.Repeat(frame.horizontal, inner) + frame.topRight,
		frame.left + " " + label + " " + frame.right,
		frame.bottomLeft + strings.Repeat(frame.horizontal, inner) + frame.bottomRight,
	}
	return asciiBox{lines: lines, width: inner + 2}
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}

	height := 0
	for _, box := range boxes {
		height = max(height, len(box.lines))
	}

	for row := 0; row < height; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector under the center of each box.
func renderConnector(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}
	var stem, head strings.Builder
	for i, box := range boxes {
		if i > 0 {
			stem.WriteString("  ")
			head.WriteString("  ")
		}
		mid := box.width / 2
		stem.WriteString(strings.Repeat(" ", mid) + "│" + strings.Repeat(" ", box.width-mid-1))
		head.WriteString(strings.Repeat(" ", mid) + "▼" + strings.Repeat(" ", box.width-mid-1))
	}
	b.WriteString(strings.TrimRight(stem.String(), " ") + "\n")
	b.WriteString(strings.TrimRight(head.String(), " ") + "\n")
}

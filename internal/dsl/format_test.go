package dsl

import (
	"testing"

	"github.com/rendis/flowdsl/internal/identity"
	"github.com/rendis/flowdsl/pkg/flowchart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shapeOf describes a node as "shape:label" for isomorphism checks.
func shapeOf(n *flowchart.GraphNode) string {
	return string(n.Type) + ":" + n.Label
}

// assertIsomorphic compares two graphs by node shape/label and edge endpoints.
func assertIsomorphic(t *testing.T, want, got *flowchart.FlowchartGraph) {
	t.Helper()
	require.Len(t, got.Nodes, len(want.Nodes))
	for i := range want.Nodes {
		assert.Equal(t, shapeOf(&want.Nodes[i]), shapeOf(&got.Nodes[i]))
	}
	require.Len(t, got.Edges, len(want.Edges))
	for i, we := range want.Edges {
		ge := got.Edges[i]
		assert.Equal(t, shapeOf(want.Node(we.Source)), shapeOf(got.Node(ge.Source)))
		assert.Equal(t, shapeOf(want.Node(we.Target)), shapeOf(got.Node(ge.Target)))
		assert.Equal(t, we.Label, ge.Label)
		assert.Equal(t, we.Dashed(), ge.Dashed())
	}
	assert.Equal(t, want.Options, got.Options)
}

func TestFormatCanonical(t *testing.T) {
	g := parseSeq("@direction LR\n(Start) -> [Work] --> \"maybe\" --> {Ok?}\n[[DB]]")

	want := "@direction LR\n" +
		"(Start)\n" +
		"[Work]\n" +
		"{Ok?}\n" +
		"[[DB]]\n" +
		"(Start) -> [Work]\n" +
		"[Work] --> \"maybe\" --> {Ok?}\n"
	assert.Equal(t, want, Format(g))
}

func TestFormatDefaultsEmitNoDirectives(t *testing.T) {
	assert.Equal(t, "[A]\n", Format(parseSeq("[A]")))
	assert.Equal(t, "", Format(parseSeq("")))
}

func TestFormatExtendedOptions(t *testing.T) {
	g := parseSeq("@spacing 10\n@rankspacing 20\n@padding 0\n@algorithm tree", WithExtendedDirectives(true))
	assert.Equal(t, "@spacing 10\n@rankspacing 20\n@padding 0\n@algorithm tree\n", Format(g))
}

func TestFormatRoundTrip(t *testing.T) {
	inputs := []string{
		"[A] -> [B] -> [C]",
		"[A]->[B]\n[B]->[C]\n[C] --> [A]",
		`(Start) -> [Enter Credentials] -> {Valid?}
{Valid?} -> "yes" -> [Dashboard] -> (End)
{Valid?} -> "no" -> [Show Error] -> [Enter Credentials]`,
		`[A] --> "say \"hi\" \\ bye" --> [[Store]]`,
		"[outer [inner] text] -> {a {b}} -> (f(x))",
		"[[x]] -> [[y]]\n[lonely]",
		"[[x]] -> [ [not db]]",
		"[A] -> [A]",
		"@direction RL\n@spacing 12\n[A] -> (B)",
		"[multi\nline] -> \"edge\nlabel\" -> [B]",
		"[] -> {}",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			first := parseSeq(in)
			text := Format(first)
			second := Parse(text, WithIDGenerator(identity.Sequence("rt")))
			assertIsomorphic(t, first, second)
			assert.Equal(t, text, Format(second), "formatting is a fixed point")
		})
	}
}

func TestFormatSkipsDanglingEdges(t *testing.T) {
	g := &flowchart.FlowchartGraph{
		Nodes:   []flowchart.GraphNode{{ID: "a", Type: flowchart.ShapeRectangle, Label: "A"}},
		Edges:   []flowchart.GraphEdge{{ID: "e", Source: "a", Target: "missing"}},
		Options: flowchart.DefaultLayoutOptions(),
	}
	assert.Equal(t, "[A]\n", Format(g))
}

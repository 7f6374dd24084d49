package dsl

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/rendis/flowdsl/internal/identity"
	"github.com/rendis/flowdsl/pkg/flowchart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseSeq parses with deterministic ids.
func parseSeq(input string, opts ...Option) *flowchart.FlowchartGraph {
	opts = append([]Option{WithIDGenerator(identity.Sequence("id"))}, opts...)
	return Parse(input, opts...)
}

// labelOf returns the label of the node with the given id.
func labelOf(t *testing.T, g *flowchart.FlowchartGraph, id string) string {
	t.Helper()
	n := g.Node(id)
	require.NotNil(t, n, "node %s", id)
	return n.Label
}

// edgePairs returns "src->dst" by label for every edge.
func edgePairs(t *testing.T, g *flowchart.FlowchartGraph) []string {
	t.Helper()
	out := make([]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		out = append(out, labelOf(t, g, e.Source)+"->"+labelOf(t, g, e.Target))
	}
	return out
}

func TestBuildSingleShapes(t *testing.T) {
	tests := []struct {
		input string
		shape flowchart.ShapeKind
	}{
		{"[X]", flowchart.ShapeRectangle},
		{"{X}", flowchart.ShapeDiamond},
		{"(X)", flowchart.ShapeEllipse},
		{"[[X]]", flowchart.ShapeDatabase},
	}
	for _, tc := range tests {
		t.Run(string(tc.shape), func(t *testing.T) {
			g := parseSeq(tc.input)
			require.Len(t, g.Nodes, 1)
			assert.Equal(t, tc.shape, g.Nodes[0].Type)
			assert.Equal(t, "X", g.Nodes[0].Label)
			assert.Empty(t, g.Edges)
		})
	}
}

func TestBuildSimpleConnection(t *testing.T) {
	g := parseSeq("[A] -> [B]")
	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, g.Nodes[0].ID, g.Edges[0].Source)
	assert.Equal(t, g.Nodes[1].ID, g.Edges[0].Target)
	assert.Nil(t, g.Edges[0].Style)
	assert.Empty(t, g.Edges[0].Label)
}

func TestBuildChain(t *testing.T) {
	g := parseSeq("[A] -> [B] -> [C]")
	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, g.Edges[0].Target, g.Edges[1].Source)
	assert.Equal(t, []string{"A->B", "B->C"}, edgePairs(t, g))
}

func TestBuildLabeledEdge(t *testing.T) {
	g := parseSeq(`[A] -> "yes" -> [B]`)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "yes", g.Edges[0].Label)
}

func TestBuildDashedEdge(t *testing.T) {
	g := parseSeq("[A] --> [B]")
	require.Len(t, g.Edges, 1)
	require.NotNil(t, g.Edges[0].Style)
	assert.Equal(t, flowchart.StrokeDashed, g.Edges[0].Style.StrokeStyle)
	assert.True(t, g.Edges[0].Dashed())
}

func TestBuildLastArrowDecidesDashed(t *testing.T) {
	g := parseSeq("[A] --> \"l\" -> [B]\n[C] -> \"l\" --> [D]\n[E] --> \"l\" --> [F]")
	require.Len(t, g.Edges, 3)
	assert.False(t, g.Edges[0].Dashed())
	assert.True(t, g.Edges[1].Dashed())
	assert.True(t, g.Edges[2].Dashed())
	for _, e := range g.Edges {
		assert.Equal(t, "l", e.Label)
	}
}

func TestBuildPendingStateClearedAfterEdge(t *testing.T) {
	g := parseSeq(`[A] --> "first" -> [B] -> [C]`)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, "first", g.Edges[0].Label)
	assert.Empty(t, g.Edges[1].Label)
	assert.Nil(t, g.Edges[1].Style)
}

func TestBuildLaterLabelWins(t *testing.T) {
	g := parseSeq(`[A] -> "a" -> "b" -> [B]`)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "b", g.Edges[0].Label)
}

func TestBuildEmptyQuotedLabelMeansNoLabel(t *testing.T) {
	g := parseSeq(`[A] -> "" -> [B]`)
	require.Len(t, g.Edges, 1)
	assert.Empty(t, g.Edges[0].Label)
}

func TestBuildAdjacentNodesConnect(t *testing.T) {
	// No arrow is needed: a second node on the line closes a connection.
	g := parseSeq("[A] [B]")
	assert.Equal(t, []string{"A->B"}, edgePairs(t, g))
}

func TestBuildLabelBeforeFirstNodeIsKept(t *testing.T) {
	// Pending fields only clear on an edge or a newline.
	g := parseSeq(`"early" --> [A] -> [B]`)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "early", g.Edges[0].Label)
	assert.False(t, g.Edges[0].Dashed(), "the -> before [B] resets the dashed flag")
}

func TestBuildDeduplication(t *testing.T) {
	g := parseSeq("[A]->[B]\n[B]->[C]")
	require.Len(t, g.Nodes, 3)
	bCount := 0
	for _, n := range g.Nodes {
		if n.Label == "B" {
			bCount++
		}
	}
	assert.Equal(t, 1, bCount)
	assert.Equal(t, []string{"A->B", "B->C"}, edgePairs(t, g))
}

func TestBuildDedupUsesShapeAndTrimmedLabel(t *testing.T) {
	g := parseSeq("[ A ] -> [A]\n[A] -> (A) -> {A} -> [[A]]")
	require.Len(t, g.Nodes, 4)
	require.Len(t, g.Edges, 4)
	assert.Equal(t, g.Edges[0].Source, g.Edges[0].Target, "[ A ] and [A] are the same node")
}

func TestBuildNodeOrderIsFirstSeen(t *testing.T) {
	g := parseSeq("[C] -> [A]\n[B] -> [C]\n[A]")
	labels := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		labels = append(labels, n.Label)
	}
	assert.Equal(t, []string{"C", "A", "B"}, labels)
}

func TestBuildNewlineIsolatesChains(t *testing.T) {
	g := parseSeq("[A] -> [B]\n[C] -> [D]")
	require.Len(t, g.Edges, 2)
	assert.Equal(t, []string{"A->B", "C->D"}, edgePairs(t, g))
}

func TestBuildNewlineDropsPendingState(t *testing.T) {
	g := parseSeq("[A] --> \"dangling\"\n[B] -> [C]")
	require.Len(t, g.Edges, 1)
	assert.Equal(t, []string{"B->C"}, edgePairs(t, g))
	assert.Empty(t, g.Edges[0].Label)
	assert.False(t, g.Edges[0].Dashed())
}

func TestBuildDanglingArrow(t *testing.T) {
	g := parseSeq("[A] ->")
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)

	g = parseSeq("[A] ->\n[B]")
	assert.Len(t, g.Nodes, 2)
	assert.Empty(t, g.Edges)
}

func TestBuildCommentDoesNotBreakChain(t *testing.T) {
	g := parseSeq("[A] -> # note\n[B]")
	assert.Empty(t, g.Edges, "the newline after the comment still ends the chain")

	g = parseSeq("[A] -> [B] # -> [C]")
	assert.Equal(t, []string{"A->B"}, edgePairs(t, g))
}

func TestBuildDecisionTree(t *testing.T) {
	g := parseSeq(`
		(Start) -> [Enter Credentials] -> {Valid?}
		{Valid?} -> "yes" -> [Dashboard] -> (End)
		{Valid?} -> "no" -> [Show Error] -> [Enter Credentials]
	`)
	assert.Len(t, g.Nodes, 6)
	assert.Equal(t, []string{
		"Start->Enter Credentials",
		"Enter Credentials->Valid?",
		"Valid?->Dashboard",
		"Dashboard->End",
		"Valid?->Show Error",
		"Show Error->Enter Credentials",
	}, edgePairs(t, g))
	assert.Equal(t, "yes", g.Edges[2].Label)
	assert.Equal(t, "no", g.Edges[4].Label)
	assert.True(t, g.Check().Valid())
}

func TestBuildDeterministicIDs(t *testing.T) {
	g := parseSeq("[A] -> [B]")
	assert.Equal(t, "id1", g.Nodes[0].ID)
	assert.Equal(t, "id2", g.Nodes[1].ID)
	assert.Equal(t, "id3", g.Edges[0].ID)
}

func TestBuildDefaultGeneratorIDs(t *testing.T) {
	g := Parse("[A] -> [B]")
	require.Len(t, g.Nodes, 2)
	assert.Len(t, g.Nodes[0].ID, identity.DefaultShortLength)
	assert.NotEqual(t, g.Nodes[0].ID, g.Nodes[1].ID)
}

func TestBuildFromTokens(t *testing.T) {
	tokens := []Token{
		{Kind: TokenNode, Shape: flowchart.ShapeEllipse, Value: "S"},
		{Kind: TokenArrow, Dashed: true},
		{Kind: TokenNode, Shape: flowchart.ShapeDatabase, Value: "D"},
		{Kind: TokenKind(99), Value: "ignored"},
	}
	g := Build(tokens, WithIDGenerator(identity.Sequence("t")))
	require.Len(t, g.Edges, 1)
	assert.True(t, g.Edges[0].Dashed())
	assert.Equal(t, flowchart.ShapeDatabase, g.Nodes[1].Type)
}

func TestBuildNilGeneratorIgnored(t *testing.T) {
	g := Parse("[A]", WithIDGenerator(nil))
	require.Len(t, g.Nodes, 1)
	assert.NotEmpty(t, g.Nodes[0].ID)
}

func TestBuildEmptyInput(t *testing.T) {
	g := parseSeq("")
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Edges)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
	assert.Equal(t, flowchart.DefaultLayoutOptions(), g.Options)
}

// --- Directives ---

func TestDirectiveDirection(t *testing.T) {
	g := parseSeq("@direction LR\n[A] -> [B]")
	assert.Equal(t, flowchart.DirectionLR, g.Options.Direction)

	g = parseSeq("@direction rl")
	assert.Equal(t, flowchart.DirectionRL, g.Options.Direction)
}

func TestDirectiveInvalidKeepsPrevious(t *testing.T) {
	g := parseSeq("@direction LR\n@direction XY\n[A]")
	assert.Equal(t, flowchart.DirectionLR, g.Options.Direction)

	g = parseSeq("@direction sideways")
	assert.Equal(t, flowchart.DirectionTB, g.Options.Direction)
}

func TestDirectiveLastValidWins(t *testing.T) {
	g := parseSeq("@direction LR\n[A] -> [B]\n@direction BT\n@spacing 10\n@spacing 20")
	assert.Equal(t, flowchart.DirectionBT, g.Options.Direction)
	assert.Equal(t, 20, g.Options.NodeSpacing)
}

func TestDirectiveSpacing(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"100", 100},
		{"120px", 120},
		{"-5", -5},
		{"+7", 7},
		{"0", 0},
		{"3.9", 3},
		{"abc", 50},
		{"", 50},
		{"-", 50},
		{"99999999999999999999999", 50},
	}
	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			g := parseSeq("@spacing " + tc.value)
			assert.Equal(t, tc.want, g.Options.NodeSpacing)
		})
	}
}

func TestDirectiveIsCaseSensitive(t *testing.T) {
	g := parseSeq("@Direction LR\n@SPACING 5")
	assert.Equal(t, flowchart.DefaultLayoutOptions(), g.Options)
}

func TestDirectiveUnknownIgnored(t *testing.T) {
	g := parseSeq("@theme dark\n@padding 5\n@rankspacing 9\n@algorithm tree\n[A]")
	assert.Equal(t, flowchart.DefaultLayoutOptions(), g.Options)
	assert.Len(t, g.Nodes, 1)
}

func TestDirectiveExtended(t *testing.T) {
	g := parseSeq("@padding 5\n@rankspacing 9\n@algorithm Force\n@algorithm bogus\n@padding x",
		WithExtendedDirectives(true))
	assert.Equal(t, 5, g.Options.Padding)
	assert.Equal(t, 9, g.Options.RankSpacing)
	assert.Equal(t, flowchart.AlgorithmForce, g.Options.Algorithm)
}

func TestDirectiveMidChainKeepsChain(t *testing.T) {
	// A directive token does not reset pending state; only newlines do.
	g := parseSeq("[A] -> @direction LR")
	assert.Equal(t, flowchart.DirectionLR, g.Options.Direction)
	assert.Empty(t, g.Edges)
}

func TestWithDefaults(t *testing.T) {
	base := flowchart.DefaultLayoutOptions()
	base.Direction = flowchart.DirectionLR
	base.NodeSpacing = 5

	g := parseSeq("@spacing 7", WithDefaults(base))
	assert.Equal(t, flowchart.DirectionLR, g.Options.Direction)
	assert.Equal(t, 7, g.Options.NodeSpacing)
}

func TestParseLeadingInt(t *testing.T) {
	n, ok := parseLeadingInt("  42abc")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = parseLeadingInt("+")
	assert.False(t, ok)
}

// --- Totality and isolation ---

func TestParseIsTotal(t *testing.T) {
	inputs := []string{
		"", "\n\n\n", "[", "[[", "{", "(", "\"", "\\", "@", "@@@", "->", "-->",
		"[[]]", "[[ ]]]]", "]]]]", ")))", "}}}", "\"\\", "[A] -> \"unterminated",
		"[A] -> [B -> [C]", "{A} -> (B -> [C", "@direction", "@spacing",
		"\xff\xfe\xfd", string([]byte{0, 1, 2, 3, '[', 0, ']'}),
	}
	r := rand.New(rand.NewSource(7))
	alphabet := []byte("[]{}()\"\\-> @#\n\tAB12xyz")
	for i := 0; i < 300; i++ {
		buf := make([]byte, r.Intn(80))
		for j := range buf {
			if r.Intn(8) == 0 {
				buf[j] = byte(r.Intn(256))
			} else {
				buf[j] = alphabet[r.Intn(len(alphabet))]
			}
		}
		inputs = append(inputs, string(buf))
	}

	for i, in := range inputs {
		var g *flowchart.FlowchartGraph
		require.NotPanics(t, func() { g = parseSeq(in) }, "input %d: %q", i, in)
		require.NotNil(t, g)
		result := g.Check()
		assert.True(t, result.Valid(), "input %d: %q: %v", i, in, result.Errors)
	}
}

func TestParseConcurrentCallsAreIndependent(t *testing.T) {
	shared := identity.Sequence("c")
	const workers = 16

	graphs := make([]*flowchart.FlowchartGraph, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			input := fmt.Sprintf("[Shared] -> [W%d] -> [Shared]\n[Shared] --> [[Store]]", w)
			graphs[w] = Parse(input, WithIDGenerator(shared))
		}(w)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for w, g := range graphs {
		require.Len(t, g.Nodes, 3, "worker %d", w)
		require.Len(t, g.Edges, 3, "worker %d", w)
		assert.True(t, g.Check().Valid())
		for _, n := range g.Nodes {
			assert.False(t, seen[n.ID], "node id %s reused across parses", n.ID)
			seen[n.ID] = true
		}
	}
}

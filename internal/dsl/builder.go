package dsl

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rendis/flowdsl/pkg/flowchart"
)

// nodeKey is the deduplication key of a node: same shape and same trimmed
// label mean the same node.
type nodeKey struct {
	shape flowchart.ShapeKind
	label string
}

// buildState is the pending chain state threaded through the token fold.
// It never outlives the current line.
type buildState struct {
	lastNode      string
	hasLast       bool
	pendingLabel  string
	pendingDashed bool
}

// builder owns the per-call dedup index and the graph under construction.
type builder struct {
	cfg   config
	index map[nodeKey]string
	graph *flowchart.FlowchartGraph
}

// Build folds a token sequence into a FlowchartGraph in a single
// left-to-right pass. Incomplete chains (an arrow or label with no closing
// node) are dropped silently at the next newline or at end of input.
func Build(tokens []Token, opts ...Option) *flowchart.FlowchartGraph {
	b := &builder{
		cfg:   newConfig(opts),
		index: make(map[nodeKey]string),
	}
	b.graph = &flowchart.FlowchartGraph{
		Nodes:   []flowchart.GraphNode{},
		Edges:   []flowchart.GraphEdge{},
		Options: b.cfg.defaults,
	}

	var st buildState
	for _, tok := range tokens {
		st = b.step(st, tok)
	}
	return b.graph
}

// step applies one token to the state and returns the next state.
func (b *builder) step(st buildState, tok Token) buildState {
	switch tok.Kind {
	case TokenNewline:
		return buildState{}

	case TokenDirective:
		b.applyDirective(tok)
		return st

	case TokenNode:
		id := b.resolveNode(tok.Shape, tok.Value)
		if st.hasLast {
			b.connect(st, id)
			st.pendingLabel = ""
			st.pendingDashed = false
		}
		st.lastNode = id
		st.hasLast = true
		return st

	case TokenArrow:
		st.pendingDashed = tok.Dashed
		return st

	case TokenLabel:
		st.pendingLabel = tok.Value
		return st
	}
	return st
}

// resolveNode returns the id of the node for (shape, label), creating it on first sight.
func (b *builder) resolveNode(shape flowchart.ShapeKind, label string) string {
	key := nodeKey{shape: shape, label: label}
	if id, ok := b.index[key]; ok {
		return id
	}
	id := b.cfg.ids.NewID()
	b.index[key] = id
	b.graph.Nodes = append(b.graph.Nodes, flowchart.GraphNode{
		ID:    id,
		Type:  shape,
		Label: label,
	})
	return id
}

// connect appends the edge closing the pending connection.
func (b *builder) connect(st buildState, target string) {
	edge := flowchart.GraphEdge{
		ID:     b.cfg.ids.NewID(),
		Source: st.lastNode,
		Target: target,
		Label:  st.pendingLabel,
	}
	if st.pendingDashed {
		edge.Style = &flowchart.EdgeStyle{StrokeStyle: flowchart.StrokeDashed}
	}
	b.graph.Edges = append(b.graph.Edges, edge)
}

// directiveFunc applies a directive value to the options and reports
// whether the value was accepted.
type directiveFunc func(opts *flowchart.LayoutOptions, value string) bool

var coreDirectives = map[string]directiveFunc{
	"direction": func(opts *flowchart.LayoutOptions, value string) bool {
		dir, ok := flowchart.ParseDirection(value)
		if ok {
			opts.Direction = dir
		}
		return ok
	},
	"spacing": func(opts *flowchart.LayoutOptions, value string) bool {
		n, ok := parseLeadingInt(value)
		if ok {
			opts.NodeSpacing = n
		}
		return ok
	},
}

// extendedDirectives are only honoured with WithExtendedDirectives.
var extendedDirectives = map[string]directiveFunc{
	"rankspacing": func(opts *flowchart.LayoutOptions, value string) bool {
		n, ok := parseLeadingInt(value)
		if ok {
			opts.RankSpacing = n
		}
		return ok
	},
	"padding": func(opts *flowchart.LayoutOptions, value string) bool {
		n, ok := parseLeadingInt(value)
		if ok {
			opts.Padding = n
		}
		return ok
	},
	"algorithm": func(opts *flowchart.LayoutOptions, value string) bool {
		alg, ok := flowchart.ParseAlgorithm(value)
		if ok {
			opts.Algorithm = alg
		}
		return ok
	},
}

// applyDirective merges a directive into the graph options. Unknown names
// and rejected values leave the options untouched.
func (b *builder) applyDirective(tok Token) {
	name, value := tok.Directive()
	apply, ok := coreDirectives[name]
	if !ok && b.cfg.extended {
		apply, ok = extendedDirectives[name]
	}
	if !ok {
		return
	}
	apply(&b.graph.Options, value)
}

// parseLeadingInt reads an optionally signed base-10 integer prefix of s,
// ignoring leading whitespace and anything after the digits ("120px" is 120).
// ok is false when there are no digits or the value overflows int.
func parseLeadingInt(s string) (n int, ok bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

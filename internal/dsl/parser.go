// Package dsl implements the flowchart DSL front end: a scanner that turns
// text into tokens and a single-pass builder that turns tokens into a
// flowchart.FlowchartGraph.
//
// Syntax:
//
//	[Label]            rectangle
//	{Label}            diamond
//	(Label)            ellipse
//	[[Label]]          database
//	A -> B             connection
//	A -> "label" -> B  labeled connection
//	A --> B            dashed connection
//	@direction TB      flow direction (TB, BT, LR, RL)
//	@spacing N         node spacing
//	# comment          to end of line
//
// Parsing is total: any input, including malformed text, yields a graph.
package dsl

import (
	"github.com/rendis/flowdsl/internal/identity"
	"github.com/rendis/flowdsl/pkg/flowchart"
)

// Option configures a Parse or Build call.
type Option func(*config)

type config struct {
	ids      identity.Generator
	defaults flowchart.LayoutOptions
	extended bool
}

func newConfig(opts []Option) config {
	cfg := config{
		ids:      identity.Short(identity.DefaultShortLength),
		defaults: flowchart.DefaultLayoutOptions(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithIDGenerator sets the source of node and edge ids. A nil generator is ignored.
func WithIDGenerator(gen identity.Generator) Option {
	return func(c *config) {
		if gen != nil {
			c.ids = gen
		}
	}
}

// WithDefaults sets the options a graph starts from before directives apply.
func WithDefaults(opts flowchart.LayoutOptions) Option {
	return func(c *config) {
		c.defaults = opts
	}
}

// WithExtendedDirectives enables @rankspacing, @padding and @algorithm in
// addition to @direction and @spacing.
func WithExtendedDirectives(enabled bool) Option {
	return func(c *config) {
		c.extended = enabled
	}
}

// Parse scans and builds input in one call.
func Parse(input string, opts ...Option) *flowchart.FlowchartGraph {
	return Build(Tokenize(input), opts...)
}

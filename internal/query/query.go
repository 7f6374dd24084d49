// Package query evaluates jq expressions against the JSON form of a
// FlowchartGraph.
package query

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/itchyny/gojq"
	"github.com/rendis/flowdsl/pkg/flowchart"
)

// Engine compiles and runs jq expressions.
// Thread-safe: compiled *Code objects are cached and reused across goroutines.
type Engine struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewEngine creates an Engine with an empty code cache.
func NewEngine() *Engine {
	return &Engine{
		cache: make(map[string]*gojq.Code),
	}
}

// Run evaluates expression against the graph.
//
// jq expressions can produce multiple outputs. When there is exactly one output,
// it is returned directly. When there are multiple outputs, they are collected
// into a slice and returned as []any.
func (e *Engine) Run(ctx context.Context, expression string, g *flowchart.FlowchartGraph) (any, error) {
	results, err := e.RunAll(ctx, expression, g)
	if err != nil {
		return nil, err
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// RunAll is like Run but always returns a slice of all outputs.
func (e *Engine) RunAll(ctx context.Context, expression string, g *flowchart.FlowchartGraph) ([]any, error) {
	if expression == "" {
		return nil, flowchart.NewError(flowchart.ErrCodeQuery, "empty jq expression")
	}

	code, err := e.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	input, err := toJQValue(g)
	if err != nil {
		return nil, flowchart.NewError(flowchart.ErrCodeQuery, "graph is not JSON-encodable").WithCause(err)
	}

	iter := code.RunWithContext(ctx, input)

	var results []any
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := val.(error); isErr {
			return nil, flowchart.NewErrorf(flowchart.ErrCodeQuery,
				"jq evaluation failed for %q: %s", expression, err.Error()).
				WithCause(err).
				WithDetails(map[string]any{"expression": expression})
		}
		results = append(results, val)
	}

	return results, nil
}

// Compile reports whether expression is a valid jq program, caching it on success.
func (e *Engine) Compile(expression string) error {
	_, err := e.getOrCompile(expression)
	return err
}

// getOrCompile returns a cached compiled code or compiles and caches a new one.
func (e *Engine) getOrCompile(expression string) (*gojq.Code, error) {
	e.mu.RLock()
	if code, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return code, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if code, ok := e.cache[expression]; ok {
		return code, nil
	}

	parsed, err := gojq.Parse(expression)
	if err != nil {
		return nil, flowchart.NewErrorf(flowchart.ErrCodeQuery,
			"jq parse error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	code, err := gojq.Compile(parsed,
		// Sandbox: return empty env to block $ENV and env access.
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, flowchart.NewErrorf(flowchart.ErrCodeQuery,
			"jq compile error in %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	e.cache[expression] = code
	return code, nil
}

// toJQValue converts the graph to plain maps, slices and float64 numbers,
// the only value types gojq accepts as input.
func toJQValue(g *flowchart.FlowchartGraph) (any, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

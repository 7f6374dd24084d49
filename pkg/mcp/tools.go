package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rendis/flowdsl/internal/convert"
	"github.com/rendis/flowdsl/internal/diagram"
	"github.com/rendis/flowdsl/internal/dsl"
	"github.com/rendis/flowdsl/internal/export"
	"github.com/rendis/flowdsl/internal/markdown"
	"github.com/rendis/flowdsl/internal/validation"
	"github.com/rendis/flowdsl/pkg/flowchart"
)

// handleParse parses DSL source and encodes the graph in the requested format.
func (s *FlowServer) handleParse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("source is required"), nil
	}
	format, fmtErr := export.ParseFormat(req.GetString("format", ""))
	if fmtErr != nil {
		return mcp.NewToolResultError(fmtErr.Error()), nil
	}

	g := dsl.Parse(source, s.parseOptions(req)...)
	if format == export.FormatJSON {
		return marshalResult(g)
	}

	var buf bytes.Buffer
	if encErr := export.Encode(&buf, g, format); encErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", encErr)), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *FlowServer) handleFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("source is required"), nil
	}
	return mcp.NewToolResultText(dsl.Format(dsl.Parse(source, s.parseOptions(req)...))), nil
}

func (s *FlowServer) handleMermaid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("source is required"), nil
	}
	return mcp.NewToolResultText(diagram.RenderMermaid(dsl.Parse(source, s.parseOptions(req)...))), nil
}

// handleQuery evaluates a jq expression against the parsed graph.
func (s *FlowServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("source is required"), nil
	}
	expr, err := req.RequireString("expr")
	if err != nil {
		return mcp.NewToolResultError("expr is required"), nil
	}

	result, qErr := s.query.Run(ctx, expr, dsl.Parse(source, s.parseOptions(req)...))
	if qErr != nil {
		return mcp.NewToolResultError(qErr.Error()), nil
	}
	return marshalResult(map[string]any{"result": result})
}

// handleValidate checks either DSL source (graph warnings) or a programmatic
// input object (schema and reference errors).
func (s *FlowServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	source := req.GetString("source", "")
	_, hasInput := args["input"]

	var result *flowchart.ValidationResult
	switch {
	case hasInput:
		data, err := json.Marshal(args["input"])
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("input is not JSON-encodable: %v", err)), nil
		}
		result = s.validator.ValidateJSON(data)
	case source != "":
		result = validation.CheckGraph(dsl.Parse(source, s.parseOptions(req)...))
	default:
		return mcp.NewToolResultError("one of source or input is required"), nil
	}

	return marshalResult(map[string]any{
		"valid":    result.Valid(),
		"errors":   nonNil(result.Errors),
		"warnings": nonNil(result.Warnings),
	})
}

// handleConvert turns a programmatic input object into a graph.
func (s *FlowServer) handleConvert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["input"]
	if !ok {
		return mcp.NewToolResultError("input is required"), nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("input is not JSON-encodable: %v", err)), nil
	}

	if result := s.validator.ValidateJSON(data); !result.Valid() {
		return mcp.NewToolResultError(validationMessage(result)), nil
	}

	var in flowchart.FlowchartInput
	if err := json.Unmarshal(data, &in); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid input: %v", err)), nil
	}
	g, convErr := convert.FromInput(&in, s.ids)
	if convErr != nil {
		return mcp.NewToolResultError(convErr.Error()), nil
	}
	return marshalResult(g)
}

// handleExtract parses every DSL block of a Markdown document.
func (s *FlowServer) handleExtract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError("markdown is required"), nil
	}

	blocks := markdown.ExtractBlocks([]byte(doc))
	out := make([]map[string]any, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, map[string]any{
			"index": b.Index,
			"line":  b.Line,
			"graph": dsl.Parse(b.Source, s.parseOptions(req)...),
		})
	}
	return marshalResult(map[string]any{"blocks": out})
}

// --- Helpers ---

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}

// validationMessage renders every error of result, one per line.
func validationMessage(result *flowchart.ValidationResult) string {
	var b bytes.Buffer
	b.WriteString("invalid flowchart input:")
	for _, issue := range result.Errors {
		fmt.Fprintf(&b, "\n  %s: %s", issue.Path, issue.Message)
	}
	return b.String()
}

func nonNil(issues []flowchart.Issue) []flowchart.Issue {
	if issues == nil {
		return []flowchart.Issue{}
	}
	return issues
}

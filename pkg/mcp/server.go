// Package mcp exposes the flowchart front end as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/flowdsl/internal/dsl"
	"github.com/rendis/flowdsl/internal/identity"
	"github.com/rendis/flowdsl/internal/logging"
	"github.com/rendis/flowdsl/internal/query"
	"github.com/rendis/flowdsl/internal/validation"
)

// FlowServerDeps holds the dependencies for creating a FlowServer.
type FlowServerDeps struct {
	IDs                identity.Generator
	ExtendedDirectives bool
	Version            string
	Query              *query.Engine
	Validator          validation.Validator
	Logger             *slog.Logger
}

// FlowServer wraps an MCP server with the flowchart tool handlers.
type FlowServer struct {
	ids       identity.Generator
	extended  bool
	query     *query.Engine
	validator validation.Validator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewFlowServer creates a new FlowServer with all tools registered.
func NewFlowServer(deps FlowServerDeps) (*FlowServer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.New(os.Stderr, slog.LevelInfo)
	}
	ids := deps.IDs
	if ids == nil {
		ids = identity.Short(identity.DefaultShortLength)
	}
	q := deps.Query
	if q == nil {
		q = query.NewEngine()
	}
	v := deps.Validator
	if v == nil {
		jv, err := validation.NewJSONSchemaValidator()
		if err != nil {
			return nil, err
		}
		v = jv
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &FlowServer{
		ids:       ids,
		extended:  deps.ExtendedDirectives,
		query:     q,
		validator: v,
		logger:    logger,
	}

	mcpSrv := server.NewMCPServer(
		"flowdsl",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("flowdsl turns flowchart DSL text into graphs. Nodes are [rectangle], {diamond}, (ellipse) and [[database]]; "+
			"-> is a solid edge, --> a dashed one, \"text\" labels the next edge and @direction/@spacing set layout options. "+
			"Use flowchart.parse to get the graph, flowchart.mermaid to export it, flowchart.query to inspect it with jq "+
			"and flowchart.validate to check DSL or programmatic input."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s, nil
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *FlowServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// ServeSSE serves the tools over SSE on addr until ctx is cancelled, then
// shuts down gracefully and returns http.ErrServerClosed. baseURL is the
// public URL clients use to reach the /sse and /message endpoints.
func (s *FlowServer) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	errCh := make(chan error, 1)
	go func() { errCh <- sse.Start(addr) }()
	s.logger.Info("mcp sse server listening", "addr", addr, "base_url", baseURL)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return http.ErrServerClosed
	}
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *FlowServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *FlowServer) parseOptions(req mcp.CallToolRequest) []dsl.Option {
	return []dsl.Option{
		dsl.WithIDGenerator(s.ids),
		dsl.WithExtendedDirectives(req.GetBool("extended", s.extended)),
	}
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *FlowServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: parseTool(), Handler: s.traced("flowchart.parse", s.handleParse)},
		{Tool: formatTool(), Handler: s.traced("flowchart.format", s.handleFormat)},
		{Tool: mermaidTool(), Handler: s.traced("flowchart.mermaid", s.handleMermaid)},
		{Tool: queryTool(), Handler: s.traced("flowchart.query", s.handleQuery)},
		{Tool: validateTool(), Handler: s.traced("flowchart.validate", s.handleValidate)},
		{Tool: convertTool(), Handler: s.traced("flowchart.convert", s.handleConvert)},
		{Tool: extractTool(), Handler: s.traced("flowchart.extract", s.handleExtract)},
	}
}

// traced puts the tool name in the logging context and logs each call.
func (s *FlowServer) traced(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = logging.WithCommand(ctx, name)
		result, err := h(ctx, req)
		switch {
		case err != nil:
			s.logger.ErrorContext(ctx, "tool failed", "error", err)
		case result != nil && result.IsError:
			s.logger.DebugContext(ctx, "tool rejected call")
		default:
			s.logger.DebugContext(ctx, "tool call")
		}
		return result, err
	}
}

// --- Tool definitions ---

func sourceArg() mcp.ToolOption {
	return mcp.WithString("source", mcp.Required(), mcp.Description("Flowchart DSL text"))
}

func extendedArg() mcp.ToolOption {
	return mcp.WithBoolean("extended", mcp.Description("Honour @rankspacing, @padding and @algorithm directives"))
}

func parseTool() mcp.Tool {
	return mcp.NewTool("flowchart.parse",
		mcp.WithDescription("Parse flowchart DSL text into a graph of nodes, edges and layout options"),
		sourceArg(),
		mcp.WithString("format",
			mcp.Enum("json", "yaml", "mermaid", "dot", "ascii", "dsl"),
			mcp.Description("Output format (default: json)"),
		),
		extendedArg(),
	)
}

func formatTool() mcp.Tool {
	return mcp.NewTool("flowchart.format",
		mcp.WithDescription("Rewrite flowchart DSL text in canonical form"),
		sourceArg(),
		extendedArg(),
	)
}

func mermaidTool() mcp.Tool {
	return mcp.NewTool("flowchart.mermaid",
		mcp.WithDescription("Export flowchart DSL text as a Mermaid flowchart"),
		sourceArg(),
		extendedArg(),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("flowchart.query",
		mcp.WithDescription("Run a jq expression against the parsed graph"),
		sourceArg(),
		mcp.WithString("expr", mcp.Required(), mcp.Description("jq expression, e.g. [.nodes[] | select(.type == \"diamond\") | .label]")),
		extendedArg(),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("flowchart.validate",
		mcp.WithDescription("Check DSL text for graph warnings or a programmatic flowchart input object against its schema"),
		mcp.WithString("source", mcp.Description("Flowchart DSL text")),
		mcp.WithObject("input", mcp.Description("Programmatic flowchart input: {nodes: [{id, type, label}], edges: [{from, to, label}], options}")),
	)
}

func convertTool() mcp.Tool {
	return mcp.NewTool("flowchart.convert",
		mcp.WithDescription("Convert a programmatic flowchart input object into a graph"),
		mcp.WithObject("input", mcp.Required(), mcp.Description("Programmatic flowchart input: {nodes: [{id, type, label}], edges: [{from, to, label}], options}")),
	)
}

func extractTool() mcp.Tool {
	return mcp.NewTool("flowchart.extract",
		mcp.WithDescription("Parse every ```flowchart fenced block of a Markdown document"),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown document")),
		extendedArg(),
	)
}

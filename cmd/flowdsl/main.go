// Command flowdsl parses flowchart DSL text and serves it over HTTP and MCP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rendis/flowdsl/internal/identity"
	"github.com/rendis/flowdsl/internal/logging"
)

// errReported signals that the command already explained its failure on
// stdout or stderr and only the exit status is left to set.
var errReported = errors.New("reported")

// cliEnv carries the process streams and configuration into subcommands.
type cliEnv struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    Config
	level  *slog.LevelVar
	logger *slog.Logger
}

func newCLIEnv(stdin io.Reader, stdout, stderr io.Writer, cfg Config) *cliEnv {
	level := new(slog.LevelVar)
	if l, ok := logging.ParseLevel(cfg.LogLevel); ok {
		level.Set(l)
	}
	return &cliEnv{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		level:  level,
		logger: logging.New(stderr, level),
	}
}

// ids returns the generator selected by scheme, falling back to the configured one.
func (e *cliEnv) ids(scheme string) (identity.Generator, error) {
	if scheme == "" {
		scheme = e.cfg.IDScheme
	}
	return identity.FromScheme(scheme)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := newCLIEnv(os.Stdin, os.Stdout, os.Stderr, loadConfig())
	os.Exit(run(ctx, os.Args[1:], env))
}

// run dispatches args to a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, env *cliEnv) int {
	if len(args) == 0 {
		usage(env.stderr)
		return 2
	}

	cmd, rest := args[0], args[1:]
	ctx = logging.WithCommand(ctx, cmd)

	var err error
	switch cmd {
	case "parse":
		err = runParse(ctx, rest, env)
	case "fmt":
		err = runFmt(ctx, rest, env)
	case "mermaid":
		err = runMermaid(ctx, rest, env)
	case "check":
		err = runCheck(ctx, rest, env)
	case "validate":
		err = runValidate(ctx, rest, env)
	case "convert":
		err = runConvert(ctx, rest, env)
	case "extract":
		err = runExtract(ctx, rest, env)
	case "serve":
		err = runServe(ctx, rest, env)
	case "mcp":
		err = runMCP(ctx, rest, env)
	case "init":
		err = runInit(ctx, rest, env)
	case "reload":
		err = runReload(ctx, rest, env)
	case "version", "-v", "--version":
		printVersion(env.stdout)
	case "help", "-h", "--help":
		usage(env.stdout)
	default:
		fmt.Fprintf(env.stderr, "Error: unknown command %q\n\n", cmd)
		usage(env.stderr)
		return 2
	}

	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errReported):
		return 1
	default:
		fmt.Fprintf(env.stderr, "Error: %v\n", err)
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: flowdsl <command> [flags] [file]

Commands:
  parse     parse DSL and print the graph (-o json|yaml|mermaid|dot|ascii|dsl, -jq expr)
  fmt       print DSL in canonical form (-w rewrites the file)
  mermaid   print a Mermaid flowchart for DSL
  check     report structural warnings of parsed DSL
  validate  validate a FlowchartInput JSON document
  convert   turn a FlowchartInput JSON document into a graph
  extract   parse DSL fenced blocks in Markdown (-rewrite format)
  serve     run the HTTP API
  mcp       run the MCP server on stdio (-sse addr for SSE)
  init      write ~/.flowdsl/settings.json and reload a running server
  reload    signal a running server to reload its settings
  version   print the version

Files default to stdin; "-" also reads stdin.
`)
}

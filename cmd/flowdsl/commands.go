package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rendis/flowdsl/internal/convert"
	"github.com/rendis/flowdsl/internal/diagram"
	"github.com/rendis/flowdsl/internal/dsl"
	"github.com/rendis/flowdsl/internal/export"
	"github.com/rendis/flowdsl/internal/logging"
	"github.com/rendis/flowdsl/internal/markdown"
	"github.com/rendis/flowdsl/internal/query"
	"github.com/rendis/flowdsl/internal/validation"
	"github.com/rendis/flowdsl/pkg/flowchart"
)

const stdinName = "<stdin>"

// parseFlags holds the flags shared by every command that parses DSL text.
type parseFlags struct {
	extended *bool
	scheme   *string
}

func newFlagSet(name string, env *cliEnv) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	return fs
}

func addParseFlags(fs *flag.FlagSet, env *cliEnv) parseFlags {
	return parseFlags{
		extended: fs.Bool("extended", env.cfg.ExtendedDirectives, "accept @rankspacing, @padding and @algorithm"),
		scheme:   fs.String("ids", "", "id scheme: uuid, ulid, short, seq (default from settings)"),
	}
}

// parseArgs parses flags; the flag package has already printed any error.
func parseArgs(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errReported
	}
	return nil
}

func (p parseFlags) options(env *cliEnv) ([]dsl.Option, error) {
	ids, err := env.ids(*p.scheme)
	if err != nil {
		return nil, flowchart.NewError(flowchart.ErrCodeValidation, "invalid id scheme").WithCause(err)
	}
	return []dsl.Option{
		dsl.WithIDGenerator(ids),
		dsl.WithExtendedDirectives(*p.extended),
	}, nil
}

// readInput reads the single optional file argument, or stdin when it is
// absent or "-".
func readInput(env *cliEnv, args []string) (name string, data []byte, err error) {
	switch len(args) {
	case 0:
		name = "-"
	case 1:
		name = args[0]
	default:
		return "", nil, fmt.Errorf("expected at most one input file, got %d", len(args))
	}

	if name == "-" {
		data, err = io.ReadAll(env.stdin)
		if err != nil {
			return "", nil, flowchart.NewError(flowchart.ErrCodeIO, "read stdin").WithCause(err)
		}
		return stdinName, data, nil
	}

	data, err = os.ReadFile(name)
	if err != nil {
		return "", nil, flowchart.NewError(flowchart.ErrCodeIO, "read input").WithSource(name).WithCause(err)
	}
	return name, data, nil
}

// writeBack replaces the contents of name, keeping its permissions.
func writeBack(name string, data []byte) error {
	if name == stdinName {
		return errors.New("-w needs a file argument")
	}
	info, err := os.Stat(name)
	if err != nil {
		return flowchart.NewError(flowchart.ErrCodeIO, "stat input").WithSource(name).WithCause(err)
	}
	if err := os.WriteFile(name, data, info.Mode().Perm()); err != nil {
		return flowchart.NewError(flowchart.ErrCodeIO, "write file").WithSource(name).WithCause(err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDocument reads and parses the DSL input named by fs.Args().
func parseDocument(ctx context.Context, fs *flag.FlagSet, pf parseFlags, env *cliEnv) (context.Context, string, *flowchart.FlowchartGraph, error) {
	opts, err := pf.options(env)
	if err != nil {
		return ctx, "", nil, err
	}
	name, src, err := readInput(env, fs.Args())
	if err != nil {
		return ctx, "", nil, err
	}
	ctx = logging.WithDocument(ctx, name)

	g := dsl.Parse(string(src), opts...)
	logging.LogWith(ctx, env.logger).Debug("parsed document",
		"nodes", len(g.Nodes), "edges", len(g.Edges))
	return ctx, name, g, nil
}

func runParse(ctx context.Context, args []string, env *cliEnv) error {
	fs := newFlagSet("parse", env)
	output := fs.String("o", "json", "output format: json, yaml, mermaid, dot, ascii, dsl")
	expr := fs.String("jq", "", "jq expression evaluated against the graph")
	pf := addParseFlags(fs, env)
	if err := parseArgs(fs, args); err != nil {
		return err
	}

	format, err := export.ParseFormat(*output)
	if err != nil {
		return err
	}
	ctx, _, g, err := parseDocument(ctx, fs, pf, env)
	if err != nil {
		return err
	}

	if *expr != "" {
		result, err := query.NewEngine().Run(ctx, *expr, g)
		if err != nil {
			return err
		}
		return writeJSON(env.stdout, result)
	}
	return export.Encode(env.stdout, g, format)
}

func runFmt(ctx context.Context, args []string, env *cliEnv) error {
	fs := newFlagSet("fmt", env)
	write := fs.Bool("w", false, "write the result to the input file instead of stdout")
	pf := addParseFlags(fs, env)
	if err := parseArgs(fs, args); err != nil {
		return err
	}

	ctx, name, g, err := parseDocument(ctx, fs, pf, env)
	if err != nil {
		return err
	}
	out := dsl.Format(g)
	if !*write {
		_, err := io.WriteString(env.stdout, out)
		return err
	}
	if err := writeBack(name, []byte(out)); err != nil {
		return err
	}
	logging.LogWith(ctx, env.logger).Info("formatted file")
	return nil
}

func runMermaid(ctx context.Context, args []string, env *cliEnv) error {
	fs := newFlagSet("mermaid", env)
	pf := addParseFlags(fs, env)
	if err := parseArgs(fs, args); err != nil {
		return err
	}

	_, _, g, err := parseDocument(ctx, fs, pf, env)
	if err != nil {
		return err
	}
	_, err = io.WriteString(env.stdout, diagram.RenderMermaid(g))
	return err
}

// runCheck prints the structural issues of parsed DSL and fails on errors.
func runCheck(ctx context.Context, args []string, env *cliEnv) error {
	fs := newFlagSet("check", env)
	asJSON := fs.Bool("json", false, "print the result as JSON")
	pf := addParseFlags(fs, env)
	if err := parseArgs(fs, args); err != nil {
		return err
	}

	_, name, g, err := parseDocument(ctx, fs, pf, env)
	if err != nil {
		return err
	}
	return reportResult(env, name, validation.CheckGraph(g), *asJSON)
}

// runValidate checks a FlowchartInput JSON document against the input schema.
func runValidate(ctx context.Context, args []string, env *cliEnv) error {
	fs := newFlagSet("validate", env)
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if err := parseArgs(fs, args); err != nil {
		return err
	}

	name, data, err := readInput(env, fs.Args())
	if err != nil {
		return err
	}
	v, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return err
	}
	logging.LogWith(logging.WithDocument(ctx, name), env.logger).Debug("validating input")
	return reportResult(env, name, v.ValidateJSON(data), *asJSON)
}

func reportResult(env *cliEnv, name string, result *flowchart.ValidationResult, asJSON bool) error {
	if asJSON {
		if err := writeJSON(env.stdout, map[string]any{
			"valid":    result.Valid(),
			"errors":   result.Errors,
			"warnings": result.Warnings,
		}); err != nil {
			return err
		}
	} else {
		for _, issue := range result.Issues() {
			fmt.Fprintf(env.stdout, "%s: %s: %s: %s\n", name, issue.Severity, issue.Path, issue.Message)
		}
		if result.Valid() {
			fmt.Fprintf(env.stdout, "%s: ok\n", name)
		}
	}
	if !result.Valid() {
		return errReported
	}
	return nil
}

// runConvert turns a FlowchartInput JSON document into a graph.
func runConvert(ctx context.Context, args []string, env *cliEnv) error {
	fs := newFlagSet("convert", env)
	output := fs.String("o", "json", "output format: json, yaml, mermaid, dot, ascii, dsl")
	scheme := fs.String("ids", "", "id scheme: uuid, ulid, short, seq (default from settings)")
	if err := parseArgs(fs, args); err != nil {
		return err
	}

	format, err := export.ParseFormat(*output)
	if err != nil {
		return err
	}
	ids, err := env.ids(*scheme)
	if err != nil {
		return flowchart.NewError(flowchart.ErrCodeValidation, "invalid id scheme").WithCause(err)
	}
	name, data, err := readInput(env, fs.Args())
	if err != nil {
		return err
	}

	v, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return err
	}
	if err := v.ValidateJSON(data).ToError(); err != nil {
		return err
	}
	var in flowchart.FlowchartInput
	if err := json.Unmarshal(data, &in); err != nil {
		return flowchart.NewError(flowchart.ErrCodeParseInput, "invalid JSON").WithSource(name).WithCause(err)
	}
	g, err := convert.FromInput(&in, ids)
	if err != nil {
		return err
	}
	logging.LogWith(logging.WithDocument(ctx, name), env.logger).Debug("converted input",
		"nodes", len(g.Nodes), "edges", len(g.Edges))
	return export.Encode(env.stdout, g, format)
}

// fenceLanguages maps an output format to the info string of rewritten blocks.
var fenceLanguages = map[export.Format]string{
	export.FormatJSON:    "json",
	export.FormatYAML:    "yaml",
	export.FormatMermaid: "mermaid",
	export.FormatDOT:     "dot",
	export.FormatASCII:   "text",
	export.FormatDSL:     "flowchart",
}

type extractedBlock struct {
	markdown.Block
	Graph *flowchart.FlowchartGraph `json:"graph"`
}

// runExtract parses the DSL fenced blocks of a Markdown document. With
// -rewrite every block is replaced by its rendering in the given format.
func runExtract(ctx context.Context, args []string, env *cliEnv) error {
	fs := newFlagSet("extract", env)
	rewrite := fs.String("rewrite", "", "replace DSL blocks with this format (mermaid, dot, ascii, dsl, json, yaml)")
	write := fs.Bool("w", false, "with -rewrite, write the result to the input file")
	pf := addParseFlags(fs, env)
	if err := parseArgs(fs, args); err != nil {
		return err
	}

	opts, err := pf.options(env)
	if err != nil {
		return err
	}
	name, src, err := readInput(env, fs.Args())
	if err != nil {
		return err
	}
	logger := logging.LogWith(logging.WithDocument(ctx, name), env.logger)

	if *rewrite == "" {
		blocks := markdown.ExtractBlocks(src)
		out := make([]extractedBlock, 0, len(blocks))
		for _, b := range blocks {
			out = append(out, extractedBlock{Block: b, Graph: dsl.Parse(b.Source, opts...)})
		}
		logger.Debug("extracted blocks", "count", len(out))
		return writeJSON(env.stdout, map[string]any{"blocks": out})
	}

	format, err := export.ParseFormat(*rewrite)
	if err != nil {
		return err
	}
	var renderErr error
	out := markdown.Rewrite(src, fenceLanguages[format], func(b markdown.Block) string {
		var buf bytes.Buffer
		if err := export.Encode(&buf, dsl.Parse(b.Source, opts...), format); err != nil && renderErr == nil {
			renderErr = err
		}
		return buf.String()
	})
	if renderErr != nil {
		return renderErr
	}

	if *write {
		if err := writeBack(name, out); err != nil {
			return err
		}
		logger.Info("rewrote blocks", "format", format)
		return nil
	}
	_, err = env.stdout.Write(out)
	return err
}

// Package export encodes a FlowchartGraph in one of the supported output formats.
package export

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rendis/flowdsl/internal/diagram"
	"github.com/rendis/flowdsl/internal/dsl"
	"github.com/rendis/flowdsl/pkg/flowchart"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMermaid Format = "mermaid"
	FormatDOT     Format = "dot"
	FormatASCII   Format = "ascii"
	FormatDSL     Format = "dsl"
)

// Formats lists every supported format in display order.
var Formats = []Format{FormatJSON, FormatYAML, FormatMermaid, FormatDOT, FormatASCII, FormatDSL}

// ParseFormat returns the format named by s (case-insensitive). "yml" is
// accepted for yaml and the empty string means json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case "yml":
		return FormatYAML, nil
	case FormatJSON, FormatYAML, FormatMermaid, FormatDOT, FormatASCII, FormatDSL:
		return f, nil
	}
	return "", flowchart.NewErrorf(flowchart.ErrCodeExport, "unknown output format %q", s).
		WithDetails(map[string]any{"supported": Formats})
}

// ContentType returns the MIME type used when serving f over HTTP.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Encode writes g to w in the given format.
func Encode(w io.Writer, g *flowchart.FlowchartGraph, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(g); err != nil {
			return flowchart.NewError(flowchart.ErrCodeExport, "encode json").WithCause(err)
		}
		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return flowchart.NewError(flowchart.ErrCodeExport, "encode yaml").WithCause(err)
		}
		if err := enc.Close(); err != nil {
			return flowchart.NewError(flowchart.ErrCodeExport, "encode yaml").WithCause(err)
		}
		return nil

	case FormatMermaid:
		return writeString(w, diagram.RenderMermaid(g))
	case FormatDOT:
		return writeString(w, diagram.RenderDOT(g))
	case FormatASCII:
		return writeString(w, diagram.RenderASCII(g))
	case FormatDSL:
		return writeString(w, dsl.Format(g))
	}
	return flowchart.NewErrorf(flowchart.ErrCodeExport, "unknown output format %q", f)
}

// Decode reads a graph previously written in json or yaml format.
func Decode(r io.Reader, f Format) (*flowchart.FlowchartGraph, error) {
	var g flowchart.FlowchartGraph
	var err error
	switch f {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&g)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&g)
	default:
		return nil, flowchart.NewErrorf(flowchart.ErrCodeExport, "format %q cannot be decoded", f)
	}
	if err != nil {
		return nil, flowchart.NewErrorf(flowchart.ErrCodeParseInput, "decode %s graph", f).WithCause(err)
	}
	return &g, nil
}

func writeString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return flowchart.NewError(flowchart.ErrCodeIO, "write output").WithCause(err)
	}
	return nil
}

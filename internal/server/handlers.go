package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rendis/flowdsl/internal/convert"
	"github.com/rendis/flowdsl/internal/diagram"
	"github.com/rendis/flowdsl/internal/dsl"
	"github.com/rendis/flowdsl/internal/export"
	"github.com/rendis/flowdsl/internal/logging"
	"github.com/rendis/flowdsl/internal/markdown"
	"github.com/rendis/flowdsl/internal/validation"
	"github.com/rendis/flowdsl/pkg/flowchart"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.deps.Version,
	})
}

// handleParse parses the DSL body and encodes the graph in ?format (json by default).
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	g := dsl.Parse(string(body), s.parseOptions()...)
	s.writeGraph(w, r, g, format)
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, dsl.Format(dsl.Parse(string(body), s.parseOptions()...)))
}

func (s *Server) handleMermaid(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeText(w, http.StatusOK, diagram.RenderMermaid(dsl.Parse(string(body), s.parseOptions()...)))
}

// handleQuery runs the jq program in ?expr against the parsed DSL body.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	expr := r.URL.Query().Get("expr")
	if expr == "" {
		s.writeError(w, r, flowchart.NewError(flowchart.ErrCodeQuery, "missing expr query parameter"))
		return
	}
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	g := dsl.Parse(string(body), s.parseOptions()...)
	result, err := s.deps.Query.Run(r.Context(), expr, g)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

// handleCheck reports structural issues and warnings of the parsed DSL body.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result := validation.CheckGraph(dsl.Parse(string(body), s.parseOptions()...))
	writeJSON(w, http.StatusOK, checkResponse(result))
}

// handleConvert validates a FlowchartInput JSON body and returns the graph.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if result := s.deps.Validator.ValidateJSON(body); !result.Valid() {
		s.writeError(w, r, result.ToError())
		return
	}

	var in flowchart.FlowchartInput
	if err := json.Unmarshal(body, &in); err != nil {
		s.writeError(w, r, flowchart.NewError(flowchart.ErrCodeParseInput, "invalid JSON").WithCause(err))
		return
	}
	g, err := convert.FromInput(&in, s.deps.IDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeGraph(w, r, g, format)
}

type extractedBlock struct {
	markdown.Block
	Graph *flowchart.FlowchartGraph `json:"graph"`
}

// handleExtract parses every DSL fenced block of a Markdown body.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	blocks := markdown.ExtractBlocks(body)
	out := make([]extractedBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, extractedBlock{
			Block: b,
			Graph: dsl.Parse(b.Source, s.parseOptions()...),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocks": out})
}

// readBody reads the request body up to the configured limit.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, flowchart.NewErrorf(flowchart.ErrCodeTooLarge,
				"request body exceeds %d bytes", tooLarge.Limit).
				WithDetails(map[string]any{"limit": tooLarge.Limit})
		}
		return nil, flowchart.NewError(flowchart.ErrCodeIO, "read request body").WithCause(err)
	}
	return body, nil
}

func (s *Server) writeGraph(w http.ResponseWriter, r *http.Request, g *flowchart.FlowchartGraph, format export.Format) {
	var buf bytes.Buffer
	if err := export.Encode(&buf, g, format); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// writeError writes err as a JSON error body. Non-FlowError values become IO_ERROR.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var flowErr *flowchart.FlowError
	if !errors.As(err, &flowErr) {
		flowErr = flowchart.NewError(flowchart.ErrCodeIO, err.Error()).WithCause(err)
	}
	status := statusFor(flowErr)

	logger := logging.LogWith(r.Context(), s.deps.Logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Debug("request rejected", "code", flowErr.Code, "message", flowErr.Message)
	}

	writeJSON(w, status, map[string]any{"error": flowErr})
}

func checkResponse(result *flowchart.ValidationResult) map[string]any {
	return map[string]any{
		"valid":    result.Valid(),
		"errors":   nonNil(result.Errors),
		"warnings": nonNil(result.Warnings),
	}
}

func nonNil(issues []flowchart.Issue) []flowchart.Issue {
	if issues == nil {
		return []flowchart.Issue{}
	}
	return issues
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, s)
}

// Package server exposes the flowchart front end as an HTTP API.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rendis/flowdsl/internal/dsl"
	"github.com/rendis/flowdsl/internal/identity"
	"github.com/rendis/flowdsl/internal/logging"
	"github.com/rendis/flowdsl/internal/query"
	"github.com/rendis/flowdsl/internal/validation"
	"github.com/rendis/flowdsl/pkg/flowchart"
)

// DefaultMaxBodyBytes bounds request bodies when Deps.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 1 << 20

// Deps holds the dependencies of the HTTP server.
type Deps struct {
	IDs                identity.Generator
	ExtendedDirectives bool
	MaxBodyBytes       int64
	Version            string
	Query              *query.Engine
	Validator          validation.Validator
	Logger             *slog.Logger
}

// Server serves the /v1 API.
type Server struct {
	deps   Deps
	router chi.Router
}

// New creates a Server with all routes configured. Nil dependencies get defaults.
func New(deps Deps) (*Server, error) {
	if deps.IDs == nil {
		deps.IDs = identity.Short(identity.DefaultShortLength)
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if deps.Query == nil {
		deps.Query = query.NewEngine()
	}
	if deps.Validator == nil {
		v, err := validation.NewJSONSchemaValidator()
		if err != nil {
			return nil, err
		}
		deps.Validator = v
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	s := &Server{deps: deps}
	s.router = s.buildRouter()
	return s, nil
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.correlate)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Post("/format", s.handleFormat)
		r.Post("/mermaid", s.handleMermaid)
		r.Post("/query", s.handleQuery)
		r.Post("/check", s.handleCheck)
		r.Post("/convert", s.handleConvert)
		r.Post("/extract", s.handleExtract)
	})

	return r
}

// correlate copies the chi request id into the logging context.
func (s *Server) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = logging.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.deps.Logger.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// parseOptions returns the dsl options used for every request.
func (s *Server) parseOptions() []dsl.Option {
	return []dsl.Option{
		dsl.WithIDGenerator(s.deps.IDs),
		dsl.WithExtendedDirectives(s.deps.ExtendedDirectives),
	}
}

// statusFor maps a FlowError code to an HTTP status.
func statusFor(err *flowchart.FlowError) int {
	switch err.Code {
	case flowchart.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case flowchart.ErrCodeParseInput, flowchart.ErrCodeQuery, flowchart.ErrCodeExport:
		return http.StatusBadRequest
	case flowchart.ErrCodeNotFound:
		return http.StatusNotFound
	case flowchart.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

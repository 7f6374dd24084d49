package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/rendis/flowdsl/internal/identity"
	"github.com/rendis/flowdsl/internal/logging"
	"github.com/rendis/flowdsl/internal/query"
	"github.com/rendis/flowdsl/internal/server"
	"github.com/rendis/flowdsl/pkg/flowchart"
	flowmcp "github.com/rendis/flowdsl/pkg/mcp"
)

const shutdownTimeout = 5 * time.Second

// buildHandler creates the API handler for cfg. The query engine is shared
// across reloads so compiled programs survive a handler swap.
func buildHandler(cfg Config, q *query.Engine, logger *slog.Logger) (http.Handler, error) {
	ids, err := identity.FromScheme(cfg.IDScheme)
	if err != nil {
		return nil, err
	}
	srv, err := server.New(server.Deps{
		IDs:                ids,
		ExtendedDirectives: cfg.ExtendedDirectives,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		Version:            version,
		Query:              q,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}
	return srv.Handler(), nil
}

func runServe(ctx context.Context, args []string, env *cliEnv) error {
	fs := newFlagSet("serve", env)
	listenAddr := fs.String("listen-addr", env.cfg.ListenAddr, "TCP listen address")
	if err := parseArgs(fs, args); err != nil {
		return err
	}

	cfg := env.cfg
	cfg.ListenAddr = *listenAddr
	if err := cfg.validate(); err != nil {
		return err
	}

	q := query.NewEngine()
	handler, err := buildHandler(cfg, q, env.logger)
	if err != nil {
		return err
	}
	swapper := newHandlerSwapper(handler)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return flowchart.NewError(flowchart.ErrCodeIO, "listen").WithSource(cfg.ListenAddr).WithCause(err)
	}
	srv := &http.Server{
		Handler:           swapper,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger := logging.LogWith(ctx, env.logger)
	if err := writePIDFile(); err != nil {
		logger.Warn("cannot write pidfile; reload by signal is unavailable", "error", err)
	} else {
		defer os.Remove(pidPath())
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("flowdsl listening", "addr", ln.Addr().String(), "version", version)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return flowchart.NewError(flowchart.ErrCodeIO, "serve").WithCause(err)
		case <-hup:
			logger.Info("reloading configuration", "path", settingsPath())
			cfg = applyReload(ctx, cfg, loadConfig(), env, q, swapper)
		}
	}
}

// applyReload moves the running server from cur to next and returns the
// configuration now in effect. An invalid next configuration is ignored.
func applyReload(ctx context.Context, cur, next Config, env *cliEnv, q *query.Engine, swapper *handlerSwapper) Config {
	logger := logging.LogWith(ctx, env.logger)
	if err := next.validate(); err != nil {
		logger.Error("reload rejected", "error", err)
		return cur
	}

	diff := diffConfigs(cur, next)
	if len(diff.RestartNeeded) > 0 {
		logger.Warn("restart required for changed settings", "fields", diff.RestartNeeded)
		next.ListenAddr = cur.ListenAddr
	}
	if diff.LogLevelChanged {
		level, _ := logging.ParseLevel(next.LogLevel)
		env.level.Set(level)
		logger.Info("log level changed", "level", level.String())
	}
	if diff.HandlerChanged {
		handler, err := buildHandler(next, q, env.logger)
		if err != nil {
			logger.Error("reload rejected", "error", err)
			return cur
		}
		swapper.Swap(handler)
		logger.Info("api handler rebuilt",
			"id_scheme", next.IDScheme,
			"max_body_bytes", next.MaxBodyBytes,
			"extended_directives", next.ExtendedDirectives)
	}
	return next
}

func writePIDFile() error {
	if err := os.MkdirAll(filepath.Dir(pidPath()), 0o700); err != nil {
		return err
	}
	return os.WriteFile(pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func runMCP(ctx context.Context, args []string, env *cliEnv) error {
	fs := newFlagSet("mcp", env)
	sseAddr := fs.String("sse", "", "serve over SSE on this address instead of stdio")
	baseURL := fs.String("base-url", "", "public base URL for SSE (derived from -sse if empty)")
	pf := addParseFlags(fs, env)
	if err := parseArgs(fs, args); err != nil {
		return err
	}

	ids, err := env.ids(*pf.scheme)
	if err != nil {
		return flowchart.NewError(flowchart.ErrCodeValidation, "invalid id scheme").WithCause(err)
	}
	srv, err := flowmcp.NewFlowServer(flowmcp.FlowServerDeps{
		IDs:                ids,
		ExtendedDirectives: *pf.extended,
		Version:            version,
		Logger:             env.logger,
	})
	if err != nil {
		return err
	}

	if *sseAddr != "" {
		if *baseURL == "" {
			*baseURL = "http://localhost" + *sseAddr
		}
		if err := srv.ServeSSE(ctx, *sseAddr, *baseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return flowchart.NewError(flowchart.ErrCodeIO, "serve sse").WithSource(*sseAddr).WithCause(err)
		}
		return nil
	}

	logging.LogWith(ctx, env.logger).Info("mcp server starting on stdio", "version", version)
	return srv.Serve(ctx)
}

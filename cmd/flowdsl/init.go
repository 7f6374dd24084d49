package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/rendis/flowdsl/pkg/flowchart"
)

// runInit writes settings.json from flags (defaulting to the current
// configuration) and asks a running server to pick it up.
func runInit(_ context.Context, args []string, env *cliEnv) error {
	fs := newFlagSet("init", env)
	listenAddr := fs.String("listen-addr", env.cfg.ListenAddr, "TCP listen address")
	logLevel := fs.String("log-level", env.cfg.LogLevel, "log level: debug, info, warn, error")
	idScheme := fs.String("id-scheme", env.cfg.IDScheme, "id scheme: uuid, ulid, short, seq")
	maxBody := fs.Int64("max-body-bytes", env.cfg.MaxBodyBytes, "request body limit of the HTTP API")
	extended := fs.Bool("extended", env.cfg.ExtendedDirectives, "accept @rankspacing, @padding and @algorithm")
	if err := parseArgs(fs, args); err != nil {
		return err
	}

	cfg := Config{
		ListenAddr:         *listenAddr,
		LogLevel:           *logLevel,
		IDScheme:           *idScheme,
		MaxBodyBytes:       *maxBody,
		ExtendedDirectives: *extended,
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	dir := flowdslDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return flowchart.NewError(flowchart.ErrCodeIO, "create config directory").WithSource(dir).WithCause(err)
	}
	data, _ := json.MarshalIndent(cfg, "", "  ")
	path := settingsPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return flowchart.NewError(flowchart.ErrCodeIO, "write settings").WithSource(path).WithCause(err)
	}
	fmt.Fprintf(env.stdout, "Config written to %s\n", path)

	if !signalRunningServer(env.stdout) {
		fmt.Fprintln(env.stdout, "No running server found; start one with: flowdsl serve")
	}
	return nil
}

func runReload(_ context.Context, args []string, env *cliEnv) error {
	fs := newFlagSet("reload", env)
	if err := parseArgs(fs, args); err != nil {
		return err
	}
	if !signalRunningServer(env.stdout) {
		return errors.New("no running flowdsl server found (pidfile " + pidPath() + ")")
	}
	return nil
}

// signalRunningServer sends SIGHUP to a running flowdsl server (via pidfile).
// Returns true if the server was signaled.
func signalRunningServer(w io.Writer) bool {
	data, err := os.ReadFile(pidPath())
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Check if process is alive.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false
	}
	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return false
	}
	fmt.Fprintf(w, "Signaled running server (PID %d) to reload configuration\n", pid)
	return true
}

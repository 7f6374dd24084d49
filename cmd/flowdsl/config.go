package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rendis/flowdsl/internal/identity"
	"github.com/rendis/flowdsl/internal/logging"
	"github.com/rendis/flowdsl/internal/server"
	"github.com/rendis/flowdsl/pkg/flowchart"
)

// Config holds all flowdsl configuration.
// Priority: command flags > env vars > settings.json > defaults.
type Config struct {
	ListenAddr         string `json:"listen_addr"`
	LogLevel           string `json:"log_level"`
	IDScheme           string `json:"id_scheme"`
	MaxBodyBytes       int64  `json:"max_body_bytes"`
	ExtendedDirectives bool   `json:"extended_directives"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:   ":4180",
		LogLevel:     "info",
		IDScheme:     identity.SchemeShort,
		MaxBodyBytes: server.DefaultMaxBodyBytes,
	}
}

func flowdslDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowdsl"
	}
	return filepath.Join(home, ".flowdsl")
}

func settingsPath() string {
	return filepath.Join(flowdslDir(), "settings.json")
}

func pidPath() string {
	return filepath.Join(flowdslDir(), "flowdsl.pid")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("FLOWDSL_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("FLOWDSL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLOWDSL_ID_SCHEME"); v != "" {
		cfg.IDScheme = v
	}
	if v := os.Getenv("FLOWDSL_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxBodyBytes = n
		}
	}
	if v := os.Getenv("FLOWDSL_EXTENDED"); v != "" {
		cfg.ExtendedDirectives = v == "true" || v == "1"
	}

	return cfg
}

// validate reports configuration values that cannot be used.
func (c Config) validate() error {
	if _, err := identity.FromScheme(c.IDScheme); err != nil {
		return flowchart.NewError(flowchart.ErrCodeValidation, "invalid id_scheme").WithCause(err)
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return flowchart.NewErrorf(flowchart.ErrCodeValidation,
			"invalid log_level %q: must be one of debug, info, warn, error", c.LogLevel)
	}
	if c.MaxBodyBytes <= 0 {
		return flowchart.NewErrorf(flowchart.ErrCodeValidation, "max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return flowchart.NewError(flowchart.ErrCodeValidation, "listen_addr is empty")
	}
	return nil
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	LogLevelChanged bool
	HandlerChanged  bool     // API handler must be rebuilt
	RestartNeeded   []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.IDScheme != new.IDScheme || old.MaxBodyBytes != new.MaxBodyBytes ||
		old.ExtendedDirectives != new.ExtendedDirectives {
		d.HandlerChanged = true
	}
	if old.ListenAddr != new.ListenAddr {
		d.RestartNeeded = append(d.RestartNeeded, "listen_addr")
	}
	return d
}

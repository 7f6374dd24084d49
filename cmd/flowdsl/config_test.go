package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateHome points the settings directory at a temp dir and clears env overrides.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"FLOWDSL_LISTEN_ADDR", "FLOWDSL_LOG_LEVEL", "FLOWDSL_ID_SCHEME",
		"FLOWDSL_MAX_BODY_BYTES", "FLOWDSL_EXTENDED",
	} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateHome(t)
	assert.Equal(t, defaultConfig(), loadConfig())
}

func TestLoadConfig_SettingsFile(t *testing.T) {
	home := isolateHome(t)
	dir := filepath.Join(home, ".flowdsl")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"),
		[]byte(`{"listen_addr":":9000","id_scheme":"ulid","extended_directives":true}`), 0o644))

	cfg := loadConfig()
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "ulid", cfg.IDScheme)
	assert.True(t, cfg.ExtendedDirectives)
	assert.Equal(t, "info", cfg.LogLevel, "unset fields keep defaults")
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	home := isolateHome(t)
	dir := filepath.Join(home, ".flowdsl")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"),
		[]byte(`{"log_level":"warn","max_body_bytes":2048}`), 0o644))

	t.Setenv("FLOWDSL_LOG_LEVEL", "debug")
	t.Setenv("FLOWDSL_MAX_BODY_BYTES", "4096")
	t.Setenv("FLOWDSL_EXTENDED", "1")
	t.Setenv("FLOWDSL_ID_SCHEME", "seq")

	cfg := loadConfig()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(4096), cfg.MaxBodyBytes)
	assert.True(t, cfg.ExtendedDirectives)
	assert.Equal(t, "seq", cfg.IDScheme)
}

func TestLoadConfig_BadMaxBodyIgnored(t *testing.T) {
	isolateHome(t)
	t.Setenv("FLOWDSL_MAX_BODY_BYTES", "lots")
	assert.Equal(t, defaultConfig().MaxBodyBytes, loadConfig().MaxBodyBytes)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad scheme", func(c *Config) { c.IDScheme = "guid" }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"zero body", func(c *Config) { c.MaxBodyBytes = 0 }, false},
		{"empty addr", func(c *Config) { c.ListenAddr = " " }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			if tt.ok {
				assert.NoError(t, cfg.validate())
			} else {
				assert.Error(t, cfg.validate())
			}
		})
	}
}

func TestDiffConfigs(t *testing.T) {
	base := defaultConfig()

	d := diffConfigs(base, base)
	assert.False(t, d.LogLevelChanged)
	assert.False(t, d.HandlerChanged)
	assert.Empty(t, d.RestartNeeded)

	next := base
	next.LogLevel = "debug"
	next.IDScheme = "uuid"
	next.ListenAddr = ":1"
	d = diffConfigs(base, next)
	assert.True(t, d.LogLevelChanged)
	assert.True(t, d.HandlerChanged)
	assert.Equal(t, []string{"listen_addr"}, d.RestartNeeded)

	next = base
	next.ExtendedDirectives = true
	assert.True(t, diffConfigs(base, next).HandlerChanged)
}

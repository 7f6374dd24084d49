package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rendis/flowdsl/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstNodeID(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/parse", strings.NewReader("[A]")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var g struct {
		Nodes []struct{ ID string }
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	require.Len(t, g.Nodes, 1)
	return g.Nodes[0].ID
}

func TestBuildHandler(t *testing.T) {
	cfg := defaultConfig()
	cfg.IDScheme = "seq"
	h, err := buildHandler(cfg, query.NewEngine(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, "n1", firstNodeID(t, h))

	cfg.IDScheme = "guid"
	_, err = buildHandler(cfg, query.NewEngine(), slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestApplyReload(t *testing.T) {
	c := newTestCLI(t, "")
	q := query.NewEngine()

	cur := defaultConfig()
	h, err := buildHandler(cur, q, c.env.logger)
	require.NoError(t, err)
	swapper := newHandlerSwapper(h)
	assert.Len(t, firstNodeID(t, swapper), 10, "short ids before reload")

	next := cur
	next.LogLevel = "debug"
	next.IDScheme = "seq"
	next.ListenAddr = ":9999"

	got := applyReload(context.Background(), cur, next, c.env, q, swapper)
	assert.Equal(t, slog.LevelDebug, c.env.level.Level())
	assert.Equal(t, "seq", got.IDScheme)
	assert.Equal(t, cur.ListenAddr, got.ListenAddr, "listen address needs a restart")
	assert.Equal(t, "n1", firstNodeID(t, swapper))
	assert.Contains(t, c.stderr.String(), "restart required")
}

func TestApplyReload_InvalidKeepsCurrent(t *testing.T) {
	c := newTestCLI(t, "")
	q := query.NewEngine()

	cur := defaultConfig()
	cur.IDScheme = "seq"
	h, err := buildHandler(cur, q, c.env.logger)
	require.NoError(t, err)
	swapper := newHandlerSwapper(h)

	next := cur
	next.IDScheme = "guid"
	got := applyReload(context.Background(), cur, next, c.env, q, swapper)
	assert.Equal(t, cur, got)
	assert.Equal(t, "n1", firstNodeID(t, swapper))
	assert.Contains(t, c.stderr.String(), "reload rejected")
}

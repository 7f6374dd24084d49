package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	// Initially empty.
	assert.Equal(t, "", RequestID(ctx))
	assert.Equal(t, "", Document(ctx))
	assert.Equal(t, "", Command(ctx))

	ctx = WithRequestID(ctx, "req-123")
	ctx = WithDocument(ctx, "docs/flow.md#1")
	ctx = WithCommand(ctx, "parse")

	assert.Equal(t, "req-123", RequestID(ctx))
	assert.Equal(t, "docs/flow.md#1", Document(ctx))
	assert.Equal(t, "parse", Command(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-abc")
	ctx = WithDocument(ctx, "flow.txt")
	ctx = WithCommand(ctx, "fmt")

	LogWith(ctx, logger).Info("test message")

	output := buf.String()
	assert.Contains(t, output, "request_id=req-abc")
	assert.Contains(t, output, "document=flow.txt")
	assert.Contains(t, output, "command=fmt")
	assert.Contains(t, output, "test message")
}

func TestLogWithMissingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithRequestID(context.Background(), "req-only")
	LogWith(ctx, logger).Info("partial context")

	output := buf.String()
	assert.Contains(t, output, "request_id=req-only")
	assert.NotContains(t, output, "document")
	assert.NotContains(t, output, "command")
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelDebug)

	ctx := WithRequestID(context.Background(), "req-7")
	ctx = WithCommand(ctx, "flowchart.parse")
	logger.With("component", "mcp").WithGroup("g").InfoContext(ctx, "handled", "nodes", 3)

	output := buf.String()
	assert.Contains(t, output, "component=mcp")
	assert.Contains(t, output, "g.nodes=3")
	assert.Contains(t, output, "request_id=req-7")
	assert.Contains(t, output, "command=flowchart.parse")
}

func TestCorrelationHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := New(&buf, level)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	level.Set(slog.LevelDebug)
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{" error ", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}
	for _, tc := range tests {
		got, ok := ParseLevel(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}

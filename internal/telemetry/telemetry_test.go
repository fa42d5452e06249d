package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		require.Equal(t, want, parseLogLevel(in), "level=%q", in)
	}
}

func TestInitLogger_WritesRotatingFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "portfolio-chat.log")
	logger, closer, err := InitLogger(LogConfig{Level: "debug", Format: "text", File: path})
	require.NoError(t, err)

	logger.Debug("hello", slog.String("component", "test"))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "msg=hello")
	require.Contains(t, string(data), "component=test")
}

func TestInitLogger_Stdout(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger, closer, err := InitLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.NoError(t, closer.Close())
	require.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestInitLogger_Writer(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	_, _, err := InitLogger(LogConfig{Level: "warn", Format: "json", Writer: &buf})
	require.NoError(t, err)

	slog.Info("dropped")
	slog.Warn("generation failed", "status", 429)
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), `"msg":"generation failed"`)
	require.Contains(t, buf.String(), `"status":429`)
}

func TestInit_ExportsToFiles(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	dir := t.TempDir()
	cfg := Config{
		ServiceName:    "portfolio-chat-test",
		ServiceVersion: "test",
		TraceFile:      filepath.Join(dir, "traces.log"),
		MetricsFile:    filepath.Join(dir, "metrics.log"),
	}
	tel, err := Init(context.Background(), cfg)
	require.NoError(t, err)

	ctx := context.Background()
	_, span := otel.Tracer("test").Start(ctx, "chat.SubmitTurn")
	span.End()
	counter, err := otel.Meter("test").Int64Counter("portfolio_chat.turns")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	require.NoError(t, tel.Flush(ctx))
	require.NoError(t, tel.Shutdown(ctx))

	traces, err := os.ReadFile(cfg.TraceFile)
	require.NoError(t, err)
	require.Contains(t, string(traces), "chat.SubmitTurn")
	require.Contains(t, string(traces), "portfolio-chat-test")

	metrics, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	require.Contains(t, string(metrics), "portfolio_chat.turns")
}

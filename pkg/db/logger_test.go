package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"creditshop/pkg/config"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	undo := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(undo)
	return logs
}

func spanContext(t *testing.T) context.Context {
	t.Helper()

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestNewQueryLogger(t *testing.T) {
	l := NewQueryLogger(nil)
	require.Equal(t, defaultSlowQueryThreshold, l.SlowThreshold)
	require.Equal(t, gormlogger.Info, l.LogLevel)

	cfg := &config.Config{AppEnv: "production"}
	cfg.Database.SlowQueryThreshold = time.Second
	l = NewQueryLogger(cfg)
	require.Equal(t, time.Second, l.SlowThreshold)
	require.Equal(t, gormlogger.Warn, l.LogLevel)
	require.False(t, l.ShowSQL)
}

func TestQueryLoggerTrace(t *testing.T) {
	logs := observe(t)
	ctx := spanContext(t)
	l := NewQueryLogger(&config.Config{AppEnv: "production"})
	stmt := func() (string, int64) { return "UPDATE accounts SET credit_balance = credit_balance + 10", 1 }

	l.Trace(ctx, time.Now(), stmt, errors.New("deadlock detected"))
	l.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	l.Trace(ctx, time.Now(), stmt, gormlogger.ErrRecordNotFound)
	l.Trace(ctx, time.Now(), stmt, nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	require.Equal(t, "gorm.query", entries[0].Message)
	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entries[0].ContextMap()["trace_id"])

	require.Equal(t, "gorm.slow_query", entries[1].Message)
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "00f067aa0ba902b7", entries[1].ContextMap()["span_id"])
}

func TestQueryLoggerSilent(t *testing.T) {
	logs := observe(t)
	l := NewQueryLogger(nil).LogMode(gormlogger.Silent)

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 1 }, errors.New("boom"))
	require.Zero(t, logs.Len())
}

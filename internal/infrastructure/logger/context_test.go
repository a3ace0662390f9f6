package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func validSpanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestWithContext(t *testing.T) {
	logger := zap.NewExample()
	ctx := WithContext(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
}

func TestFromContext_NotFound(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
}

func TestRequestAndBatchIDs(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithBatchID(ctx, "batch-9")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Equal(t, "batch-9", GetBatchID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetBatchID(context.Background()))
}

func TestGetTraceID(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", GetTraceID(validSpanContext(t)))
}

func TestContextLogger_InjectsFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)

	ctx := WithContext(validSpanContext(t), zap.New(core))
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithBatchID(ctx, "batch-1")

	L(ctx).With(zap.Int("items", 3)).Info("batch priced")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", fields["trace_id"])
	assert.Equal(t, "b7ad6b7169203331", fields["span_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "batch-1", fields["batch_id"])
	assert.Equal(t, int64(3), fields["items"])
}

func TestContextLogger_Levels(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	cl := WithLogger(context.Background(), zap.New(core))

	cl.Debug("d")
	cl.Info("i")
	cl.Warn("w")
	cl.Error("e")

	entries := recorded.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Empty(t, entries[1].ContextMap())
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := WithLogger(context.Background(), nil)

	assert.NotPanics(t, func() {
		cl.Info("dropped")
		cl.With(zap.String("k", "v")).Warn("dropped")
	})
	assert.NotNil(t, cl.Zap())
}

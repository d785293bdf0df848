package logger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestConfigForEnvironment(t *testing.T) {
	assert.Equal(t, "json", ConfigForEnvironment("production").Format)
	assert.Equal(t, "console", ConfigForEnvironment("development").Format)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quoting.log")
	log, err := New(Config{Level: "info", Format: "json", Output: path, Service: "quoting"})
	require.NoError(t, err)
	log.Info("hello")
	require.NoError(t, log.Sync())
	assert.FileExists(t, path)
}

func TestNew_UnwritableFile(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestFields(t *testing.T) {
	t.Run("empty context has no fields", func(t *testing.T) {
		assert.Empty(t, Fields(context.Background()))
	})

	t.Run("carries request, tenant and trace ids", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
		spanID, _ := trace.SpanIDFromHex("0102030405060708")
		sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

		ctx := trace.ContextWithSpanContext(context.Background(), sc)
		ctx = WithRequestID(ctx, "req-1")
		ctx = WithTenantID(ctx, "tenant-1")

		core, recorded := observer.New(zapcore.InfoLevel)
		ctx = WithContext(ctx, zap.New(core))
		L(ctx).Info("quote sent")

		entries := recorded.All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", fields["trace_id"])
		assert.Equal(t, "0102030405060708", fields["span_id"])
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "tenant-1", fields["tenant_id"])
	})

	t.Run("logger missing from context is a no-op", func(t *testing.T) {
		assert.NotPanics(t, func() { L(context.Background()).Info("dropped") })
		assert.NotPanics(t, func() { For(context.Background(), nil).Info("dropped") })
	})
}

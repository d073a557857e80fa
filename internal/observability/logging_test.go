package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchsvc/gateway/internal/util"
)

func TestDefaultLogConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultLogConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  LogConfig
		wantErr bool
	}{
		{
			name:    "default config",
			config:  DefaultLogConfig(),
			wantErr: false,
		},
		{
			name: "console format",
			config: LogConfig{
				Level:  "debug",
				Format: "console",
				Output: "stdout",
			},
			wantErr: false,
		},
		{
			name: "stderr output",
			config: LogConfig{
				Level:  "info",
				Format: "json",
				Output: "stderr",
			},
			wantErr: false,
		},
		{
			name: "invalid level",
			config: LogConfig{
				Level:  "invalid",
				Format: "json",
				Output: "stdout",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tt.config)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, logger)
			}
		})
	}
}

func TestZapLogger_Methods(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(LogConfig{
		Level:  "debug",
		Format: "json",
		Output: "stdout",
	})
	require.NoError(t, err)

	// These should not panic
	logger.Debug("debug message", String("key", "value"))
	logger.Info("info message", Int("count", 42))
	logger.Warn("warn message", Bool("flag", true))
	logger.Error("error message", Float64("value", 3.14))

	// Sync may return error for stdout/stderr in test environment
	_ = logger.Sync()
}

func TestZapLogger_With(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(DefaultLogConfig())
	require.NoError(t, err)

	childLogger := logger.With(String("service", "test"))

	assert.NotNil(t, childLogger)
	assert.NotEqual(t, logger, childLogger)
}

func TestZapLogger_WithContext(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(DefaultLogConfig())
	require.NoError(t, err)

	ctx := context.Background()
	ctx = util.ContextWithRequestID(ctx, "req-123")
	ctx = util.ContextWithTraceID(ctx, "trace-456")
	ctx = util.ContextWithSpanID(ctx, "span-789")

	childLogger := logger.WithContext(ctx)

	assert.NotNil(t, childLogger)
	assert.NotEqual(t, logger, childLogger)
}

func TestZapLogger_WithContext_EmptyContext(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(DefaultLogConfig())
	require.NoError(t, err)

	ctx := context.Background()
	childLogger := logger.WithContext(ctx)

	// Same logger comes back when the context carries no values
	assert.Equal(t, logger, childLogger)
}

func TestExtractContextFields(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, extractContextFields(ctx))

	ctx = util.ContextWithRequestID(ctx, "req-1")
	assert.Len(t, extractContextFields(ctx), 1)

	ctx = util.ContextWithTraceID(ctx, "trace-1")
	ctx = util.ContextWithSpanID(ctx, "span-1")
	assert.Len(t, extractContextFields(ctx), 3)
}

func TestGlobalLogger(t *testing.T) {
	logger := NopLogger()
	SetGlobalLogger(logger)

	assert.Equal(t, logger, GetGlobalLogger())
	assert.Equal(t, logger, L())
}

func TestGetGlobalLogger_Unset(t *testing.T) {
	SetGlobalLogger(nil)

	// Falls back to a default logger instead of returning nil
	assert.NotNil(t, GetGlobalLogger())
}

func TestNopLogger(t *testing.T) {
	t.Parallel()

	logger := NopLogger()

	// All methods should be safe no-ops
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")
	assert.NotNil(t, logger.With(String("k", "v")))
	assert.NoError(t, logger.Sync())
}

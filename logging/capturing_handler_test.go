package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCapturingHandler(t *testing.T) {
	collector := NewLogCollector(0)
	underlying := slog.NewJSONHandler(bytes.NewBuffer(nil), nil)

	handler := NewCapturingHandler(underlying, collector, slog.LevelWarn)
	require.NotNil(t, handler)
	assert.Equal(t, slog.LevelWarn, handler.minLevel)
}

func TestCapturingHandler_Enabled(t *testing.T) {
	collector := NewLogCollector(0)

	// Underlying handler only writes errors.
	underlying := slog.NewJSONHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError})
	handler := NewCapturingHandler(underlying, collector, slog.LevelWarn)

	ctx := context.Background()
	assert.False(t, handler.Enabled(ctx, slog.LevelDebug))
	assert.False(t, handler.Enabled(ctx, slog.LevelInfo))
	assert.True(t, handler.Enabled(ctx, slog.LevelWarn))
	assert.True(t, handler.Enabled(ctx, slog.LevelError))
}

func TestCapturingHandler_Handle_CapturesAtOrAboveMinLevel(t *testing.T) {
	collector := NewLogCollector(0)
	underlying := slog.NewJSONHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewCapturingHandler(underlying, collector, slog.LevelWarn)

	logger := slog.New(handler)
	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message", "status", 404)
	logger.Error("error message", "error", errors.New("connection refused"))

	logs := collector.GetLogs()
	require.Len(t, logs, 2)

	assert.Equal(t, "WARN", logs[0].Level)
	assert.Equal(t, "warn message", logs[0].Message)
	assert.Equal(t, int64(404), logs[0].Attributes["status"]) // Integers are int64
	assert.Equal(t, "ERROR", logs[1].Level)
	assert.Equal(t, "connection refused", logs[1].Attributes["error"])
}

func TestCapturingHandler_Handle_PassesThrough(t *testing.T) {
	collector := NewLogCollector(0)
	var buf bytes.Buffer
	underlying := slog.NewJSONHandler(&buf, nil)
	handler := NewCapturingHandler(underlying, collector, slog.LevelWarn)

	logger := slog.New(handler)
	logger.Info("test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "value")
	assert.Empty(t, collector.GetLogs())
}

func TestCapturingHandler_Handle_RespectsUnderlyingLevel(t *testing.T) {
	collector := NewLogCollector(0)
	var buf bytes.Buffer
	underlying := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError})
	handler := NewCapturingHandler(underlying, collector, slog.LevelWarn)

	slog.New(handler).Warn("captured only")

	assert.Empty(t, buf.String())
	require.Len(t, collector.GetLogs(), 1)
}

func TestCapturingHandler_WithAttrs_PreservesCapturing(t *testing.T) {
	collector := NewLogCollector(0)
	underlying := slog.NewJSONHandler(bytes.NewBuffer(nil), nil)
	handler := NewCapturingHandler(underlying, collector, slog.LevelWarn)

	logger := slog.New(handler).With("component", "activityclient")
	logger.Error("request failed", "operation", "signup")

	logs := collector.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "activityclient", logs[0].Attributes["component"])
	assert.Equal(t, "signup", logs[0].Attributes["operation"])
}

func TestCapturingHandler_WithAttrs_ReturnsCapturingHandler(t *testing.T) {
	collector := NewLogCollector(0)
	underlying := slog.NewJSONHandler(bytes.NewBuffer(nil), nil)
	handler := NewCapturingHandler(underlying, collector, slog.LevelWarn)

	newHandler := handler.WithAttrs([]slog.Attr{slog.String("key", "value")})

	capturingHandler, ok := newHandler.(*CapturingHandler)
	require.True(t, ok, "WithAttrs should return a *CapturingHandler")
	assert.Equal(t, collector, capturingHandler.collector)
	assert.Equal(t, slog.LevelWarn, capturingHandler.minLevel)
}

func TestCapturingHandler_WithGroup_PreservesCapturing(t *testing.T) {
	collector := NewLogCollector(0)
	var buf bytes.Buffer
	underlying := slog.NewJSONHandler(&buf, nil)
	handler := NewCapturingHandler(underlying, collector, slog.LevelWarn)

	logger := slog.New(handler).WithGroup("request")
	logger.Warn("slow response", "ms", 1200)

	logs := collector.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, "slow response", logs[0].Message)
	assert.Contains(t, buf.String(), "request")

	_, ok := handler.WithGroup("g").(*CapturingHandler)
	assert.True(t, ok, "WithGroup should return a *CapturingHandler")
}

func TestCapturingHandler_ConcurrentLogging(t *testing.T) {
	collector := NewLogCollector(10000)
	underlying := slog.NewJSONHandler(bytes.NewBuffer(nil), nil)
	handler := NewCapturingHandler(underlying, collector, slog.LevelWarn)

	logger := slog.New(handler)
	const numGoroutines = 50
	const logsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(goroutineID int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				logger.Warn("concurrent message", "goroutine", goroutineID, "log", j)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, collector.GetLogs(), numGoroutines*logsPerGoroutine)
}

func TestResolveValue(t *testing.T) {
	group := slog.GroupValue(slog.String("a", "b"), slog.Int("n", 1))

	assert.Equal(t, map[string]interface{}{"a": "b", "n": int64(1)}, resolveValue(group))
	assert.Equal(t, true, resolveValue(slog.BoolValue(true)))
	assert.Equal(t, 1.5, resolveValue(slog.Float64Value(1.5)))
	assert.Equal(t, "boom", resolveValue(slog.AnyValue(errors.New("boom"))))
}

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestStandardLogger_LogStartup(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLoggerWithWriter("info", &buf)

	logger.LogStartup("faresight", "1.0.0", 8080)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "Application startup", entry["msg"])
	assert.Equal(t, "faresight", entry["service"])
	assert.Equal(t, "1.0.0", entry["version"])
	assert.Equal(t, float64(8080), entry["port"])
	assert.Equal(t, "startup", entry["event"])
}

func TestStandardLogger_LogCacheOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLoggerWithWriter("info", &buf)

	logger.LogCacheOperation("get", "fare_cache:/api/fares", true, 3)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "Cache operation", entry["msg"])
	assert.Equal(t, true, entry["hit"])
	assert.Equal(t, "fare_cache:/api/fares", entry["key"])
}

func TestStandardLogger_ContextualFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLoggerWithWriter("info", &buf)

	logger.WithRoute("JFK-LAX").Info("forecast ready")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "JFK-LAX", entry["route"])

	buf.Reset()
	logger.WithError(errors.New("boom")).Warn("something failed")
	entry = decodeLine(t, &buf)
	assert.Equal(t, "boom", entry["error"])

	buf.Reset()
	logger.WithSegment("business").Info("classified")
	entry = decodeLine(t, &buf)
	assert.Equal(t, "business", entry["segment"])
}

func TestStandardLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLoggerWithWriter("warn", &buf)

	logger.Logger().Info("quiet")
	assert.Zero(t, buf.Len(), "info is below the warn threshold")

	logger.Logger().Warn("loud")
	assert.NotZero(t, buf.Len())
}

func TestGetSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getSlogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, getSlogLevel("warn"))
	assert.Equal(t, slog.LevelWarn, getSlogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, getSlogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getSlogLevel("anything else"))
}

func TestParseLogrusLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogrusLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLogrusLevel("warn"))
	assert.Equal(t, logrus.ErrorLevel, ParseLogrusLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLogrusLevel(""))
}

func TestNewLogrusLogger(t *testing.T) {
	logger := NewLogrusLogger("debug")

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

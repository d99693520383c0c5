// internal/logging/logger_test.go
package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetLogger(t *testing.T) {
	logger := GetLogger("test")
	require.NotNil(t, logger)
}

func TestLogOutput(t *testing.T) {
	var buf bytes.Buffer
	InitLogging(LevelDebug, &buf)

	logger := GetLogger("test_component")
	logger.Info("test message", "key1", "value1", "key2", 123)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))

	require.Equal(t, "test message", logEntry["msg"])
	require.Equal(t, "test_component", logEntry["component"])
	require.Equal(t, "value1", logEntry["key1"])
	require.Equal(t, float64(123), logEntry["key2"])
}

func TestIsDebugEnabled(t *testing.T) {
	SetLevel(LevelInfo)
	require.False(t, IsDebugEnabled())

	SetLevel(LevelDebug)
	require.True(t, IsDebugEnabled())
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	InitLogging(LevelDebug, &buf)

	logger := GetLogger("parent").WithField("session", "abc123")
	logger.Warn("child message")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "abc123", entry["session"])
}

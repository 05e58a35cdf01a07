package internal

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	originalLevel := logLevel
	defer SetLogLevel(originalLevel)

	SetLogLevel(LogLevelDebug)
	if logLevel != LogLevelDebug {
		t.Errorf("SetLogLevel() logLevel = %v, want LogLevelDebug", logLevel)
	}

	SetLogLevel(LogLevelError)
	if logLevel != LogLevelError {
		t.Errorf("SetLogLevel() logLevel = %v, want LogLevelError", logLevel)
	}
}

func TestSetVerbose(t *testing.T) {
	originalLevel := logLevel
	defer SetLogLevel(originalLevel)

	SetVerbose(true)
	if logLevel != LogLevelDebug {
		t.Errorf("SetVerbose(true) logLevel = %v, want LogLevelDebug", logLevel)
	}

	SetVerbose(false)
	if logLevel != LogLevelInfo {
		t.Errorf("SetVerbose(false) logLevel = %v, want LogLevelInfo", logLevel)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LogLevelDebug},
		{"INFO", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"nonsense", LogLevelInfo},
		{"", LogLevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.input))
		})
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	originalLogger := logger
	originalLevel := logLevel
	defer func() {
		logger = originalLogger
		SetLogLevel(originalLevel)
	}()

	var stderr, file bytes.Buffer
	SetLogLevel(LogLevelInfo)
	SetupLoggerWithWriters(&stderr, &file)

	LogInfo("session %s created", "abc")
	LogDebug("suppressed at info level")

	assert.Contains(t, stderr.String(), "session abc created")
	assert.NotContains(t, stderr.String(), "suppressed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(file.Bytes()), &entry))
	assert.Equal(t, "session abc created", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestSetupLogger_File(t *testing.T) {
	originalLogger := logger
	defer func() { logger = originalLogger }()

	logFile := filepath.Join(t.TempDir(), "chat.log")
	closeFn := SetupLogger(logFile)
	LogWarn("snapshot failed: %v", "disk full")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "snapshot failed: disk full"))
}

func TestSetupLogger_BadPathFallsBack(t *testing.T) {
	originalLogger := logger
	defer func() { logger = originalLogger }()

	closeFn := SetupLogger(filepath.Join(t.TempDir(), "missing", "dir", "chat.log"))
	assert.NoError(t, closeFn())
	assert.NotNil(t, Logger())
}

func TestLogLevels(t *testing.T) {
	if LogLevelError >= LogLevelWarn {
		t.Error("LogLevelError should be less than LogLevelWarn")
	}
	if LogLevelWarn >= LogLevelInfo {
		t.Error("LogLevelWarn should be less than LogLevelInfo")
	}
	if LogLevelInfo >= LogLevelDebug {
		t.Error("LogLevelInfo should be less than LogLevelDebug")
	}
}

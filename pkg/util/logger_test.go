package util

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: LevelWarn, Format: FormatJSON, Output: &buf})

	logger.Info("hidden")
	logger.Warn("catalog reloaded", "components", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "catalog reloaded", entry["msg"])
	assert.Equal(t, float64(3), entry["components"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(LoggerConfig{Level: LevelDebug, Format: FormatText, Output: &buf}).Debug("hello", "dialogue", "d1")
	assert.Contains(t, buf.String(), "dialogue=d1")
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":        LevelInfo,
		"DEBUG":   LevelDebug,
		" info ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "snipkit.log")
	f, err := OpenLogFile(path)
	require.NoError(t, err)
	logger := NewLogger(LoggerConfig{Output: f})
	logger.Info("written")
	require.NoError(t, f.Close())

	f, err = OpenLogFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestGetOptimalPoolSize(t *testing.T) {
	n := GetOptimalPoolSize()
	assert.GreaterOrEqual(t, n, 4)
	assert.LessOrEqual(t, n, 32)
	assert.Equal(t, 7, GetOptimalPoolSizeWithOverride(7))
	assert.Equal(t, n, GetOptimalPoolSizeWithOverride(0))
}

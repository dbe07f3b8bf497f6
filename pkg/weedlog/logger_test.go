package weedlog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Source: "weed-client", Level: slog.LevelInfo, Output: &buf})
	require.NoError(t, err)
	defer logger.Close()

	logger.Debug("hidden")
	logger.Info("stored", "fid", "3,01637037d6")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=stored")
	assert.Contains(t, out, "source=weed-client")
	assert.Contains(t, out, "fid=3,01637037d6")
}

func TestLoggerJSONAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "client.log")
	logger, err := NewLogger(Config{Source: "test", Level: slog.LevelDebug, Format: "json", File: path, Output: &buf})
	require.NoError(t, err)

	logger.With("volume", 3).Warn("read only")
	require.NoError(t, logger.Close())

	var console map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &console))
	assert.Equal(t, "read only", console["msg"])
	assert.Equal(t, "WARN", console["level"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "test", record["source"])
	assert.EqualValues(t, 3, record["volume"])
}

func TestNewLoggerRejectsFormat(t *testing.T) {
	_, err := NewLogger(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"Error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"loud", "info+2", "DEBUG-4", ""} {
		_, err := ParseLevel(bad)
		assert.Error(t, err, bad)
	}
}

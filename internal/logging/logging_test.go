package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/BrokerScrape/internal/config"
)

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWriter(&buf, config.LoggingConfig{Level: "warn", Format: "text"}, false)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown", "cycle", 3)
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "cycle=3")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWriter(&buf, config.LoggingConfig{Level: "info", Format: "json"}, false)
	require.NoError(t, err)

	l.With("component", "engine").Info("cycle complete", "new", 7)
	l.Debug("hidden")
	require.NoError(t, l.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "cycle complete", entry["msg"])
	assert.Equal(t, "engine", entry["component"])
	assert.EqualValues(t, 7, entry["new"])
}

func TestVerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWriter(&buf, config.LoggingConfig{Level: "error", Format: "json"}, true)
	require.NoError(t, err)

	l.Debug("visible")
	require.NoError(t, l.Sync())
	assert.Contains(t, buf.String(), "visible")
}

func TestNewRejectsUnknownValues(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, config.LoggingConfig{Level: "loud"}, false)
	assert.Error(t, err)

	_, err = NewWriter(&bytes.Buffer{}, config.LoggingConfig{Level: "info", Format: "xml"}, false)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

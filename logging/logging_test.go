package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"TRACE", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"Info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLogLevel("loud")
	require.Error(t, err)
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, slog.LevelWarn, true)
	l.Info("hidden")
	l.Warn("tile download failed", "url", "http://tiles/0/0/0.png")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "WARN", rec["level"])
	require.Equal(t, "http://tiles/0/0/0.png", rec["url"])
}

func TestNewFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "staticmap.log")
	l, closer, err := New(Config{Level: "debug", Filename: name, MaxSize: 1})
	require.NoError(t, err)
	l.Debug("rendering map", "zoom", 5)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Contains(t, string(data), "rendering map")
	require.Contains(t, string(data), "zoom=5")
}

func TestNewRejectsLevel(t *testing.T) {
	_, _, err := New(Config{Level: "verbose"})
	require.Error(t, err)

	l, closer, err := New(Config{Filename: "."})
	require.NoError(t, err)
	l.Error("discarded")
	require.NoError(t, closer.Close())
}

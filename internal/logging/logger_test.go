package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, "json")

	logger.Debug("hidden")
	logger.Info("run completed", "run_id", "abc", "cases", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run completed", entry["msg"])
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, float64(3), entry["cases"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, slog.LevelDebug, "text").Debug("matching", "tier", "shipmentRef")
	assert.Contains(t, buf.String(), "tier=shipmentRef")
}

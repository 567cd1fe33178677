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
		name string
		want slog.Level
	}{
		{"ERROR", slog.LevelError},
		{"warning", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"Info", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}

func TestNewHandler_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, Config{Level: LevelWarning}))

	logger.Info("hidden")
	logger.Warn("shown", "conn_id", "c1")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
	assert.Contains(t, buf.String(), "conn_id=c1")
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, Config{Level: LevelInfo, Format: "JSON"}))

	logger.Info("bound", "agent_id", "A1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "bound", entry["msg"])
	assert.Equal(t, "A1", entry["agent_id"])
}

func TestConfig_IsDebug(t *testing.T) {
	assert.True(t, Config{Level: "debug"}.IsDebug())
	assert.False(t, Config{Level: LevelInfo}.IsDebug())
}

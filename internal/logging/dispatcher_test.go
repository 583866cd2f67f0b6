package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		log   func(*DispatcherLogger)
	}{
		{"debug", func(l *DispatcherLogger) { l.Debug("handled", "command", ":TICK:") }},
		{"info", func(l *DispatcherLogger) { l.Info("handled", "command", ":TICK:") }},
		{"error", func(l *DispatcherLogger) { l.Error("handled", "command", ":TICK:") }},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))

			entry := decode(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "handled", entry["message"])
			assert.Equal(t, ":TICK:", entry["command"])
		})
	}
}

func TestDispatcherLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel)).Debug("hidden")
	assert.Zero(t, buf.Len())
}

func TestDispatcherLogger_ErrorValues(t *testing.T) {
	var buf bytes.Buffer
	NewDispatcherLogger(zerolog.New(&buf)).Error("handler failed", "command", ":ACTIVATE:", "error", errors.New("no propulsion online"))

	entry := decode(t, &buf)
	assert.Equal(t, "no propulsion online", entry["error"])
}

func TestToFields(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 1, "b": "x"}, toFields([]any{"a", 1, "b", "x"}))
	assert.Equal(t, map[string]any{"a": 1, badKey: "dangling"}, toFields([]any{"a", 1, "dangling"}))
	assert.Equal(t, map[string]any{badKey: 2, "b": 3}, toFields([]any{2, "b", 3}))
	assert.Empty(t, toFields(nil))
}

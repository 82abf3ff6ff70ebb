package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { LogLevel.Set(slog.LevelInfo) })

	SetLevel(8)
	assert.Equal(t, slog.LevelError, LogLevel.Level())
	assert.False(t, Logger.Enabled(t.Context(), slog.LevelWarn))

	SetLevel(-4)
	assert.True(t, Logger.Enabled(t.Context(), slog.LevelDebug))
}

func TestForJob(t *testing.T) {
	var out bytes.Buffer
	saved := Logger
	Logger = slog.New(slog.NewJSONHandler(&out, nil))
	t.Cleanup(func() { Logger = saved })

	ForJob("j45wouwjfza7").Info("job status", "status", "InProgress")

	var record map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &record))
	assert.Equal(t, "j45wouwjfza7", record["job_id"])
	assert.Equal(t, "InProgress", record["status"])
}

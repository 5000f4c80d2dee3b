package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	for _, name := range Levels {
		_, err := ParseLevel(name)
		assert.NoError(t, err, name)
	}

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Run("filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New("warn", "console", &buf)
		require.NoError(t, err)

		logger.Info("hidden")
		logger.Warn("shown", zap.String("case", "home"))
		require.NoError(t, logger.Sync())

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
		assert.Contains(t, buf.String(), "WARN")
		assert.Contains(t, buf.String(), `"case": "home"`)
	})

	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New("debug", "json", &buf)
		require.NoError(t, err)

		logger.Debug("navigated", zap.String("url", "https://example.com"))
		require.NoError(t, logger.Sync())

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "navigated", entry["msg"])
		assert.Equal(t, "https://example.com", entry["url"])
		assert.Contains(t, entry, "timestamp")
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := New("info", "xml", &bytes.Buffer{})
		assert.Error(t, err)
	})
}

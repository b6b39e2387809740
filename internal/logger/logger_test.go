package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := newWithSink(Config{Level: "debug", Format: "json", Service: "mealmapp"}, zapcore.AddSync(&buf))
		require.NoError(t, err)

		log.Debug("hello")
		require.NoError(t, log.Sync())

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "debug", entry["level"])
		assert.Equal(t, "mealmapp", entry["service"])
		assert.Contains(t, entry, "timestamp")
	})

	t.Run("LevelFilters", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := newWithSink(Config{Level: "warn"}, zapcore.AddSync(&buf))
		require.NoError(t, err)

		log.Info("dropped")
		assert.Zero(t, buf.Len())
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		_, err := New(Config{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("InvalidFormat", func(t *testing.T) {
		_, err := New(Config{Format: "xml"})
		assert.Error(t, err)
	})
}

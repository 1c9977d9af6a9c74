package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger("info", "json", &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Named("chat").Info("user registered", zap.String("user", "alice"))
	require.NoError(t, log.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "chat", line["logger"])
	assert.Equal(t, "user registered", line["msg"])
	assert.Equal(t, "alice", line["user"])
	assert.Contains(t, line["caller"], "logger_test.go")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger("debug", "console", &buf)
	require.NoError(t, err)

	log.Debug("stats", zap.Int("count", 2))
	assert.Contains(t, buf.String(), "stats")
	assert.Contains(t, buf.String(), `{"count": 2}`)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("loud", "console")
	assert.Error(t, err)
	_, err = New("info", "xml")
	assert.Error(t, err)
}

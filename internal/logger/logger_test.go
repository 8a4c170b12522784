package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestLogrusLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Output: &buf})
	require.NoError(t, err)

	log.Info("test message")

	assert.Contains(t, buf.String(), "test message")
	assert.Contains(t, buf.String(), "level=info")
}

func TestLogrusLogger_DebugFilteredAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Output: &buf})
	require.NoError(t, err)

	log.Debug("hidden")

	assert.Empty(t, buf.String())
}

func TestLogrusLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Output: &buf})
	require.NoError(t, err)

	log.Error("test error message", errors.New("test error"))

	output := buf.String()
	assert.Contains(t, output, "test error message")
	assert.Contains(t, output, "error=\"test error\"")
}

func TestLogrusLogger_ChainedFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	log.WithField("first", "value1").
		WithFields(map[string]interface{}{"second": 2}).
		Info("chained fields test")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "value1", line["first"])
	assert.Equal(t, float64(2), line["second"])
	assert.Equal(t, "chained fields test", line["msg"])
}

func TestNopLogger(t *testing.T) {
	log := NewNop()
	log.WithField("k", "v").Info("nothing")
	log.Error("nothing", errors.New("x"))
}

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSplitsByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, err := NewWithWriters("info", true, &stdout, &stderr)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("augmented", zap.Int("samples", 7))
	logger.Error("failed")
	require.NoError(t, logger.Sync())

	assert.NotContains(t, stdout.String(), "hidden")
	assert.NotContains(t, stdout.String(), "failed")
	assert.Contains(t, stderr.String(), "failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &entry))
	assert.Equal(t, "augmented", entry["msg"])
	assert.Equal(t, float64(7), entry["samples"])
}

func TestErrorLevelSilencesInfo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger, err := NewWithWriters("error", false, &stdout, &stderr)
	require.NoError(t, err)

	logger.Warn("ignored")
	logger.Error("boom")

	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "boom")
}

func TestInvalidLevel(t *testing.T) {
	_, err := NewWithWriters("loud", false, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)
}

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "warn", "json")
	t.Cleanup(func() { Initialize("info", "text") })

	Info("dropped")
	WithComponent("reconciler").Warn("kept", "removed", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "reconciler", entry["component"])
	assert.EqualValues(t, 2, entry["removed"])
}

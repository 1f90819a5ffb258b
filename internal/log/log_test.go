package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Configure is once-per-process, so a single test owns the global setup.
func TestConfigureAndWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "goodmeasure-test", Version: "test"})

	logger := WithComponent("catalog")
	logger.Info().Str("ein", "131837418").Msg("loaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "goodmeasure-test", entry["service"])
	assert.Equal(t, "catalog", entry["component"])
	assert.Equal(t, "131837418", entry["ein"])
	assert.Equal(t, "loaded", entry["message"])
	assert.NotEmpty(t, entry["time"])

	// A second Configure must not replace the writer.
	buf.Reset()
	Configure(Config{Service: "other"})
	base := Base()
	base.Info().Msg("still here")
	assert.Contains(t, buf.String(), "goodmeasure-test")
}

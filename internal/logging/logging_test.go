package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewJSONFormatWritesStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", "json", &buf)
	logger.Info().Str("key", "value").Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"message":"hello"`)
	assert.Contains(t, out, `"key":"value"`)
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New("not-a-level", "json", &buf)
	logger.Debug().Msg("should be suppressed")
	assert.Empty(t, buf.String())

	logger.Info().Msg("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSON(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	l, err := Init(&buf, "warn", ModeJSON)
	require.NoError(t, err)

	l.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestInitPretty(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	_, err := Init(&buf, "", ModePretty)
	require.NoError(t, err)

	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "INF")
	assert.Contains(t, buf.String(), "hello")
}

func TestInitErrors(t *testing.T) {
	_, err := Init(&bytes.Buffer{}, "loud", ModeJSON)
	assert.Error(t, err)

	_, err = Init(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}

func TestColorizeLevel(t *testing.T) {
	assert.Equal(t, red+"ERR"+reset, colorizeLevel("error"))
	assert.Equal(t, blue+"trace"+reset, colorizeLevel("trace"))
}

package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinewise-core/server/internal/core"
)

func TestInit_ProductionWritesJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Production, Service: "dinewise-test", Output: &buf})
	t.Cleanup(func() { Init() })

	Debug().Msg("hidden")
	Info().Str("thread_id", "t1").Msg("visible")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "visible", line["message"])
	assert.Equal(t, "dinewise-test", line["service"])
	assert.Equal(t, "info", line["level"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestThread(t *testing.T) {
	var buf bytes.Buffer
	Init(LoggerOpts{Environment: core.Testing, Output: &buf})
	t.Cleanup(func() { Init() })

	l := Thread("thread-9")
	l.Debug().Msg("hello")
	assert.Contains(t, buf.String(), `"thread_id":"thread-9"`)
	assert.Contains(t, buf.String(), `"service":"dinewise"`)
}

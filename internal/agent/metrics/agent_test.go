package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgent_NilIsNoop(t *testing.T) {
	var m *Agent
	assert.NotPanics(t, func() {
		m.ObserveTurn("router", "ok", time.Second)
		m.ObserveTool("restaurant_data_tool", "ok", time.Second)
		m.ObserveIntent("search", "model")
		m.ObserveReflection("refine")
		m.ObserveMemoryHook("ok")
		m.ObserveCeiling("tool_calls")
		m.AddCost("orchestrator", "gemini-2.5-flash", 0.1)
	})
}

func TestAgent_Observations(t *testing.T) {
	m := NewAgent("test")

	m.ObserveTurn("router", "ok", 200*time.Millisecond)
	m.ObserveTurn("router", "ok", 300*time.Millisecond)
	m.ObserveTool("restaurant_data_tool", "error", time.Millisecond)
	m.ObserveIntent("search", "override")
	m.ObserveReflection("forced")
	m.ObserveMemoryHook("skipped")
	m.ObserveCeiling("reflection")
	m.AddCost("orchestrator", "gemini-2.5-flash", 0.25)
	m.AddCost("orchestrator", "gemini-2.5-flash", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turnsTotal.WithLabelValues("router", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCallsTotal.WithLabelValues("restaurant_data_tool", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.routerIntents.WithLabelValues("search", "override")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reflectionVerdict.WithLabelValues("forced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.memoryHookTotal.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loopCeilingTotal.WithLabelValues("reflection")))
	assert.InDelta(t, 0.25, testutil.ToFloat64(m.llmCostUSD.WithLabelValues("orchestrator", "gemini-2.5-flash")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(m.turnDuration))
}

func TestAgent_Handler(t *testing.T) {
	m := NewAgent("test")
	m.ObserveIntent("simple", "model")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `dinewise_agent_router_intents_total{intent="simple",service="test",source="model"} 1`)
}

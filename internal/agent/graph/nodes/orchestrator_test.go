package nodes

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/dinewise-core/server/internal/agent/graph/tools"
	"github.com/dinewise-core/server/internal/agent/model"
	errx "github.com/dinewise-core/server/internal/core/error"
)

func orchestratorState() *model.ThreadState {
	return &model.ThreadState{
		ThreadID:     "thread-orch",
		CustomerName: "Alex",
		Messages:     []*schema.Message{schema.UserMessage("Find Italian restaurants in Seattle")},
	}
}

func orchestratorConfig(m *scriptedModel) OrchestratorConfig {
	return OrchestratorConfig{
		Model:     m,
		ModelName: "gemini-2.5-flash",
		Now:       func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) },
	}
}

func TestOrchestratorNode_RecordsToolCalls(t *testing.T) {
	reply := &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			toolCall("", tools.ToolRestaurantData, `{"query":"Italian restaurants in Seattle","cuisine":"Italian","location":"Seattle"}`),
			toolCall("provider-id", tools.ToolMemoryRetrieval, `{"query":"preferences"}`),
			toolCall("", tools.ToolMemoryRetrieval, `{"query":"facts"}`),
		},
		ResponseMeta: &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 100_000}},
	}
	m := &scriptedModel{replies: []*schema.Message{reply}}
	state := orchestratorState()

	out, err := runNode(t, NewOrchestratorNode(orchestratorConfig(m)), state, schema.UserMessage("go"))
	require.NoError(t, err)

	require.Len(t, out.ToolCalls, 3)
	assert.Equal(t, "call_1", out.ToolCalls[0].ID)
	assert.Equal(t, "provider-id", out.ToolCalls[1].ID)
	assert.Equal(t, "call_2", out.ToolCalls[2].ID)
	assert.Equal(t, 3, state.ToolCallCount)
	assert.True(t, state.MadeToolCalls)
	assert.Equal(t, 2, state.ToolCallIDSeq)
	assert.Same(t, out, state.LastMessage())
	assert.InDelta(t, 0.30+0.25, state.TotalCostUSD, 1e-9)

	sent := m.inputs[0]
	require.Len(t, sent, 2)
	assert.Equal(t, schema.System, sent[0].Role)
	assert.Contains(t, sent[0].Content, "Alex")
	assert.Contains(t, sent[0].Content, tools.ToolRestaurantData)
	assert.Equal(t, "Find Italian restaurants in Seattle", sent[1].Content)
}

func TestOrchestratorNode_FinalAnswerKeepsFlags(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("Here are some options.", nil)}}
	state := orchestratorState()
	state.ToolCallCount = 2
	state.MadeToolCalls = true

	_, err := runNode(t, NewOrchestratorNode(orchestratorConfig(m)), state, schema.UserMessage("go"))
	require.NoError(t, err)
	assert.Equal(t, 2, state.ToolCallCount)
	assert.True(t, state.MadeToolCalls)
	assert.Equal(t, ToEnd, ShouldContinue(state, false))
}

func TestOrchestratorNode_InjectsRefinementFeedback(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("Improved answer.", nil)}}
	state := orchestratorState()
	state.ReflectionCount = 1
	state.ReflectionFeedback = "List at least six restaurants."

	_, err := runNode(t, NewOrchestratorNode(orchestratorConfig(m)), state, schema.UserMessage("go"))
	require.NoError(t, err)

	sent := m.inputs[0]
	last := sent[len(sent)-1]
	assert.Equal(t, schema.System, last.Role)
	assert.Contains(t, last.Content, "List at least six restaurants.")
	for _, msg := range state.Messages {
		assert.NotContains(t, msg.Content, "List at least six restaurants.", "refinement instruction must stay out of history")
	}
}

func TestOrchestratorNode_NoFeedbackWithoutReflection(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage("ok", nil)}}
	state := orchestratorState()
	state.ReflectionFeedback = "ignored before any reflection pass"

	_, err := runNode(t, NewOrchestratorNode(orchestratorConfig(m)), state, schema.UserMessage("go"))
	require.NoError(t, err)
	assert.Len(t, m.inputs[0], 2)
}

func TestOrchestratorNode_ModelFailurePropagates(t *testing.T) {
	m := &scriptedModel{err: errors.New("deadline exceeded")}
	state := orchestratorState()

	_, err := runNode(t, NewOrchestratorNode(orchestratorConfig(m)), state, schema.UserMessage("go"))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
	assert.Len(t, state.Messages, 1)
}

func TestOrchestratorNode_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	m := &scriptedModel{replies: []*schema.Message{{
		Role:      schema.Assistant,
		ToolCalls: []schema.ToolCall{toolCall("", tools.ToolRestaurantData, `{"query":"tacos"}`)},
	}}}
	_, err := runNode(t, NewOrchestratorNode(orchestratorConfig(m)), orchestratorState(), schema.UserMessage("go"))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "agent.orchestrator", spans[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(1), attrs["iteration"].AsInt64())
	assert.Equal(t, []string{tools.ToolRestaurantData}, attrs["tool_names"].AsStringSlice())
	assert.Equal(t, int64(1), attrs["tool_call_count"].AsInt64())
}

func TestSimpleResponderNode(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{{
		Role:      schema.Assistant,
		Content:   "Hi Alex! Hungry for anything in particular?",
		ToolCalls: []schema.ToolCall{toolCall("", "stray", "{}")},
	}}}
	state := orchestratorState()
	state.Messages = []*schema.Message{schema.UserMessage("hello")}

	out, err := runNode(t, NewSimpleResponderNode(SimpleResponderConfig{Model: m}), state, schema.UserMessage("go"))
	require.NoError(t, err)
	assert.Equal(t, "Hi Alex! Hungry for anything in particular?", out.Content)
	assert.Empty(t, out.ToolCalls)
	assert.Len(t, state.Messages, 2)
	assert.Zero(t, state.ToolCallCount)
	assert.Contains(t, m.inputs[0][0].Content, "Alex")
}

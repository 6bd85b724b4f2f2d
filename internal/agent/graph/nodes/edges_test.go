package nodes

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"

	"github.com/dinewise-core/server/internal/agent/model"
)

func TestShouldContinue(t *testing.T) {
	withCalls := &schema.Message{Role: schema.Assistant, ToolCalls: []schema.ToolCall{toolCall("call_1", "restaurant_data_tool", "{}")}}
	final := schema.AssistantMessage("here you go", nil)

	tests := []struct {
		name    string
		last    *schema.Message
		count   int
		reflect bool
		want    Transition
	}{
		{name: "tool calls below cap", last: withCalls, count: 1, want: ToAct},
		{name: "tool calls one below cap", last: withCalls, count: model.MaxToolCallsPerTurn - 1, want: ToAct},
		{name: "tool calls at cap", last: withCalls, count: model.MaxToolCallsPerTurn, want: ToEnd},
		{name: "tool calls past cap", last: withCalls, count: model.MaxToolCallsPerTurn + 2, want: ToEnd},
		{name: "tool calls at cap with reflection", last: withCalls, count: model.MaxToolCallsPerTurn, reflect: true, want: ToReflect},
		{name: "final answer", last: final, count: 2, want: ToEnd},
		{name: "final answer with reflection", last: final, count: 2, reflect: true, want: ToReflect},
		{name: "empty history", last: nil, want: ToEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &model.ThreadState{ToolCallCount: tt.count}
			if tt.last != nil {
				s.Messages = []*schema.Message{schema.UserMessage("hi"), tt.last}
			}
			assert.Equal(t, tt.want, ShouldContinue(s, tt.reflect))
		})
	}
}

func TestRouteByIntent(t *testing.T) {
	assert.Equal(t, ToSearch, RouteByIntent(&model.ThreadState{Intent: model.IntentSearch}))
	assert.Equal(t, ToSimple, RouteByIntent(&model.ThreadState{Intent: model.IntentSimple}))
	assert.Equal(t, ToSimple, RouteByIntent(&model.ThreadState{Intent: model.IntentOffTopic}))
	assert.Equal(t, ToSearch, RouteByIntent(&model.ThreadState{}))
}

func TestRefineOrEnd(t *testing.T) {
	assert.Equal(t, ToEnd, RefineOrEnd(&model.ThreadState{IsSatisfactory: true, ReflectionCount: 1}))
	assert.Equal(t, ToRefine, RefineOrEnd(&model.ThreadState{IsSatisfactory: false, ReflectionCount: 1, ReflectionFeedback: "more"}))
	assert.Equal(t, ToEnd, RefineOrEnd(&model.ThreadState{IsSatisfactory: false, ReflectionCount: model.MaxReflectionIterations}))
}

func TestCeilingReached(t *testing.T) {
	s := &model.ThreadState{
		ToolCallCount: model.MaxToolCallsPerTurn,
		Messages: []*schema.Message{
			{Role: schema.Assistant, ToolCalls: []schema.ToolCall{toolCall("call_4", "restaurant_data_tool", "{}")}},
		},
	}
	assert.True(t, CeilingReached(s))

	s.ToolCallCount = 2
	assert.False(t, CeilingReached(s))
}

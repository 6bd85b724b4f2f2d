package nodes

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinewise-core/server/internal/agent/model"
)

func draftState(madeToolCalls bool, reflections int) *model.ThreadState {
	return &model.ThreadState{
		ThreadID:        "thread-reflect",
		MadeToolCalls:   madeToolCalls,
		ReflectionCount: reflections,
		Messages: []*schema.Message{
			schema.UserMessage("Find Italian restaurants in Seattle"),
			{Role: schema.Assistant, ToolCalls: []schema.ToolCall{toolCall("call_1", "restaurant_data_tool", "{}")}},
			schema.ToolMessage(`{"total_results":4}`, "call_1"),
			schema.AssistantMessage("Here are four Italian places.", nil),
		},
	}
}

const unsatisfied = `{"is_satisfactory": false, "score": 4, "issues": ["only four results"], "feedback": "List at least six restaurants."}`

func TestReflectorNode_RequestsRefinement(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(unsatisfied, nil)}}
	state := draftState(true, 0)

	_, err := runNode(t, NewReflectorNode(ReflectorConfig{Model: m}), state, schema.UserMessage("go"))
	require.NoError(t, err)

	assert.Equal(t, 1, m.calls())
	assert.Equal(t, 1, state.ReflectionCount)
	assert.False(t, state.IsSatisfactory)
	assert.Equal(t, "List at least six restaurants.", state.ReflectionFeedback)
	assert.Equal(t, ToRefine, RefineOrEnd(state))

	reviewed := m.inputs[0][1].Content
	assert.Contains(t, reviewed, "Find Italian restaurants in Seattle")
	assert.Contains(t, reviewed, "Here are four Italian places.")
}

func TestReflectorNode_SecondPassIsForcedSatisfactory(t *testing.T) {
	m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(unsatisfied, nil)}}
	state := draftState(true, 1)
	state.ReflectionFeedback = "List at least six restaurants."

	_, err := runNode(t, NewReflectorNode(ReflectorConfig{Model: m}), state, schema.UserMessage("go"))
	require.NoError(t, err)

	assert.Equal(t, model.MaxReflectionIterations, state.ReflectionCount)
	assert.True(t, state.IsSatisfactory)
	assert.Empty(t, state.ReflectionFeedback)
	assert.Equal(t, ToEnd, RefineOrEnd(state))
}

func TestReflectorNode_FailsOpen(t *testing.T) {
	for name, m := range map[string]*scriptedModel{
		"model error":      {err: errors.New("503")},
		"unparsable reply": {replies: []*schema.Message{schema.AssistantMessage("looks fine to me", nil)}},
	} {
		t.Run(name, func(t *testing.T) {
			state := draftState(true, 0)
			_, err := runNode(t, NewReflectorNode(ReflectorConfig{Model: m}), state, schema.UserMessage("go"))
			require.NoError(t, err)
			assert.True(t, state.IsSatisfactory)
			assert.Equal(t, 1, state.ReflectionCount)
			assert.Empty(t, state.ReflectionFeedback)
		})
	}
}

func TestReflectorNode_Skips(t *testing.T) {
	capped := draftState(true, 0)
	capped.Messages = capped.Messages[:2]

	tests := map[string]*model.ThreadState{
		"no tool calls made": draftState(false, 0),
		"ceiling reached":    draftState(true, model.MaxReflectionIterations),
		"no final answer":    capped,
	}
	for name, state := range tests {
		t.Run(name, func(t *testing.T) {
			m := &scriptedModel{replies: []*schema.Message{schema.AssistantMessage(unsatisfied, nil)}}
			before := state.ReflectionCount

			_, err := runNode(t, NewReflectorNode(ReflectorConfig{Model: m}), state, schema.UserMessage("go"))
			require.NoError(t, err)
			assert.Zero(t, m.calls())
			assert.True(t, state.IsSatisfactory)
			assert.Equal(t, before, state.ReflectionCount)
		})
	}
}

func TestFeedbackText(t *testing.T) {
	assert.Equal(t, "Be concise.", feedbackText(&model.ReflectionVerdict{Feedback: " Be concise. "}))
	assert.Equal(t, "Fix these issues: a; b", feedbackText(&model.ReflectionVerdict{Issues: []string{"a", "b"}}))
	assert.NotEmpty(t, feedbackText(&model.ReflectionVerdict{}))
}

func TestReflectionSchema(t *testing.T) {
	s := ReflectionSchema()
	assert.ElementsMatch(t, []string{"is_satisfactory", "score", "issues", "feedback"}, s.Required)

	decode := func(raw string) any {
		var v any
		require.NoError(t, json.Unmarshal([]byte(raw), &v))
		return v
	}
	assert.NoError(t, s.VisitJSON(decode(`{"is_satisfactory": false, "score": 4, "issues": ["only one option"], "feedback": "List three places."}`)))
	assert.Error(t, s.VisitJSON(decode(`{"is_satisfactory": true, "issues": [], "feedback": ""}`)), "score is required")
	assert.Error(t, s.VisitJSON(decode(`{"is_satisfactory": true, "score": 11, "issues": [], "feedback": ""}`)), "score tops out at 10")
}

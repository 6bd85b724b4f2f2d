package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinewise-core/server/internal/agent/graph/tools"
	"github.com/dinewise-core/server/internal/agent/model"
)

type fakeTool struct {
	name string
	run  func(ctx context.Context, args string) (string, error)
}

func (f *fakeTool) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{Name: f.name, Desc: f.name}, nil
}

func (f *fakeTool) InvokableRun(ctx context.Context, args string, _ ...tool.Option) (string, error) {
	return f.run(ctx, args)
}

func newToolSet(t *testing.T, list ...tool.InvokableTool) *tools.ToolSet {
	t.Helper()
	ts, err := tools.NewToolSet(context.Background(), list)
	require.NoError(t, err)
	return ts
}

func pendingState(calls ...schema.ToolCall) *model.ThreadState {
	return &model.ThreadState{
		ThreadID: "thread-exec",
		ActorID:  "user:alex",
		Messages: []*schema.Message{
			schema.UserMessage("Find food"),
			{Role: schema.Assistant, ToolCalls: calls},
		},
	}
}

func TestToolExecutorNode_KeepsCallOrder(t *testing.T) {
	var inFlight, peak int32
	track := func(d time.Duration, result string) func(context.Context, string) (string, error) {
		return func(context.Context, string) (string, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(d)
			atomic.AddInt32(&inFlight, -1)
			return result, nil
		}
	}
	ts := newToolSet(t,
		&fakeTool{name: "slow", run: track(80*time.Millisecond, "slow-result")},
		&fakeTool{name: "fast", run: track(5*time.Millisecond, "fast-result")},
	)
	state := pendingState(toolCall("call_1", "slow", "{}"), toolCall("call_2", "fast", "{}"))

	out, err := runNode(t, NewToolExecutorNode(ToolExecutorConfig{Tools: ts, Concurrency: 4}), state, schema.UserMessage("go"))
	require.NoError(t, err)

	require.Len(t, state.Messages, 4)
	assert.Equal(t, "call_1", state.Messages[2].ToolCallID)
	assert.Equal(t, "slow-result", state.Messages[2].Content)
	assert.Equal(t, "call_2", state.Messages[3].ToolCallID)
	assert.Equal(t, "fast-result", state.Messages[3].Content)
	assert.Same(t, state.Messages[3], out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&peak), "calls of one batch should run concurrently")
}

func TestToolExecutorNode_IsolatesFailures(t *testing.T) {
	ts := newToolSet(t,
		&fakeTool{name: "broken", run: func(context.Context, string) (string, error) {
			return "", errors.New("backend down")
		}},
		&fakeTool{name: "panicky", run: func(context.Context, string) (string, error) {
			panic("boom")
		}},
		&fakeTool{name: "healthy", run: func(context.Context, string) (string, error) {
			return `{"ok":true}`, nil
		}},
	)
	state := pendingState(
		toolCall("call_1", "broken", "{}"),
		toolCall("call_2", "panicky", "{}"),
		toolCall("call_3", "made_up_tool", `{"x":1}`),
		toolCall("call_4", "healthy", "{}"),
	)

	_, err := runNode(t, NewToolExecutorNode(ToolExecutorConfig{Tools: ts}), state, schema.UserMessage("go"))
	require.NoError(t, err)
	require.Len(t, state.Messages, 6)

	envelope := func(i int) map[string]string {
		var m map[string]string
		require.NoError(t, json.Unmarshal([]byte(state.Messages[i].Content), &m))
		return m
	}
	assert.Equal(t, "tool_failed", envelope(2)["error"])
	assert.Contains(t, envelope(2)["message"], "backend down")
	assert.Equal(t, "tool_failed", envelope(3)["error"])
	assert.Equal(t, "unknown_tool", envelope(4)["error"])
	assert.Equal(t, "made_up_tool", envelope(4)["name"])
	assert.Equal(t, `{"ok":true}`, state.Messages[5].Content)

	for i, id := range []string{"call_1", "call_2", "call_3", "call_4"} {
		assert.Equal(t, schema.Tool, state.Messages[i+2].Role)
		assert.Equal(t, id, state.Messages[i+2].ToolCallID)
	}
}

func TestToolExecutorNode_ScopesEachCall(t *testing.T) {
	echo := &fakeTool{name: "echo", run: func(ctx context.Context, args string) (string, error) {
		scope, ok := tools.ScopeFrom(ctx)
		if !ok {
			return "", errors.New("no scope")
		}
		return scope.ActorID + "|" + scope.SessionKey + "|" + args, nil
	}}
	state := pendingState(toolCall("call_1", "echo", `{"a":1}`), toolCall("call_2", "echo", `{"b":2}`))

	_, err := runNode(t, NewToolExecutorNode(ToolExecutorConfig{Tools: newToolSet(t, echo)}), state, schema.UserMessage("go"))
	require.NoError(t, err)

	assert.Equal(t, `user:alex|thread-exec:call_1|{"a":1}`, state.Messages[2].Content)
	assert.Equal(t, `user:alex|thread-exec:call_2|{"b":2}`, state.Messages[3].Content)
}

func TestToolExecutorNode_SanitizesArguments(t *testing.T) {
	var got string
	search := &fakeTool{name: tools.ToolRestaurantData, run: func(_ context.Context, args string) (string, error) {
		got = args
		return "{}", nil
	}}
	state := pendingState(toolCall("call_1", tools.ToolRestaurantData, `{"query":"  sushi ","limit":"40","cuisine":7}`))

	_, err := runNode(t, NewToolExecutorNode(ToolExecutorConfig{Tools: newToolSet(t, search)}), state, schema.UserMessage("go"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":"sushi","limit":10}`, got)
}

func TestToolExecutorNode_NoPendingCalls(t *testing.T) {
	state := &model.ThreadState{Messages: []*schema.Message{schema.AssistantMessage("done", nil)}}
	_, err := runNode(t, NewToolExecutorNode(ToolExecutorConfig{Tools: newToolSet(t)}), state, schema.UserMessage("go"))
	assert.Error(t, err)
}

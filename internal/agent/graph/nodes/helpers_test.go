package nodes

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	agentmodel "github.com/dinewise-core/server/internal/agent/model"
)

// scriptedModel replays replies in order; the last one repeats.
type scriptedModel struct {
	mu      sync.Mutex
	replies []*schema.Message
	err     error
	inputs  [][]*schema.Message
	tools   []*schema.ToolInfo
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return nil, fmt.Errorf("no scripted reply")
	}
	idx := len(m.inputs) - 1
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	reply := *m.replies[idx]
	reply.ToolCalls = append([]schema.ToolCall(nil), reply.ToolCalls...)
	return &reply, nil
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = tools
	return m, nil
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

func toolCall(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Function: schema.FunctionCall{Name: name, Arguments: args}}
}

// runNode executes a single lambda inside a one-node graph whose local
// state is state, so node code can use compose.ProcessState.
func runNode[I any](t *testing.T, node *compose.Lambda, state *agentmodel.ThreadState, in I) (*schema.Message, error) {
	t.Helper()
	g := compose.NewGraph[I, *schema.Message](
		compose.WithGenLocalState(func(context.Context) *agentmodel.ThreadState { return state }),
	)
	require.NoError(t, g.AddLambdaNode("node", node))
	require.NoError(t, g.AddEdge(compose.START, "node"))
	require.NoError(t, g.AddEdge("node", compose.END))
	r, err := g.Compile(context.Background())
	require.NoError(t, err)
	return r.Invoke(context.Background(), in)
}

package graph

import (
	"context"
	"fmt"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/dinewise-core/server/internal/agent/graph/nodes"
	"github.com/dinewise-core/server/internal/agent/graph/tools"
	"github.com/dinewise-core/server/internal/agent/memory"
	"github.com/dinewise-core/server/internal/agent/model"
	"github.com/dinewise-core/server/internal/agent/repo"
	"github.com/dinewise-core/server/internal/agent/search"
)

// fakeModel answers through respond, which sees the call index and input.
type fakeModel struct {
	mu      sync.Mutex
	respond func(call int, msgs []*schema.Message) (*schema.Message, error)
	inputs  [][]*schema.Message
	tools   []*schema.ToolInfo
}

func (m *fakeModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	call := len(m.inputs)
	m.mu.Unlock()
	return m.respond(call, input)
}

func (m *fakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *fakeModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = tools
	return m, nil
}

func (m *fakeModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

func (m *fakeModel) input(i int) []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputs[i]
}

func (m *fakeModel) toolNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tools))
	for _, t := range m.tools {
		names = append(names, t.Name)
	}
	return names
}

func reply(text string) func(int, []*schema.Message) (*schema.Message, error) {
	return func(int, []*schema.Message) (*schema.Message, error) {
		return schema.AssistantMessage(text, nil), nil
	}
}

func callTool(name, args string) *schema.Message {
	return &schema.Message{
		Role:      schema.Assistant,
		ToolCalls: []schema.ToolCall{{Function: schema.FunctionCall{Name: name, Arguments: args}}},
	}
}

type recordingMemory struct {
	mu      sync.Mutex
	records []model.TurnRecord
}

func (r *recordingMemory) ProcessTurn(_ context.Context, rec model.TurnRecord) model.ProcessResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return model.ProcessResult{Success: true}
}

func (r *recordingMemory) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type stubExplorer struct{}

func (stubExplorer) Explore(_ context.Context, query, _ string) (*model.SearchResult, error) {
	return &model.SearchResult{Query: query, DataSource: model.DataSourceBrowser}, nil
}

type stubResearcher struct{}

func (stubResearcher) Research(_ context.Context, q model.ResearchQuery, _ string) (map[string]any, error) {
	return map[string]any{"restaurant_name": q.RestaurantName}, nil
}

type harness struct {
	router       *fakeModel
	orchestrator *fakeModel
	reflector    *fakeModel
	memory       *recordingMemory
	checkpointer *repo.MemoryCheckpointer
}

func newHarness() *harness {
	fail := func(int, []*schema.Message) (*schema.Message, error) {
		return nil, fmt.Errorf("unexpected model call")
	}
	return &harness{
		router:       &fakeModel{respond: reply("search")},
		orchestrator: &fakeModel{respond: fail},
		reflector:    &fakeModel{respond: fail},
		memory:       &recordingMemory{},
		checkpointer: repo.NewMemoryCheckpointer(),
	}
}

func (h *harness) config(t *testing.T, topology model.Topology) Config {
	t.Helper()
	registry, err := tools.NewRegistry(tools.Backends{
		Search:     search.NewCatalog(search.SampleRestaurants...),
		Memory:     memory.Disabled{},
		Explorer:   stubExplorer{},
		Researcher: stubResearcher{},
	})
	require.NoError(t, err)
	return Config{
		Topology: topology,
		Models: &nodes.ChatModels{
			Router:       h.router,
			Orchestrator: h.orchestrator,
			Extractor:    h.orchestrator,
			Reflector:    h.reflector,
			Names:        map[model.Role]string{model.RoleOrchestrator: "gemini-2.5-flash"},
		},
		Registry:     registry,
		Checkpointer: h.checkpointer,
		Memory:       h.memory,
	}
}

func (h *harness) app(t *testing.T, topology model.Topology) *App {
	t.Helper()
	app, err := NewApp(context.Background(), h.config(t, topology))
	require.NoError(t, err)
	return app
}

func (h *harness) state(t *testing.T, threadID string) *model.ThreadState {
	t.Helper()
	s, err := h.checkpointer.Load(context.Background(), threadID)
	require.NoError(t, err)
	return s
}

func countRole(msgs []*schema.Message, role schema.RoleType) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}

package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/graph/nodes"
	"github.com/dinewise-core/server/internal/agent/graph/tools"
	"github.com/dinewise-core/server/internal/agent/metrics"
	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// maxRunSteps bounds a turn's supersteps. The iteration ceilings already
// bound the loops; this is the runtime's own backstop.
const maxRunSteps = 48

// Config holds everything needed to assemble the turn graph.
type Config struct {
	Topology model.Topology
	Models   *nodes.ChatModels
	Registry *tools.Registry
	// IncludeOptionalTools is read once per build; changing it requires Rebuild.
	IncludeOptionalTools bool
	Checkpointer         model.Checkpointer
	Memory               model.MemoryProcessor
	Metrics              *metrics.Agent
	ToolConcurrency      int
	HistoryMaxMessages   int
}

func (c Config) validate() error {
	if c.Models == nil || c.Models.Orchestrator == nil {
		return fmt.Errorf("orchestrator model is not initialized")
	}
	if c.Topology.HasRouter() && c.Models.Router == nil {
		return fmt.Errorf("router model is not initialized")
	}
	if c.Topology.HasReflector() && c.Models.Reflector == nil {
		return fmt.Errorf("reflector model is not initialized")
	}
	if c.Registry == nil {
		return fmt.Errorf("tool registry is nil")
	}
	if c.Checkpointer == nil {
		return fmt.Errorf("checkpointer is nil")
	}
	return nil
}

// GraphBuilder handles the construction of one topology.
type GraphBuilder struct {
	config Config
	tools  *tools.ToolSet
	graph  *compose.Graph[model.TurnInput, *schema.Message]
}

// Build assembles and compiles the graph for cfg.Topology:
//
//	react:      intake -> orchestrator <-> tool_executor -> memory_post_hook
//	reflection: intake -> orchestrator <-> tool_executor -> reflector -> (orchestrator | memory_post_hook)
//	router:     intake -> router -> (orchestrator <-> tool_executor | simple_responder) -> memory_post_hook
func Build(ctx context.Context, cfg Config) (compose.Runnable[model.TurnInput, *schema.Message], error) {
	cfg.Topology = model.ParseTopology(string(cfg.Topology))
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ts, err := tools.NewToolSet(ctx, cfg.Registry.GetTools(cfg.IncludeOptionalTools))
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return nil, fmt.Errorf("failed to get tool infos: %w", err)
	}

	b := &GraphBuilder{
		config: cfg,
		tools:  ts,
		graph: compose.NewGraph[model.TurnInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.ThreadState {
				return &model.ThreadState{}
			}),
		),
	}

	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	if err := b.addBranches(); err != nil {
		return nil, err
	}
	return b.compile(ctx)
}

func (b *GraphBuilder) addNodes() error {
	cfg := b.config
	models := cfg.Models

	bound, err := models.Orchestrator.WithTools(b.tools.Infos())
	if err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}

	add := func(key string, node *compose.Lambda) error {
		if err := b.graph.AddLambdaNode(key, node,
			compose.WithNodeName(key),
			compose.WithStatePostHandler(checkpointHandler(cfg.Checkpointer, key)),
		); err != nil {
			return fmt.Errorf("add node %s: %w", key, err)
		}
		return nil
	}

	if err := add(nodes.NodeIntake, nodes.NewIntakeNode(cfg.Checkpointer)); err != nil {
		return err
	}
	if err := add(nodes.NodeOrchestrator, nodes.NewOrchestratorNode(nodes.OrchestratorConfig{
		Model:              bound,
		ModelName:          models.Name(model.RoleOrchestrator),
		Tools:              b.tools,
		HistoryMaxMessages: cfg.HistoryMaxMessages,
		Metrics:            cfg.Metrics,
	})); err != nil {
		return err
	}
	if err := add(nodes.NodeToolExecutor, nodes.NewToolExecutorNode(nodes.ToolExecutorConfig{
		Tools:       b.tools,
		Concurrency: cfg.ToolConcurrency,
		Metrics:     cfg.Metrics,
	})); err != nil {
		return err
	}
	if err := add(nodes.NodeMemoryPostHook, nodes.NewMemoryPostHookNode(nodes.MemoryPostHookConfig{
		Memory:  cfg.Memory,
		Metrics: cfg.Metrics,
	})); err != nil {
		return err
	}

	if cfg.Topology.HasRouter() {
		if err := add(nodes.NodeRouter, nodes.NewRouterNode(nodes.RouterConfig{
			Model:     models.Router,
			ModelName: models.Name(model.RoleRouter),
			Metrics:   cfg.Metrics,
		})); err != nil {
			return err
		}
		if err := add(nodes.NodeSimpleResponder, nodes.NewSimpleResponderNode(nodes.SimpleResponderConfig{
			Model:              models.Orchestrator,
			ModelName:          models.Name(model.RoleOrchestrator),
			HistoryMaxMessages: cfg.HistoryMaxMessages,
			Metrics:            cfg.Metrics,
		})); err != nil {
			return err
		}
	}

	if cfg.Topology.HasReflector() {
		if err := add(nodes.NodeReflector, nodes.NewReflectorNode(nodes.ReflectorConfig{
			Model:     models.Reflector,
			ModelName: models.Name(model.RoleReflector),
			Metrics:   cfg.Metrics,
		})); err != nil {
			return err
		}
	}
	return nil
}

func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeIntake},
		{nodes.NodeToolExecutor, nodes.NodeOrchestrator},
		{nodes.NodeMemoryPostHook, compose.END},
	}
	if b.config.Topology.HasRouter() {
		edges = append(edges,
			[2]string{nodes.NodeIntake, nodes.NodeRouter},
			[2]string{nodes.NodeSimpleResponder, nodes.NodeMemoryPostHook},
		)
	} else {
		edges = append(edges, [2]string{nodes.NodeIntake, nodes.NodeOrchestrator})
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

func (b *GraphBuilder) addBranches() error {
	reflect := b.config.Topology.HasReflector()
	terminal := nodes.NodeMemoryPostHook
	if reflect {
		terminal = nodes.NodeReflector
	}

	continuation := compose.NewGraphBranch(
		stateCondition(func(s *model.ThreadState) string {
			switch nodes.ShouldContinue(s, reflect) {
			case nodes.ToAct:
				return nodes.NodeToolExecutor
			case nodes.ToReflect:
				return nodes.NodeReflector
			default:
				return nodes.NodeMemoryPostHook
			}
		}),
		map[string]bool{nodes.NodeToolExecutor: true, terminal: true},
	)
	if err := b.graph.AddBranch(nodes.NodeOrchestrator, continuation); err != nil {
		logx.Error().Err(err).Msg("Error adding continuation branch")
		return fmt.Errorf("error adding continuation branch: %w", err)
	}

	if b.config.Topology.HasRouter() {
		route := compose.NewGraphBranch(
			stateCondition(func(s *model.ThreadState) string {
				if nodes.RouteByIntent(s) == nodes.ToSimple {
					return nodes.NodeSimpleResponder
				}
				return nodes.NodeOrchestrator
			}),
			map[string]bool{nodes.NodeOrchestrator: true, nodes.NodeSimpleResponder: true},
		)
		if err := b.graph.AddBranch(nodes.NodeRouter, route); err != nil {
			logx.Error().Err(err).Msg("Error adding intent branch")
			return fmt.Errorf("error adding intent branch: %w", err)
		}
	}

	if reflect {
		refine := compose.NewGraphBranch(
			stateCondition(func(s *model.ThreadState) string {
				if nodes.RefineOrEnd(s) == nodes.ToRefine {
					return nodes.NodeOrchestrator
				}
				return nodes.NodeMemoryPostHook
			}),
			map[string]bool{nodes.NodeOrchestrator: true, nodes.NodeMemoryPostHook: true},
		)
		if err := b.graph.AddBranch(nodes.NodeReflector, refine); err != nil {
			logx.Error().Err(err).Msg("Error adding refine branch")
			return fmt.Errorf("error adding refine branch: %w", err)
		}
	}
	return nil
}

func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *schema.Message], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("dinewise_"+string(b.config.Topology)),
		compose.WithMaxRunSteps(maxRunSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().
		Str("topology", string(b.config.Topology)).
		Strs("tools", b.tools.Names()).
		Msg("Graph compiled successfully")
	return runnable, nil
}

// stateCondition adapts a pure decision over the thread state into a
// branch condition.
func stateCondition(decide func(*model.ThreadState) string) func(context.Context, *schema.Message) (string, error) {
	return func(ctx context.Context, _ *schema.Message) (string, error) {
		var next string
		err := compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			next = decide(state)
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}
		return next, nil
	}
}

// checkpointHandler persists the state after node runs. A failed save
// is logged and the turn continues.
func checkpointHandler(cp model.Checkpointer, node string) func(context.Context, *schema.Message, *model.ThreadState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.ThreadState) (*schema.Message, error) {
		if err := cp.Save(ctx, state); err != nil {
			logx.Warn().Err(err).
				Str("thread_id", state.ThreadID).
				Str("node", node).
				Msg("Checkpoint save failed")
		}
		return out, nil
	}
}

package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dinewise-core/server/internal/agent/graph/conversations"
	"github.com/dinewise-core/server/internal/agent/graph/observers"
	"github.com/dinewise-core/server/internal/agent/graph/prompts"
	"github.com/dinewise-core/server/internal/agent/graph/tools"
	"github.com/dinewise-core/server/internal/agent/metrics"
	"github.com/dinewise-core/server/internal/agent/model"
	errx "github.com/dinewise-core/server/internal/core/error"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// OrchestratorConfig configures one reasoning step of the search agent.
type OrchestratorConfig struct {
	// Model must already have the tool set bound.
	Model              einomodel.BaseChatModel
	ModelName          string
	Tools              *tools.ToolSet
	HistoryMaxMessages int
	Metrics            *metrics.Agent
	Now                func() time.Time
}

type reasoningInput struct {
	threadID        string
	customerName    string
	history         []*schema.Message
	feedback        string
	reflectionCount int
	iteration       int
}

// NewOrchestratorNode runs one ReAct reasoning step: the bound model either
// requests tools or answers. The node only keeps the bookkeeping straight.
func NewOrchestratorNode(cfg OrchestratorConfig) *compose.Lambda {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) (*schema.Message, error) {
		var in reasoningInput
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			in = reasoningInput{
				threadID:        state.ThreadID,
				customerName:    state.CustomerName,
				history:         copyMessages(state.Messages),
				feedback:        state.ReflectionFeedback,
				reflectionCount: state.ReflectionCount,
				iteration:       countAssistant(state.TurnMessages()) + 1,
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		ctx, span := observers.StartSpan(ctx, "agent.orchestrator",
			attribute.String("thread_id", in.threadID),
			attribute.Int("iteration", in.iteration),
			attribute.Int("reflection_count", in.reflectionCount),
		)

		messages, err := orchestratorContext(ctx, cfg, in)
		if err != nil {
			observers.EndSpan(span, err)
			return nil, err
		}

		reply, err := conversations.Generate(ctx, cfg.Model, NodeOrchestrator, messages)
		if err != nil {
			observers.EndSpan(span, err)
			logx.Error().Err(err).Str("thread_id", in.threadID).Int("iteration", in.iteration).Msg("Reasoning step failed")
			return nil, errx.WrapModel(err)
		}

		var count int
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			for i := range reply.ToolCalls {
				if strings.TrimSpace(reply.ToolCalls[i].ID) == "" {
					state.ToolCallIDSeq++
					reply.ToolCalls[i].ID = fmt.Sprintf("call_%d", state.ToolCallIDSeq)
				}
			}
			state.AppendMessages(reply)
			state.ToolCallCount += len(reply.ToolCalls)
			state.MadeToolCalls = state.MadeToolCalls || len(reply.ToolCalls) > 0
			count = state.ToolCallCount
			recordCost(state, reply, model.RoleOrchestrator, cfg.ModelName, cfg.Metrics)
			return nil
		}); err != nil {
			observers.EndSpan(span, err)
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		names := make([]string, 0, len(reply.ToolCalls))
		for _, c := range reply.ToolCalls {
			names = append(names, c.Function.Name)
		}
		span.SetAttributes(
			attribute.StringSlice("tool_names", names),
			attribute.Int("tool_call_count", count),
		)
		observers.EndSpan(span, nil)

		if len(names) > 0 {
			logx.Debug().
				Str("thread_id", in.threadID).
				Int("iteration", in.iteration).
				Strs("tool_names", names).
				Int("tool_call_count", count).
				Msg("Calling tools")
		} else {
			logx.Debug().Str("thread_id", in.threadID).Int("iteration", in.iteration).Msg("AI response ready")
		}
		return reply, nil
	})
}

// orchestratorContext builds system prompt + history window, plus the
// refinement instruction when a reviewer pass asked for changes.
func orchestratorContext(ctx context.Context, cfg OrchestratorConfig, in reasoningInput) ([]*schema.Message, error) {
	vars := prompts.OrchestratorVars{
		CustomerName: in.customerName,
		SearchTool:   tools.ToolRestaurantData,
		MemoryTool:   tools.ToolMemoryRetrieval,
		Now:          cfg.Now(),
	}
	if cfg.Tools != nil {
		if _, ok := cfg.Tools.Lookup(tools.ToolRestaurantExplorer); ok {
			vars.ExplorerTool = tools.ToolRestaurantExplorer
		}
		if _, ok := cfg.Tools.Lookup(tools.ToolRestaurantResearch); ok {
			vars.ResearchTool = tools.ToolRestaurantResearch
		}
		vars.BrowserTools = vars.ExplorerTool != "" || vars.ResearchTool != ""
	}
	system, err := prompts.RenderOrchestrator(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("render orchestrator prompt: %w", err)
	}

	var trailing []*schema.Message
	if in.feedback != "" && in.reflectionCount > 0 {
		instruction, err := prompts.RenderRefinement(ctx, in.feedback)
		if err != nil {
			return nil, fmt.Errorf("render refinement prompt: %w", err)
		}
		trailing = append(trailing, schema.SystemMessage(instruction))
	}
	return conversations.BuildModelContext(system, in.history, cfg.HistoryMaxMessages, trailing...), nil
}

func countAssistant(msgs []*schema.Message) int {
	n := 0
	for _, m := range msgs {
		if m != nil && m.Role == schema.Assistant {
			n++
		}
	}
	return n
}

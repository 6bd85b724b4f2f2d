package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/graph/conversations"
	"github.com/dinewise-core/server/internal/agent/graph/prompts"
	"github.com/dinewise-core/server/internal/agent/metrics"
	"github.com/dinewise-core/server/internal/agent/model"
	errx "github.com/dinewise-core/server/internal/core/error"
)

// SimpleResponderConfig configures the tool-free conversational reply.
type SimpleResponderConfig struct {
	Model              einomodel.BaseChatModel
	ModelName          string
	HistoryMaxMessages int
	Metrics            *metrics.Agent
}

// NewSimpleResponderNode answers greetings, small talk and off-topic turns
// with the unbound orchestrator model.
func NewSimpleResponderNode(cfg SimpleResponderConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) (*schema.Message, error) {
		var (
			customerName string
			history      []*schema.Message
		)
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			customerName = state.CustomerName
			history = copyMessages(state.Messages)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		system, err := prompts.RenderSimple(ctx, customerName)
		if err != nil {
			return nil, fmt.Errorf("render simple prompt: %w", err)
		}
		reply, err := conversations.Generate(ctx, cfg.Model, NodeSimpleResponder,
			conversations.BuildModelContext(system, history, cfg.HistoryMaxMessages))
		if err != nil {
			return nil, errx.WrapModel(err)
		}
		// the model is unbound; drop any stray calls so the turn stays closed
		reply.ToolCalls = nil

		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			state.AppendMessages(reply)
			recordCost(state, reply, model.RoleOrchestrator, cfg.ModelName, cfg.Metrics)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		return reply, nil
	})
}

package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"

	"github.com/dinewise-core/server/internal/agent/graph/tools"
	"github.com/dinewise-core/server/internal/agent/metrics"
	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// DefaultToolConcurrency bounds the fan-out of one tool-call batch.
const DefaultToolConcurrency = 4

// ToolExecutorConfig configures the act step of the ReAct loop.
type ToolExecutorConfig struct {
	Tools       *tools.ToolSet
	Concurrency int
	Metrics     *metrics.Agent
}

// NewToolExecutorNode runs every tool call of the latest assistant message
// and appends one result per call, in call order. Calls of one batch run
// concurrently, each under its own session key. A failing call yields an
// error envelope and never aborts the batch.
func NewToolExecutorNode(cfg ToolExecutorConfig) *compose.Lambda {
	limit := cfg.Concurrency
	if limit <= 0 {
		limit = DefaultToolConcurrency
	}
	return compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) (*schema.Message, error) {
		var (
			threadID string
			actorID  string
			calls    []schema.ToolCall
		)
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			threadID, actorID = state.ThreadID, state.ActorID
			if last := state.LastMessage(); last != nil && last.Role == schema.Assistant {
				calls = append(calls, last.ToolCalls...)
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		if len(calls) == 0 {
			return nil, fmt.Errorf("tool executor reached without pending tool calls")
		}

		results := make([]*schema.Message, len(calls))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i, call := range calls {
			scope := tools.CallScope{
				ThreadID:   threadID,
				ActorID:    actorID,
				SessionKey: threadID + ":" + call.ID,
			}
			g.Go(func() error {
				results[i] = runToolCall(tools.WithScope(gctx, scope), cfg, call)
				return nil
			})
		}
		_ = g.Wait()

		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			state.AppendMessages(results...)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		logx.Debug().
			Str("thread_id", threadID).
			Int("tool_results", len(results)).
			Msg("Tool batch finished")
		return results[len(results)-1], nil
	})
}

// runToolCall executes one call and always returns its result message.
func runToolCall(ctx context.Context, cfg ToolExecutorConfig, call schema.ToolCall) (msg *schema.Message) {
	name := call.Function.Name
	start := time.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("tool_name", name).Str("tool_call_id", call.ID).Msgf("tool panic recovered: %v", r)
			status = "panic"
			msg = toolResult(call, errorEnvelope("tool_failed", name, fmt.Sprintf("panic: %v", r)))
		}
		cfg.Metrics.ObserveTool(name, status, time.Since(start))
	}()

	handler, ok := cfg.Tools.Lookup(name)
	if !ok {
		logx.Warn().
			Str("tool_name", name).
			Str("arguments", call.Function.Arguments).
			Msg("Unknown or invalid tool call; returning fallback result")
		status = "unknown"
		return toolResult(call, errorEnvelope("unknown_tool", name, "ignored"))
	}

	args := tools.SanitizeArguments(name, call.Function.Arguments)
	ctx = einocb.ReuseHandlers(ctx, &einocb.RunInfo{
		Name:      name,
		Type:      "InvokableTool",
		Component: components.ComponentOfTool,
	})
	ctx = einocb.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: args})

	out, err := handler.InvokableRun(ctx, args)
	if err != nil {
		einocb.OnError(ctx, err)
		status = "error"
		return toolResult(call, errorEnvelope("tool_failed", name, err.Error()))
	}
	einocb.OnEnd(ctx, &tool.CallbackOutput{Response: out})
	return toolResult(call, out)
}

func toolResult(call schema.ToolCall, content string) *schema.Message {
	return schema.ToolMessage(content, call.ID, schema.WithToolName(call.Function.Name))
}

func errorEnvelope(kind, name, message string) string {
	b, err := json.Marshal(map[string]string{
		"error":   kind,
		"name":    name,
		"message": message,
	})
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, kind)
	}
	return string(b)
}

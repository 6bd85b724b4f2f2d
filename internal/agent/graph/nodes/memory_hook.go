package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/graph/conversations"
	"github.com/dinewise-core/server/internal/agent/metrics"
	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// MemoryPostHookConfig configures the terminal memory write.
type MemoryPostHookConfig struct {
	Memory  model.MemoryProcessor
	Metrics *metrics.Agent
	Now     func() time.Time
}

// NewMemoryPostHookNode hands the turn's human input and final answer to
// the memory collaborator exactly once, then emits the final answer as the
// graph output. Missing pairs and memory failures are logged no-ops.
func NewMemoryPostHookNode(cfg MemoryPostHookConfig) *compose.Lambda {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) (*schema.Message, error) {
		var (
			threadID string
			actorID  string
			turn     []*schema.Message
			capped   bool
		)
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			threadID, actorID = state.ThreadID, state.ActorID
			turn = copyMessages(state.TurnMessages())
			capped = CeilingReached(state)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		if capped {
			cfg.Metrics.ObserveCeiling("tool_calls")
		}

		status := commitTurn(ctx, cfg, model.TurnRecord{ActorID: actorID, SessionID: threadID, At: cfg.Now()}, turn)
		cfg.Metrics.ObserveMemoryHook(status)

		return schema.AssistantMessage(FinalAnswer(turn), nil), nil
	})
}

func commitTurn(ctx context.Context, cfg MemoryPostHookConfig, rec model.TurnRecord, turn []*schema.Message) (status string) {
	userInput, answer, ok := conversations.TurnPair(turn)
	if !ok {
		logx.Debug().Str("thread_id", rec.SessionID).Msg("No complete user/assistant pair; skipping memory write")
		return "skipped"
	}
	if cfg.Memory == nil {
		return "disabled"
	}

	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("thread_id", rec.SessionID).Msgf("memory hook panic recovered: %v", r)
			status = "failed"
		}
	}()

	rec.UserInput, rec.AgentResponse = userInput, answer
	res := cfg.Memory.ProcessTurn(ctx, rec)
	if !res.Success {
		logx.Warn().
			Str("thread_id", rec.SessionID).
			Str("actor_id", rec.ActorID).
			Str("error", res.Error).
			Msg("Memory processing failed")
		return "failed"
	}
	logx.Debug().Str("thread_id", rec.SessionID).Str("actor_id", rec.ActorID).Msg("Turn handed to memory")
	return "ok"
}

package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/graph/conversations"
	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// NewIntakeNode hydrates the turn's state from the checkpointer, repairs a
// history left with unanswered tool calls, resets the per-turn counters and
// appends the new human message.
func NewIntakeNode(cp model.Checkpointer) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (*schema.Message, error) {
		threadID := strings.TrimSpace(in.ThreadID)
		if threadID == "" {
			return nil, fmt.Errorf("thread id is empty")
		}
		prompt := strings.TrimSpace(in.Prompt)
		if prompt == "" {
			return nil, fmt.Errorf("prompt is empty")
		}

		saved, err := cp.Load(ctx, threadID)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		}

		human := schema.UserMessage(prompt)
		err = compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			*state = *saved
			state.ThreadID = threadID
			if name := strings.TrimSpace(in.CustomerName); name != "" {
				state.CustomerName = name
			}
			state.ActorID = ActorID(state.CustomerName)

			if sealed := conversations.SealDanglingToolCalls(state.Messages); len(sealed) > 0 {
				logx.Debug().
					Str("thread_id", threadID).
					Int("sealed_calls", len(sealed)).
					Msg("Sealing tool calls left unanswered by the previous turn")
				state.AppendMessages(sealed...)
			}

			state.BeginTurn()
			state.AppendMessages(human)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		logx.Debug().Str("thread_id", threadID).Msg("Turn started")
		return human, nil
	})
}

package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/dinewise-core/server/internal/agent/graph/conversations"
	"github.com/dinewise-core/server/internal/agent/graph/parsers"
	"github.com/dinewise-core/server/internal/agent/graph/prompts"
	"github.com/dinewise-core/server/internal/agent/metrics"
	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// ReflectorConfig configures the critique step of the reflection topology.
type ReflectorConfig struct {
	Model     einomodel.BaseChatModel
	ModelName string
	Metrics   *metrics.Agent
}

type draft struct {
	threadID  string
	request   string
	answer    string
	skip      string
	iteration int
}

// NewReflectorNode reviews the latest final answer. It skips without a
// model call when there is no final answer, when the turn used no tools,
// or when the reflection ceiling is reached. A failed review passes the
// draft. Once the ceiling is hit the verdict is forced satisfactory.
func NewReflectorNode(cfg ReflectorConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in *schema.Message) (*schema.Message, error) {
		var d draft
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			d = inspectDraft(state)
			if d.skip != "" {
				state.IsSatisfactory = true
				state.ReflectionFeedback = ""
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		if d.skip != "" {
			cfg.Metrics.ObserveReflection("skipped")
			logx.Debug().Str("thread_id", d.threadID).Str("reason", d.skip).Msg("Reflection skipped")
			return in, nil
		}

		verdict, reply, err := review(ctx, cfg.Model, d)
		if err != nil {
			logx.Warn().Err(err).Str("thread_id", d.threadID).Msg("Reflection failed; passing draft")
		}

		var count int
		var satisfactory bool
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			state.ReflectionCount++
			count = state.ReflectionCount
			switch {
			case verdict == nil:
				state.IsSatisfactory = true
			case state.ReflectionCount >= model.MaxReflectionIterations:
				state.IsSatisfactory = true
			default:
				state.IsSatisfactory = verdict.IsSatisfactory
			}
			if state.IsSatisfactory {
				state.ReflectionFeedback = ""
			} else {
				state.ReflectionFeedback = feedbackText(verdict)
			}
			satisfactory = state.IsSatisfactory
			if reply != nil {
				recordCost(state, reply, model.RoleReflector, cfg.ModelName, cfg.Metrics)
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		label := "satisfactory"
		switch {
		case verdict == nil:
			label = "failed_open"
		case !satisfactory:
			label = "refine"
		case !verdict.IsSatisfactory:
			label = "forced"
			cfg.Metrics.ObserveCeiling("reflection")
		}
		cfg.Metrics.ObserveReflection(label)

		ev := logx.Debug().
			Str("thread_id", d.threadID).
			Int("reflection_count", count).
			Bool("is_satisfactory", satisfactory).
			Str("verdict", label)
		if verdict != nil {
			ev = ev.Int("score", verdict.Score)
		}
		ev.Msg("Draft reviewed")
		return in, nil
	})
}

// inspectDraft reads what the reviewer needs, or why it should not run.
// Must be called with the state lock held.
func inspectDraft(state *model.ThreadState) draft {
	d := draft{threadID: state.ThreadID, iteration: state.ReflectionCount + 1}
	last := state.LastMessage()
	switch {
	case last == nil || last.Role != schema.Assistant || len(last.ToolCalls) > 0 || conversations.Text(last) == "":
		d.skip = "no_final_answer"
	case !state.MadeToolCalls:
		d.skip = "no_tool_calls"
	case state.ReflectionCount >= model.MaxReflectionIterations:
		d.skip = "ceiling"
	}
	if d.skip != "" {
		return d
	}
	d.answer = conversations.Text(last)
	d.request = lastHumanText(state.TurnMessages())
	return d
}

// ReflectionSchema describes the verdict object the reflector model must
// return. ParseReflection still decodes the reply, so providers without a
// structured mode fall back to the prompt's JSON instructions.
func ReflectionSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("is_satisfactory", openapi3.NewBoolSchema()).
		WithProperty("score", openapi3.NewIntegerSchema().WithMin(0).WithMax(10)).
		WithProperty("issues", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("feedback", openapi3.NewStringSchema())
	s.Required = []string{"is_satisfactory", "score", "issues", "feedback"}
	return s
}

func review(ctx context.Context, m einomodel.BaseChatModel, d draft) (*model.ReflectionVerdict, *schema.Message, error) {
	if m == nil {
		return nil, nil, fmt.Errorf("reflector model is nil")
	}
	system, err := prompts.RenderReflector(ctx, parsers.SatisfactoryScore)
	if err != nil {
		return nil, nil, err
	}
	body := fmt.Sprintf("User request:\n%s\n\nDraft answer (review %d of %d):\n%s",
		d.request, d.iteration, model.MaxReflectionIterations, d.answer)
	reply, err := conversations.Generate(ctx, m, NodeReflector, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(body),
	})
	if err != nil {
		return nil, nil, err
	}
	verdict, err := parsers.ParseReflection(conversations.Text(reply))
	if err != nil {
		return nil, reply, err
	}
	return verdict, reply, nil
}

func feedbackText(v *model.ReflectionVerdict) string {
	if v == nil {
		return ""
	}
	if fb := strings.TrimSpace(v.Feedback); fb != "" {
		return fb
	}
	if len(v.Issues) > 0 {
		return "Fix these issues: " + strings.Join(v.Issues, "; ")
	}
	return "Improve the completeness and relevance of the answer."
}

package nodes

import (
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/metrics"
	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// Graph node keys.
const (
	NodeIntake          = "intake"
	NodeRouter          = "router"
	NodeOrchestrator    = "orchestrator"
	NodeToolExecutor    = "tool_executor"
	NodeReflector       = "reflector"
	NodeSimpleResponder = "simple_responder"
	NodeMemoryPostHook  = "memory_post_hook"
)

// recordCost adds the reply's usage cost to the turn total. Must be called
// with the state lock held.
func recordCost(state *model.ThreadState, reply *schema.Message, role model.Role, modelName string, m *metrics.Agent) {
	usage := model.UsageOf(reply)
	if usage == nil {
		return
	}
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	state.TotalCostUSD += totalC
	m.AddCost(string(role), modelName, totalC)

	logx.Debug().
		Str("thread_id", state.ThreadID).
		Str("role", string(role)).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", state.TotalCostUSD).
		Msg("LLM usage")
}

// copyMessages returns a shallow copy of msgs so callers can read it
// outside the state lock.
func copyMessages(msgs []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, len(msgs))
	copy(out, msgs)
	return out
}

var actorIDDisallowed = regexp.MustCompile(`[^a-zA-Z0-9\-_ ]`)

// ActorID derives the memory actor id from a display name: "user:<slug>",
// or "guest" when nothing usable remains.
func ActorID(customerName string) string {
	slug := actorIDDisallowed.ReplaceAllString(customerName, "")
	slug = strings.TrimSpace(slug)
	slug = strings.Join(strings.Fields(slug), "-")
	slug = strings.ToLower(slug)
	if slug == "" {
		return "guest"
	}
	return "user:" + slug
}

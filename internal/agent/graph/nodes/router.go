package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/graph/conversations"
	"github.com/dinewise-core/server/internal/agent/graph/parsers"
	"github.com/dinewise-core/server/internal/agent/graph/prompts"
	"github.com/dinewise-core/server/internal/agent/metrics"
	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// routerHistory is how many trailing messages the classifier sees.
const routerHistory = 6

// RouterConfig configures the intent classifier node.
type RouterConfig struct {
	Model     einomodel.BaseChatModel
	ModelName string
	Metrics   *metrics.Agent
}

// NewRouterNode classifies the turn once into search, simple or off_topic.
// Classification failures and food-adjacent phrasing both resolve to search.
func NewRouterNode(cfg RouterConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in *schema.Message) (*schema.Message, error) {
		var (
			threadID string
			history  []*schema.Message
		)
		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			threadID = state.ThreadID
			history = copyMessages(state.Messages)
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		intent, source, reply := classify(ctx, cfg.Model, history)
		if intent != model.IntentSearch && mentionsFood(lastHumanText(history)) {
			intent, source = model.IntentSearch, "override"
		}
		cfg.Metrics.ObserveIntent(string(intent), source)

		if err := compose.ProcessState(ctx, func(_ context.Context, state *model.ThreadState) error {
			state.Intent = intent
			if reply != nil {
				recordCost(state, reply, model.RoleRouter, cfg.ModelName, cfg.Metrics)
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		logx.Debug().
			Str("thread_id", threadID).
			Str("intent", string(intent)).
			Str("source", source).
			Msg("Intent classified")
		return in, nil
	})
}

// classify asks the router model for a label. Any failure yields search.
func classify(ctx context.Context, m einomodel.BaseChatModel, history []*schema.Message) (model.Intent, string, *schema.Message) {
	system, err := prompts.RenderRouter(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("Router prompt failed; defaulting to search")
		return model.IntentSearch, "fallback", nil
	}

	reply, err := conversations.Generate(ctx, m, NodeRouter, conversations.BuildModelContext(system, history, routerHistory))
	if err != nil {
		logx.Warn().Err(err).Msg("Router model failed; defaulting to search")
		return model.IntentSearch, "fallback", nil
	}

	intent, err := parsers.ParseIntent(conversations.Text(reply))
	if err != nil {
		logx.Warn().Err(err).Msg("Router label unreadable; defaulting to search")
		return model.IntentSearch, "fallback", reply
	}
	return intent, "model", reply
}

func lastHumanText(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i] != nil && msgs[i].Role == schema.User {
			return conversations.Text(msgs[i])
		}
	}
	return ""
}

var foodWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		food foods eat eats eating ate hungry hunger starving starved craving crave cravings
		restaurant restaurants diner dine dining dinner dinners lunch lunches breakfast brunch supper
		meal meals snack snacks menu menus dish dishes cuisine cuisines reservation reservations
		table takeout delivery cafe cafes coffee tea bakery dessert desserts drink drinks bar bars
		pub wine beer cocktail cocktails pizza sushi ramen pho noodles pasta taco tacos burrito
		burger burgers bbq barbecue steak steakhouse seafood vegan vegetarian gluten halal kosher
		italian thai mexican chinese indian japanese french korean vietnamese greek spanish
		mediterranean tapas buffet bistro brasserie trattoria izakaya eatery eateries foodie
		yummy delicious tasty spicy`) {
		foodWords[w] = struct{}{}
	}
}

// mentionsFood reports whether text uses any dining vocabulary.
func mentionsFood(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	for _, w := range words {
		if _, ok := foodWords[w]; ok {
			return true
		}
	}
	return false
}

package search

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/graph/conversations"
	"github.com/dinewise-core/server/internal/agent/graph/parsers"
	"github.com/dinewise-core/server/internal/agent/graph/prompts"
	"github.com/dinewise-core/server/internal/agent/model"
)

// WebResearcher gathers free-form findings about a single restaurant.
type WebResearcher struct {
	pages     pageSource
	extractor einomodel.BaseChatModel
	sessions  *sessionLocks
}

func NewWebResearcher(pages pageSource, extractor einomodel.BaseChatModel) *WebResearcher {
	return &WebResearcher{pages: pages, extractor: extractor, sessions: newSessionLocks()}
}

func (r *WebResearcher) Research(ctx context.Context, q model.ResearchQuery, sessionKey string) (map[string]any, error) {
	release := r.sessions.lock(sessionKey)
	defer release()

	query := strings.TrimSpace(strings.Join(append([]string{q.RestaurantName, q.Location}, q.Topics...), " "))
	text, err := r.pages.SearchText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load research page: %w", err)
	}
	if text == "" {
		return nil, fmt.Errorf("no readable text found for %s", q.RestaurantName)
	}

	userPrompt, err := prompts.RenderResearcher(ctx, q.RestaurantName, q.Location, q.Topics, text)
	if err != nil {
		return nil, err
	}
	reply, err := conversations.Generate(ctx, r.extractor, string(model.RoleExtractor), []*schema.Message{schema.UserMessage(userPrompt)})
	if err != nil {
		return nil, fmt.Errorf("summarise research: %w", err)
	}

	text = conversations.Text(reply)
	findings, err := parsers.ParseObject(text)
	if err != nil {
		// keep the prose when the model ignored the JSON instruction
		findings = map[string]any{"research_summary": text}
	}
	if _, ok := findings["restaurant_name"]; !ok {
		findings["restaurant_name"] = q.RestaurantName
	}
	if _, ok := findings["location"]; !ok {
		findings["location"] = q.Location
	}
	if _, ok := findings["research_summary"]; !ok {
		findings["research_summary"] = ""
	}
	return findings, nil
}

package search

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/graph/conversations"
	"github.com/dinewise-core/server/internal/agent/graph/parsers"
	"github.com/dinewise-core/server/internal/agent/graph/prompts"
	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// pageSource supplies page text for a query.
type pageSource interface {
	SearchText(ctx context.Context, query string) (string, error)
}

// WebExplorer finds restaurants on the open web: it loads a search page
// and asks the extraction model to pull restaurant records out of it.
type WebExplorer struct {
	pages     pageSource
	extractor einomodel.BaseChatModel
	sessions  *sessionLocks
}

func NewWebExplorer(pages pageSource, extractor einomodel.BaseChatModel) *WebExplorer {
	return &WebExplorer{pages: pages, extractor: extractor, sessions: newSessionLocks()}
}

func (e *WebExplorer) Explore(ctx context.Context, query, sessionKey string) (*model.SearchResult, error) {
	release := e.sessions.lock(sessionKey)
	defer release()

	text, err := e.pages.SearchText(ctx, query+" restaurants")
	if err != nil {
		return nil, fmt.Errorf("load search page: %w", err)
	}

	out := &model.SearchResult{
		Query:         query,
		Restaurants:   []model.Restaurant{},
		SearchFilters: map[string]string{},
		DataSource:    model.DataSourceBrowser,
	}
	if text == "" {
		out.Notes = "The search page returned no readable text."
		return out, nil
	}

	userPrompt, err := prompts.RenderExtractor(ctx, query, text)
	if err != nil {
		return nil, err
	}
	reply, err := conversations.Generate(ctx, e.extractor, string(model.RoleExtractor), []*schema.Message{schema.UserMessage(userPrompt)})
	if err != nil {
		return nil, fmt.Errorf("extract restaurants: %w", err)
	}

	restaurants, err := parsers.ParseRestaurants(conversations.Text(reply))
	if err != nil {
		logx.Warn().Err(err).Str("session_key", sessionKey).Msg("Extraction reply was not a restaurant list")
		out.Notes = "Could not read restaurants from the web page."
		return out, nil
	}
	out.Restaurants = restaurants
	out.TotalResults = len(restaurants)
	return out, nil
}

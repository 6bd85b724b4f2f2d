package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

type RestaurantExplorerInput struct {
	Query string `json:"query"`
}

func newRestaurantExplorerTool(backend model.Explorer) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolRestaurantExplorer,
			Desc: "Search the web for restaurants when structured search returns too few results or the request needs fresh information. Slower than restaurant_data_tool.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Full search phrase including cuisine and location, e.g. 'best ramen in Portland Oregon'.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *RestaurantExplorerInput) (*SearchOutput, error) {
			q := model.SearchQuery{Query: strings.TrimSpace(in.Query)}
			if q.Query == "" {
				return searchFailure(q, model.DataSourceBrowser, fmt.Errorf("query is required")), nil
			}
			res, err := backend.Explore(ctx, q.Query, sessionKeyFrom(ctx))
			if err != nil {
				logx.Warn().Err(err).Str("tool_name", ToolRestaurantExplorer).Str("query", q.Query).Msg("Web exploration failed")
				return searchFailure(q, model.DataSourceBrowser, err), nil
			}
			return &SearchOutput{SearchResult: *res}, nil
		},
	)
}

type RestaurantResearchInput struct {
	RestaurantName string   `json:"restaurant_name"`
	Location       string   `json:"location"`
	ResearchTopics []string `json:"research_topics,omitempty"`
}

func newRestaurantResearchTool(backend model.Researcher) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolRestaurantResearch,
			Desc: "Research one specific restaurant in depth: menu highlights, recent reviews, opening hours, reservations, parking. Use after a restaurant has been identified.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"restaurant_name": {
					Type:     schema.String,
					Desc:     "Exact restaurant name.",
					Required: true,
				},
				"location": {
					Type:     schema.String,
					Desc:     "City or address of the restaurant.",
					Required: true,
				},
				"research_topics": {
					Type:     schema.Array,
					Desc:     "Topics to focus on, e.g. menu, reviews, hours, reservations.",
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
				},
			}),
		},
		func(ctx context.Context, in *RestaurantResearchInput) (map[string]any, error) {
			q := model.ResearchQuery{
				RestaurantName: strings.TrimSpace(in.RestaurantName),
				Location:       strings.TrimSpace(in.Location),
				Topics:         in.ResearchTopics,
			}
			if q.RestaurantName == "" {
				return researchFailure(q, fmt.Errorf("restaurant_name is required")), nil
			}
			findings, err := backend.Research(ctx, q, sessionKeyFrom(ctx))
			if err != nil {
				logx.Warn().Err(err).Str("tool_name", ToolRestaurantResearch).Str("restaurant", q.RestaurantName).Msg("Restaurant research failed")
				return researchFailure(q, err), nil
			}
			return findings, nil
		},
	)
}

func researchFailure(q model.ResearchQuery, err error) map[string]any {
	return map[string]any{
		"restaurant_name":  q.RestaurantName,
		"location":         q.Location,
		"error":            err.Error(),
		"research_summary": fmt.Sprintf("Unable to complete research on %s.", q.RestaurantName),
	}
}

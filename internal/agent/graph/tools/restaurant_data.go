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

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 10
	defaultPriceRange  = "$$"
)

type RestaurantDataInput struct {
	Query               string   `json:"query"`
	Cuisine             string   `json:"cuisine,omitempty"`
	Location            string   `json:"location,omitempty"`
	PriceRange          string   `json:"price_range,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	Limit               int      `json:"limit,omitempty"`
}

// SearchOutput is a SearchResult plus an error field set when the backend failed.
type SearchOutput struct {
	model.SearchResult
	Error string `json:"error,omitempty"`
}

func newRestaurantDataTool(backend model.Searcher) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolRestaurantData,
			Desc: "Search structured restaurant data. Use this first for any restaurant request. Returns restaurants with name, cuisine, rating, review count, price range, address, features, dietary options, hours and reservation availability.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Natural language search, e.g. 'Italian restaurants in Seattle' or 'vegan brunch near downtown'.",
					Required: true,
				},
				"cuisine": {
					Type: schema.String,
					Desc: "Cuisine type, e.g. Italian, Japanese, Thai.",
				},
				"location": {
					Type: schema.String,
					Desc: "City or neighbourhood to search in.",
				},
				"price_range": {
					Type: schema.String,
					Desc: "Price level: $, $$, $$$ or $$$$ (default $$).",
					Enum: []string{"$", "$$", "$$$", "$$$$"},
				},
				"dietary_restrictions": {
					Type:     schema.Array,
					Desc:     "Dietary requirements, e.g. vegetarian, vegan, gluten-free.",
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
				},
				"limit": {
					Type: schema.Integer,
					Desc: "Maximum number of results, 1-10 (default 5).",
				},
			}),
		},
		func(ctx context.Context, in *RestaurantDataInput) (*SearchOutput, error) {
			q := model.SearchQuery{
				Query:               strings.TrimSpace(in.Query),
				Cuisine:             strings.TrimSpace(in.Cuisine),
				Location:            strings.TrimSpace(in.Location),
				PriceRange:          strings.TrimSpace(in.PriceRange),
				DietaryRestrictions: in.DietaryRestrictions,
				Limit:               clampInt(in.Limit, 1, maxSearchLimit),
			}
			if in.Limit == 0 {
				q.Limit = defaultSearchLimit
			}
			if q.PriceRange == "" {
				q.PriceRange = defaultPriceRange
			}

			if q.Query == "" {
				return searchFailure(q, model.DataSourceSearchAPI, fmt.Errorf("query is required")), nil
			}

			res, err := backend.Search(ctx, q)
			if err != nil {
				logx.Warn().Err(err).Str("tool_name", ToolRestaurantData).Str("query", q.Query).Msg("Restaurant search failed")
				return searchFailure(q, model.DataSourceSearchAPI, err), nil
			}
			if len(res.Restaurants) > q.Limit {
				res.Restaurants = res.Restaurants[:q.Limit]
			}
			return &SearchOutput{SearchResult: *res}, nil
		},
	)
}

// searchFailure builds the error envelope: an empty result with the error
// carried in both the error field and the notes.
func searchFailure(q model.SearchQuery, source string, err error) *SearchOutput {
	return &SearchOutput{
		SearchResult: model.SearchResult{
			Query:          q.Query,
			TotalResults:   0,
			Restaurants:    []model.Restaurant{},
			SearchLocation: q.Location,
			SearchFilters:  q.Filters(),
			DataSource:     source,
			Notes:          "Search failed: " + err.Error(),
		},
		Error: err.Error(),
	}
}

// clampInt returns v limited to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

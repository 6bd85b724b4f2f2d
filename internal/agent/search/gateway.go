package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dinewise-core/server/internal/agent/graph/parsers"
	"github.com/dinewise-core/server/internal/agent/model"
	"github.com/dinewise-core/server/internal/agent/resilience"
	errx "github.com/dinewise-core/server/internal/core/error"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// toolCaller is the subset of the MCP client the gateway uses.
type toolCaller interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Gateway searches restaurants through an MCP gateway tool. The gateway
// may prefix tool names ("Target___search_restaurants"); the real name is
// resolved once and cached.
type Gateway struct {
	cfg      model.GatewayConfig
	executor *resilience.Executor

	mu       sync.Mutex
	caller   toolCaller
	toolName string
}

func NewGateway(cfg model.GatewayConfig, executor *resilience.Executor) *Gateway {
	if cfg.ToolName == "" {
		cfg.ToolName = "search_restaurants"
	}
	return &Gateway{cfg: cfg, executor: executor}
}

func newGatewayWithCaller(cfg model.GatewayConfig, caller toolCaller) *Gateway {
	g := NewGateway(cfg, nil)
	g.caller = caller
	return g
}

func (g *Gateway) connect(ctx context.Context) (toolCaller, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.caller != nil {
		return g.caller, nil
	}

	var opts []transport.StreamableHTTPCOption
	if g.cfg.Token != "" {
		opts = append(opts, transport.WithHTTPHeaders(map[string]string{
			"Authorization": "Bearer " + g.cfg.Token,
		}))
	}
	c, err := client.NewStreamableHttpClient(g.cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mcp client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start mcp client: %w", err)
	}
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "dinewise", Version: "1.0.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("initialize mcp session: %w", err)
	}
	g.caller = c
	return c, nil
}

func (g *Gateway) resolveToolName(ctx context.Context, c toolCaller) (string, error) {
	g.mu.Lock()
	name := g.toolName
	g.mu.Unlock()
	if name != "" {
		return name, nil
	}

	list, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return "", fmt.Errorf("list gateway tools: %w", err)
	}
	var available []string
	for _, t := range list.Tools {
		available = append(available, t.Name)
		if t.Name == g.cfg.ToolName || strings.HasSuffix(t.Name, "___"+g.cfg.ToolName) {
			g.mu.Lock()
			g.toolName = t.Name
			g.mu.Unlock()
			return t.Name, nil
		}
	}
	return "", fmt.Errorf("tool %q not found in gateway (available: %s)", g.cfg.ToolName, strings.Join(available, ", "))
}

func (g *Gateway) Search(ctx context.Context, q model.SearchQuery) (*model.SearchResult, error) {
	args := map[string]any{
		"query":       q.Query,
		"cuisine":     q.Cuisine,
		"location":    q.Location,
		"price_range": q.PriceRange,
		"limit":       q.Limit,
	}
	if len(q.DietaryRestrictions) > 0 {
		args["dietary_restrictions"] = q.DietaryRestrictions
	}

	payload, err := resilience.Do(ctx, g.executor, "gateway.search", func(ctx context.Context) (map[string]any, error) {
		return g.call(ctx, args)
	})
	if err != nil {
		return nil, errx.WrapGateway(err)
	}
	return parseGatewayResult(payload, q), nil
}

func (g *Gateway) call(ctx context.Context, args map[string]any) (map[string]any, error) {
	c, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}
	name, err := g.resolveToolName(ctx, c)
	if err != nil {
		return nil, err
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	logx.Debug().Str("gateway_tool", name).Msg("Invoking gateway tool")

	res, err := c.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call gateway tool: %w", err)
	}
	text := firstText(res)
	if res.IsError {
		return nil, fmt.Errorf("gateway tool error: %s", text)
	}
	return unwrapLambdaPayload(text), nil
}

func firstText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	for _, c := range res.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			return tc.Text
		}
	}
	return ""
}

// unwrapLambdaPayload decodes the gateway text. Function-style responses
// arrive as {"statusCode":..., "body": "<json>"}; the body is unwrapped.
func unwrapLambdaPayload(text string) map[string]any {
	var outer any
	if err := json.Unmarshal([]byte(text), &outer); err != nil {
		return map[string]any{"result": text}
	}
	obj, ok := outer.(map[string]any)
	if !ok {
		return map[string]any{"result": outer}
	}
	body, ok := obj["body"]
	if !ok {
		return obj
	}
	if s, isStr := body.(string); isStr {
		var inner any
		if err := json.Unmarshal([]byte(s), &inner); err != nil {
			return map[string]any{"result": s}
		}
		body = inner
	}
	if m, isMap := body.(map[string]any); isMap {
		return m
	}
	return map[string]any{"result": body}
}

func parseGatewayResult(payload map[string]any, q model.SearchQuery) *model.SearchResult {
	out := &model.SearchResult{
		Query:          q.Query,
		Restaurants:    []model.Restaurant{},
		SearchLocation: q.Location,
		SearchFilters:  q.Filters(),
		DataSource:     model.DataSourceSearchAPI,
	}

	data := payload
	if inner, ok := payload["result"]; ok {
		m, isMap := inner.(map[string]any)
		if !isMap {
			out.Notes = fmt.Sprintf("Unexpected response format: %.200v", inner)
			return out
		}
		data = m
	}

	if list, ok := data["restaurants"].([]any); ok {
		for _, item := range list {
			if m, isMap := item.(map[string]any); isMap {
				out.Restaurants = append(out.Restaurants, parsers.RestaurantFromMap(m))
			}
		}
	}
	out.TotalResults = len(out.Restaurants)
	if n, ok := data["total_found"].(float64); ok {
		out.TotalResults = int(n)
	}

	var notes []string
	if msg, ok := data["message"].(string); ok && msg != "" {
		notes = append(notes, msg)
	}
	if used, ok := data["search_query_used"].(string); ok && used != "" {
		notes = append(notes, "Search query: "+used)
	}
	if e, ok := data["error"].(string); ok && e != "" {
		notes = append(notes, "Error: "+e)
	}
	out.Notes = strings.Join(notes, " ")
	return out
}

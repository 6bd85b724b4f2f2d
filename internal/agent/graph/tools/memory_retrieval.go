package tools

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

type MemoryRetrievalInput struct {
	Query       string   `json:"query"`
	MemoryTypes []string `json:"memory_types,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
}

type MemoryRetrievalOutput struct {
	Preferences []model.MemoryRecord `json:"preferences"`
	Facts       []model.MemoryRecord `json:"facts"`
	Summaries   []model.MemoryRecord `json:"summaries"`
	Error       string               `json:"error,omitempty"`
}

func newMemoryRetrievalTool(backend model.MemoryRetriever, defaultTopK int) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolMemoryRetrieval,
			Desc: "Recall what is known about the current user: stored dining preferences, facts from earlier conversations, and conversation summaries. Use it when the request depends on the user's tastes or history.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "What to look for, e.g. 'favorite cuisines' or 'dietary restrictions'.",
					Required: true,
				},
				"memory_types": {
					Type:     schema.Array,
					Desc:     "Subset of preferences, facts, summaries. Defaults to all.",
					ElemInfo: &schema.ParameterInfo{Type: schema.String, Enum: model.AllMemoryTypes},
				},
				"top_k": {
					Type: schema.Integer,
					Desc: "Maximum items per memory type (default 5).",
				},
			}),
		},
		func(ctx context.Context, in *MemoryRetrievalInput) (*MemoryRetrievalOutput, error) {
			out := &MemoryRetrievalOutput{
				Preferences: []model.MemoryRecord{},
				Facts:       []model.MemoryRecord{},
				Summaries:   []model.MemoryRecord{},
			}

			scope, _ := ScopeFrom(ctx)
			req := model.RetrieveRequest{
				Query:     strings.TrimSpace(in.Query),
				ActorID:   scope.ActorID,
				SessionID: scope.ThreadID,
				Types:     normalizeMemoryTypes(in.MemoryTypes),
				TopK:      in.TopK,
			}
			if req.TopK <= 0 {
				req.TopK = defaultTopK
			}

			got, err := backend.Retrieve(ctx, req)
			if err != nil {
				logx.Warn().Err(err).Str("tool_name", ToolMemoryRetrieval).Str("actor_id", req.ActorID).Msg("Memory retrieval failed")
				out.Error = err.Error()
				return out, nil
			}
			if v := got[model.MemoryPreferences]; v != nil {
				out.Preferences = v
			}
			if v := got[model.MemoryFacts]; v != nil {
				out.Facts = v
			}
			if v := got[model.MemorySummaries]; v != nil {
				out.Summaries = v
			}
			return out, nil
		},
	)
}

// normalizeMemoryTypes drops unknown types; an empty result means all.
func normalizeMemoryTypes(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		switch t {
		case model.MemoryPreferences, model.MemoryFacts, model.MemorySummaries:
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	if len(out) == 0 {
		return append([]string(nil), model.AllMemoryTypes...)
	}
	return out
}

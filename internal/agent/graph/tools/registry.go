package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

const (
	ToolRestaurantData     = "restaurant_data_tool"
	ToolMemoryRetrieval    = "memory_retrieval_tool"
	ToolRestaurantExplorer = "restaurant_explorer_tool"
	ToolRestaurantResearch = "restaurant_research_tool"
)

// Backends are the external collaborators the tools delegate to.
type Backends struct {
	Search     model.Searcher
	Memory     model.MemoryRetriever
	Explorer   model.Explorer
	Researcher model.Researcher
	// MemoryTopK is the default top_k for memory retrieval.
	MemoryTopK int
}

// Registry declares the callable capabilities. It holds no state beyond its
// backends and is safe to share across turns.
type Registry struct {
	backends Backends
}

func NewRegistry(b Backends) (*Registry, error) {
	if b.Search == nil {
		return nil, fmt.Errorf("search backend is nil")
	}
	if b.Memory == nil {
		return nil, fmt.Errorf("memory backend is nil")
	}
	if b.MemoryTopK <= 0 {
		b.MemoryTopK = 5
	}
	return &Registry{backends: b}, nil
}

// GetTools returns the core tools and, when includeOptional is set, the web
// exploration and research tools. The flag is read once per graph build.
func (r *Registry) GetTools(includeOptional bool) []tool.InvokableTool {
	list := []tool.InvokableTool{
		newRestaurantDataTool(r.backends.Search),
		newMemoryRetrievalTool(r.backends.Memory, r.backends.MemoryTopK),
	}
	if !includeOptional {
		return list
	}
	if r.backends.Explorer != nil {
		list = append(list, newRestaurantExplorerTool(r.backends.Explorer))
	} else {
		logx.Warn().Str("tool_name", ToolRestaurantExplorer).Msg("Explorer backend missing; tool not registered")
	}
	if r.backends.Researcher != nil {
		list = append(list, newRestaurantResearchTool(r.backends.Researcher))
	} else {
		logx.Warn().Str("tool_name", ToolRestaurantResearch).Msg("Research backend missing; tool not registered")
	}
	return list
}

// ToolSet is one resolved tool list shared by the reasoning node (as
// bound ToolInfos) and the executor (as handlers by name).
type ToolSet struct {
	infos    []*schema.ToolInfo
	handlers map[string]tool.InvokableTool
}

func NewToolSet(ctx context.Context, list []tool.InvokableTool) (*ToolSet, error) {
	ts := &ToolSet{handlers: make(map[string]tool.InvokableTool, len(list))}
	for _, t := range list {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("get tool info: %w", err)
		}
		if _, dup := ts.handlers[info.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", info.Name)
		}
		ts.infos = append(ts.infos, info)
		ts.handlers[info.Name] = t
	}
	return ts, nil
}

// Infos returns the tool declarations to bind to a model.
func (ts *ToolSet) Infos() []*schema.ToolInfo {
	return ts.infos
}

// Lookup finds a handler by tool name.
func (ts *ToolSet) Lookup(name string) (tool.InvokableTool, bool) {
	t, ok := ts.handlers[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (ts *ToolSet) Names() []string {
	names := make([]string, 0, len(ts.handlers))
	for n := range ts.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

package prompts

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/*.txt
var templates embed.FS

func load(name string) string {
	b, err := templates.ReadFile("template/" + name + ".txt")
	if err != nil {
		panic(fmt.Sprintf("prompt template %s missing: %v", name, err))
	}
	return string(b)
}

var (
	routerTemplate       = load("router")
	orchestratorTemplate = load("orchestrator")
	simpleTemplate       = load("simple")
	reflectorTemplate    = load("reflector")
	refinementTemplate   = load("refinement")
	extractorTemplate    = load("extractor")
	researcherTemplate   = load("researcher")
)

// render formats a single system template through an Eino prompt component
// so Prompt callbacks fire under name.
func render(ctx context.Context, name, tpl string, vars map[string]any) (string, error) {
	ctx = einocb.ReuseHandlers(ctx, &einocb.RunInfo{
		Name:      name,
		Type:      "GoTemplate",
		Component: components.ComponentOfPrompt,
	})
	t := prompt.FromMessages(schema.GoTemplate, schema.SystemMessage(tpl))
	msgs, err := t.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return strings.TrimSpace(msgs[0].Content), nil
}

// RenderRouter renders the intent classification prompt.
func RenderRouter(ctx context.Context) (string, error) {
	return render(ctx, "router", routerTemplate, map[string]any{})
}

// OrchestratorVars feeds the search agent's system prompt.
type OrchestratorVars struct {
	CustomerName string
	BrowserTools bool
	SearchTool   string
	MemoryTool   string
	ExplorerTool string
	ResearchTool string
	Now          time.Time
}

func RenderOrchestrator(ctx context.Context, v OrchestratorVars) (string, error) {
	now := v.Now
	if now.IsZero() {
		now = time.Now()
	}
	return render(ctx, "orchestrator", orchestratorTemplate, map[string]any{
		"CustomerName": displayName(v.CustomerName),
		"Today":        now.Format("Monday, January 2, 2006"),
		"BrowserTools": v.BrowserTools,
		"SearchTool":   v.SearchTool,
		"MemoryTool":   v.MemoryTool,
		"ExplorerTool": v.ExplorerTool,
		"ResearchTool": v.ResearchTool,
	})
}

func RenderSimple(ctx context.Context, customerName string) (string, error) {
	return render(ctx, "simple", simpleTemplate, map[string]any{
		"CustomerName": displayName(customerName),
	})
}

func RenderReflector(ctx context.Context, passScore int) (string, error) {
	return render(ctx, "reflector", reflectorTemplate, map[string]any{
		"PassScore": passScore,
	})
}

// RenderRefinement renders the internal instruction that carries reviewer
// feedback back to the search agent.
func RenderRefinement(ctx context.Context, feedback string) (string, error) {
	return render(ctx, "refinement", refinementTemplate, map[string]any{
		"Feedback": feedback,
	})
}

func RenderExtractor(ctx context.Context, query, pageText string) (string, error) {
	return render(ctx, "extractor", extractorTemplate, map[string]any{
		"Query":    query,
		"PageText": pageText,
	})
}

func RenderResearcher(ctx context.Context, name, location string, topics []string, pageText string) (string, error) {
	return render(ctx, "researcher", researcherTemplate, map[string]any{
		"RestaurantName": name,
		"Location":       location,
		"Topics":         strings.Join(topics, ", "),
		"PageText":       pageText,
	})
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "a guest"
	}
	return name
}

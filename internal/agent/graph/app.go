package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/dinewise-core/server/internal/agent/graph/observers"
	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// Runner executes one turn through the compiled graph.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (*schema.Message, error)
}

// App is the application-scoped holder of the assembled graph. It is built
// once and shared by concurrent turns of different threads. Rebuild waits
// for in-flight turns to finish before swapping the graph.
type App struct {
	mu       sync.RWMutex
	cfg      Config
	runnable compose.Runnable[model.TurnInput, *schema.Message]
}

func NewApp(ctx context.Context, cfg Config) (*App, error) {
	runnable, err := Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cfg.Topology = model.ParseTopology(string(cfg.Topology))
	return &App{cfg: cfg, runnable: runnable}, nil
}

// Runner returns the app as a Runner.
func (a *App) Runner() Runner {
	return a
}

// Topology reports the topology of the current graph.
func (a *App) Topology() model.Topology {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg.Topology
}

// OptionalToolsEnabled reports whether the current graph was built with the
// web tools bound.
func (a *App) OptionalToolsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg.IncludeOptionalTools
}

func (a *App) Invoke(ctx context.Context, in model.TurnInput) (*schema.Message, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.runnable == nil {
		return nil, fmt.Errorf("graph is not built")
	}
	return a.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks(in.ThreadID)))
}

// Rebuild reassembles the graph with the given optional-tool setting. The
// tool binding is fixed per build, so this is the only way a change to
// that setting takes effect. On failure the previous graph stays in place.
func (a *App) Rebuild(ctx context.Context, includeOptional bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cfg := a.cfg
	cfg.IncludeOptionalTools = includeOptional
	runnable, err := Build(ctx, cfg)
	if err != nil {
		logx.Error().Err(err).Bool("include_optional", includeOptional).Msg("Graph rebuild failed")
		return err
	}
	a.cfg = cfg
	a.runnable = runnable
	logx.Info().Bool("include_optional", includeOptional).Msg("Graph rebuilt")
	return nil
}

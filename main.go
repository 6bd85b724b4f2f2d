package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dinewise-core/server/internal/agent/graph"
	"github.com/dinewise-core/server/internal/agent/graph/nodes"
	"github.com/dinewise-core/server/internal/agent/graph/tools"
	"github.com/dinewise-core/server/internal/agent/memory"
	"github.com/dinewise-core/server/internal/agent/metrics"
	"github.com/dinewise-core/server/internal/agent/model"
	"github.com/dinewise-core/server/internal/agent/repo"
	"github.com/dinewise-core/server/internal/agent/resilience"
	"github.com/dinewise-core/server/internal/agent/search"
	"github.com/dinewise-core/server/internal/core"
	logx "github.com/dinewise-core/server/pkg/logger"
	pkgredis "github.com/dinewise-core/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the assistant,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Agent        model.AgentConfig
	Checkpoint   model.CheckpointConfig
	Router       model.RouterModelConfig
	Orchestrator model.OrchestratorModelConfig
	Extraction   model.ExtractionModelConfig
	Reflector    model.ReflectorModelConfig
	Gateway      model.GatewayConfig
	Memory       model.MemoryConfig
	Explorer     model.ExplorerConfig
	Telemetry    model.TelemetryConfig
}

func main() {
	ctx := context.Background()
	if err := godotenv.Load(".env"); err != nil {
		logx.Debug().Err(err).Msg("Could not load .env file")
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	env := core.ParseEnvironment(envCfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env, Service: "dinewise-agent"})

	agentMetrics := metrics.NewAgent("dinewise-agent")
	if addr := envCfg.Telemetry.MetricsAddr; addr != "" {
		go serveMetrics(addr, agentMetrics)
	}

	if endpoint := envCfg.Telemetry.OTLPEndpoint; endpoint != "" {
		shutdown, err := setupTracing(ctx, endpoint)
		if err != nil {
			logx.Warn().Err(err).Msg("Tracing disabled")
		} else {
			defer shutdown()
		}
	}

	// ====================================================
	// Storage: Redis when configured, in-process otherwise. Without Redis
	// the memory processor stays nil and the hook reports "disabled".
	var (
		checkpointer model.Checkpointer    = repo.NewMemoryCheckpointer()
		retriever    model.MemoryRetriever = memory.Disabled{}
		processor    model.MemoryProcessor
	)
	if envCfg.Redis.Enabled() {
		rdb, err := envCfg.Redis.New()
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
		}
		defer rdb.Close()
		checkpointer = repo.NewRedisCheckpointer(rdb, envCfg.Checkpoint.TTL)

		var sink memory.TurnSink = memory.NewStreamSink(rdb, envCfg.Memory.TurnStream)
		if envCfg.Memory.NATSURL != "" {
			natsSink, err := memory.NewNATSSink(envCfg.Memory.NATSURL, envCfg.Memory.TurnSubject)
			if err != nil {
				logx.Warn().Err(err).Msg("NATS unavailable; publishing turns to the Redis stream")
			} else {
				defer natsSink.Close()
				sink = natsSink
			}
		}
		svc := memory.NewService(rdb, sink)
		retriever, processor = svc, svc
		logx.Info().Msg("Connected to Redis successfully")
	} else {
		logx.Warn().Msg("REDIS_URL not set; using in-memory checkpoints and no long-term memory")
	}

	// ====================================================
	// Models and tool backends
	models, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:       envCfg.APIKey,
		BaseURL:      envCfg.BaseURL,
		Router:       envCfg.Router.Settings(),
		Orchestrator: envCfg.Orchestrator.Settings(),
		Extractor:    envCfg.Extraction.Settings(),
		Reflector:    envCfg.Reflector.Settings(),
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create chat models")
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())
	var searcher model.Searcher = search.NewCatalog(search.SampleRestaurants...)
	if envCfg.Gateway.URL != "" {
		searcher = search.NewGateway(envCfg.Gateway, executor)
	} else {
		logx.Warn().Msg("GATEWAY_URL not set; searching the sample catalog")
	}
	pages := search.NewWebFetcher(envCfg.Explorer, executor)

	registry, err := tools.NewRegistry(tools.Backends{
		Search:     searcher,
		Memory:     retriever,
		Explorer:   search.NewWebExplorer(pages, models.Extractor),
		Researcher: search.NewWebResearcher(pages, models.Extractor),
		MemoryTopK: envCfg.Memory.TopK,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create tool registry")
	}

	topology := model.ParseTopology(envCfg.Agent.Topology)
	app, err := graph.NewApp(ctx, graph.Config{
		Topology:             topology,
		Models:               models,
		Registry:             registry,
		IncludeOptionalTools: envCfg.Agent.EnableBrowserTools,
		Checkpointer:         checkpointer,
		Memory:               processor,
		Metrics:              agentMetrics,
		ToolConcurrency:      envCfg.Agent.ToolConcurrency,
		HistoryMaxMessages:   envCfg.Agent.HistoryMaxMessages,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build graph")
	}

	driver := graph.NewDriver(app.Runner(), graph.DriverConfig{
		ChunkSize:   envCfg.Agent.StreamChunkSize,
		TurnTimeout: envCfg.Agent.TurnTimeout,
		Topology:    topology,
		Metrics:     agentMetrics,
	})

	// ====================================================
	// Sample conversation
	testQueries := []struct {
		description string
		query       string
	}{
		{description: "Greeting", query: "Hi there!"},
		{description: "Basic search", query: "Find Italian restaurants in Seattle"},
		{description: "Follow-up with filters", query: "Any of those vegetarian friendly and under $$$?"},
		{description: "Thanks", query: "Thanks, that's perfect"},
	}

	conversationID := "sample-conversation-001"
	for i, test := range testQueries {
		logx.Info().Int("turn", i+1).Str("description", test.description).Str("query", test.query).Msg("Processing turn")

		sr := driver.Stream(ctx, graph.TurnRequest{
			Prompt:         test.query,
			CustomerName:   "Alex",
			ConversationID: conversationID,
		})
		answer, err := graph.Collect(sr)
		if err != nil {
			logx.Error().Err(err).Int("turn", i+1).Msg("Turn failed")
			continue
		}
		fmt.Printf("\n[%d] %s\n%s\n", i+1, test.query, answer)
	}

	logx.Info().Msg("Sample conversation completed")
}

func serveMetrics(addr string, m *metrics.Agent) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logx.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Error().Err(err).Msg("Metrics server stopped")
	}
}

func setupTracing(ctx context.Context, endpoint string) (func(), error) {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logx.Warn().Err(err).Msg("Tracer provider shutdown failed")
		}
	}, nil
}

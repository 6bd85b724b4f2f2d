package model

import "time"

// ================ Config ================
type AgentConfig struct {
	Topology           string        `envconfig:"AGENT_TOPOLOGY" default:"router"`
	EnableBrowserTools bool          `envconfig:"ENABLE_BROWSER_TOOLS" default:"true"`
	ToolConcurrency    int           `envconfig:"AGENT_TOOL_CONCURRENCY" default:"4"`
	HistoryMaxMessages int           `envconfig:"AGENT_HISTORY_MAX_MESSAGES" default:"40"`
	TurnTimeout        time.Duration `envconfig:"AGENT_TURN_TIMEOUT" default:"0s"`
	StreamChunkSize    int           `envconfig:"AGENT_STREAM_CHUNK_SIZE" default:"500"`
}

type CheckpointConfig struct {
	TTL time.Duration `envconfig:"CHECKPOINT_TTL" default:"0s"`
}

// ModelSettings is the role-independent view of a model block.
type ModelSettings struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

type RouterModelConfig struct {
	Model       string  `envconfig:"ROUTER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"ROUTER_MAX_TOKENS" default:"64"`
	Temperature float32 `envconfig:"ROUTER_TEMPERATURE" default:"0.0"`
}

func (c RouterModelConfig) Settings() ModelSettings {
	return ModelSettings{Model: c.Model, MaxTokens: c.MaxTokens, Temperature: c.Temperature}
}

type OrchestratorModelConfig struct {
	Model       string  `envconfig:"ORCHESTRATOR_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"ORCHESTRATOR_MAX_TOKENS" default:"4096"`
	Temperature float32 `envconfig:"ORCHESTRATOR_TEMPERATURE" default:"0.5"`
}

func (c OrchestratorModelConfig) Settings() ModelSettings {
	return ModelSettings{Model: c.Model, MaxTokens: c.MaxTokens, Temperature: c.Temperature}
}

type ExtractionModelConfig struct {
	Model       string  `envconfig:"EXTRACTION_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"EXTRACTION_MAX_TOKENS" default:"4096"`
	Temperature float32 `envconfig:"EXTRACTION_TEMPERATURE" default:"0.1"`
}

func (c ExtractionModelConfig) Settings() ModelSettings {
	return ModelSettings{Model: c.Model, MaxTokens: c.MaxTokens, Temperature: c.Temperature}
}

type ReflectorModelConfig struct {
	Model       string  `envconfig:"REFLECTOR_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"REFLECTOR_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"REFLECTOR_TEMPERATURE" default:"0.0"`
}

func (c ReflectorModelConfig) Settings() ModelSettings {
	return ModelSettings{Model: c.Model, MaxTokens: c.MaxTokens, Temperature: c.Temperature}
}

type GatewayConfig struct {
	URL      string `envconfig:"GATEWAY_URL"`
	Token    string `envconfig:"GATEWAY_TOKEN"`
	ToolName string `envconfig:"GATEWAY_TOOL_NAME" default:"search_restaurants"`
}

type MemoryConfig struct {
	NATSURL     string `envconfig:"NATS_URL"`
	TurnSubject string `envconfig:"MEMORY_TURN_SUBJECT" default:"memory.turns"`
	TurnStream  string `envconfig:"MEMORY_TURN_STREAM" default:"memory:turns"`
	TopK        int    `envconfig:"MEMORY_TOP_K" default:"5"`
}

type ExplorerConfig struct {
	SearchURL    string  `envconfig:"EXPLORER_SEARCH_URL" default:"https://html.duckduckgo.com/html/"`
	RatePerSec   float64 `envconfig:"EXPLORER_RATE_PER_SEC" default:"2"`
	Burst        int     `envconfig:"EXPLORER_BURST" default:"2"`
	MaxPageChars int     `envconfig:"EXPLORER_MAX_PAGE_CHARS" default:"12000"`
}

type TelemetryConfig struct {
	MetricsAddr  string `envconfig:"METRICS_ADDR"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

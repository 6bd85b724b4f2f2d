package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/getkin/kin-openapi/openapi3"
	"google.golang.org/genai"

	"github.com/dinewise-core/server/internal/agent/model"
	logx "github.com/dinewise-core/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey       string
	BaseURL      string
	Router       model.ModelSettings
	Orchestrator model.ModelSettings
	Extractor    model.ModelSettings
	Reflector    model.ModelSettings
}

// ChatModels holds one model per role. Orchestrator is unbound; the graph
// binds the tool set to a copy of it at build time.
type ChatModels struct {
	Router       einomodel.ToolCallingChatModel
	Orchestrator einomodel.ToolCallingChatModel
	Extractor    einomodel.ToolCallingChatModel
	Reflector    einomodel.ToolCallingChatModel
	Names        map[model.Role]string
}

// Name returns the configured model name for role, used for cost lookup.
func (cm *ChatModels) Name(role model.Role) string {
	if cm == nil {
		return ""
	}
	return cm.Names[role]
}

// thinking budgets per role; classification calls run without thinking.
var thinkingBudget = map[model.Role]int32{
	model.RoleRouter:       0,
	model.RoleReflector:    0,
	model.RoleExtractor:    512,
	model.RoleOrchestrator: 2000,
}

// responseSchemas switches a role into the provider's structured JSON mode.
var responseSchemas = map[model.Role]*openapi3.Schema{
	model.RoleReflector: ReflectionSchema(),
}

// NewChatModels creates one Gemini chat model per role over a shared client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	build := func(role model.Role, s model.ModelSettings) (*gemini.ChatModel, error) {
		temperature := s.Temperature
		maxTokens := s.MaxTokens
		budget := thinkingBudget[role]
		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       s.Model,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
			ThinkingConfig: &genai.ThinkingConfig{
				IncludeThoughts: budget > 0,
				ThinkingBudget:  genai.Ptr(budget),
			},
			ResponseSchema: responseSchemas[role],
		})
		if err != nil {
			logx.Error().Err(err).Str("role", string(role)).Msg("Error creating chat model")
			return nil, fmt.Errorf("error creating %s model: %w", role, err)
		}
		return cm, nil
	}

	router, err := build(model.RoleRouter, config.Router)
	if err != nil {
		return nil, err
	}
	orchestrator, err := build(model.RoleOrchestrator, config.Orchestrator)
	if err != nil {
		return nil, err
	}
	extractor, err := build(model.RoleExtractor, config.Extractor)
	if err != nil {
		return nil, err
	}
	reflector, err := build(model.RoleReflector, config.Reflector)
	if err != nil {
		return nil, err
	}

	return &ChatModels{
		Router:       router,
		Orchestrator: orchestrator,
		Extractor:    extractor,
		Reflector:    reflector,
		Names: map[model.Role]string{
			model.RoleRouter:       config.Router.Model,
			model.RoleOrchestrator: config.Orchestrator.Model,
			model.RoleExtractor:    config.Extractor.Model,
			model.RoleReflector:    config.Reflector.Model,
		},
	}, nil
}

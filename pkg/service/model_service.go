// Model catalog and eino chat model construction
package service

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einoModel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/mkoyasu/chatto/pkg/models"
)

// ModelService serves the model catalog and builds eino chat models from
// catalog entries. The catalog is loaded once at construction.
type ModelService struct {
	catalog []*models.ModelConfig
}

// NewModelService loads the catalog, optionally overridden by the YAML
// file at catalogPath.
func NewModelService(catalogPath string) (*ModelService, error) {
	catalog, err := models.LoadModels(catalogPath)
	if err != nil {
		return nil, err
	}
	return &ModelService{catalog: catalog}, nil
}

// AllModels returns every catalog entry.
func (m *ModelService) AllModels() []*models.ModelConfig {
	return m.catalog
}

// AvailableModels returns the catalog entries whose credentials are
// currently present in the environment.
func (m *ModelService) AvailableModels() []*models.ModelConfig {
	available := make([]*models.ModelConfig, 0, len(m.catalog))
	for _, mc := range m.catalog {
		if mc.Available() {
			available = append(available, mc)
		}
	}
	return available
}

// GetModelConfig finds a catalog entry by display name or model id.
// Returns nil when no entry matches.
func (m *ModelService) GetModelConfig(modelName string) *models.ModelConfig {
	for _, mc := range m.catalog {
		if mc.Name == modelName || mc.Model == modelName {
			return mc
		}
	}
	return nil
}

// CreateChatModel creates an eino chat model from a catalog entry.
func (m *ModelService) CreateChatModel(ctx context.Context, config *models.ModelConfig) (einoModel.BaseChatModel, error) {
	if config == nil {
		return nil, fmt.Errorf("model config is nil")
	}
	apiKey := ""
	if config.APIKeyEnv != "" {
		apiKey = os.Getenv(config.APIKeyEnv)
	}

	switch config.Provider {
	case models.ProviderOpenAI:
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: config.BaseURL,
			APIKey:  apiKey,
			Model:   config.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
		}
		return chatModel, nil

	case models.ProviderAnthropic:
		chatModel, err := claude.NewChatModel(ctx, &claude.Config{
			BaseURL:   &config.BaseURL,
			APIKey:    apiKey,
			Model:     config.Model,
			MaxTokens: 8192,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Claude model: %w", err)
		}
		return chatModel, nil

	case models.ProviderGoogle:
		genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client: genaiClient,
			Model:  config.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini model: %w", err)
		}
		return chatModel, nil

	case models.ProviderOllama:
		chatModel, err := ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: config.BaseURL,
			Model:   config.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama model: %w", err)
		}
		return chatModel, nil

	default:
		return nil, fmt.Errorf("unsupported model provider: %s", config.Provider)
	}
}

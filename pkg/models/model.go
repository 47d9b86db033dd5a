package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Supported model providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// SupportedModelProviders all valid provider values
var SupportedModelProviders = map[string]struct{}{
	ProviderOpenAI:    {},
	ProviderAnthropic: {},
	ProviderGoogle:    {},
	ProviderOllama:    {},
}

// ModelConfig describes one entry of the model catalog: which provider to
// call, which credential environment variable to read, and whether the
// model accepts image input.
type ModelConfig struct {
	Name           string `json:"name" yaml:"name"`
	Provider       string `json:"provider" yaml:"provider"`
	Model          string `json:"model" yaml:"model"`
	APIKeyEnv      string `json:"api_key_env,omitempty" yaml:"api_key_env"`
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url"`
	Description    string `json:"description" yaml:"description"`
	SupportsVision bool   `json:"supports_vision" yaml:"supports_vision"`
}

// Available reports whether the model can be used right now: either it
// needs no credential (ollama) or its credential env var is set.
func (m *ModelConfig) Available() bool {
	if m.APIKeyEnv == "" {
		return true
	}
	return os.Getenv(m.APIKeyEnv) != ""
}

// BuiltinModels returns the default catalog.
func BuiltinModels() []*ModelConfig {
	return []*ModelConfig{
		{
			Name:           "GPT-4o",
			Provider:       ProviderOpenAI,
			Model:          "gpt-4o",
			APIKeyEnv:      "OPENAI_API_KEY",
			Description:    "OpenAIの最新マルチモーダルモデル",
			SupportsVision: true,
		},
		{
			Name:           "GPT-4.1",
			Provider:       ProviderOpenAI,
			Model:          "gpt-4.1",
			APIKeyEnv:      "OPENAI_API_KEY",
			Description:    "最新のGPTモデル、コーディングと推論が大幅向上",
			SupportsVision: false,
		},
		{
			Name:           "Claude Sonnet 4",
			Provider:       ProviderAnthropic,
			Model:          "claude-sonnet-4-20250514",
			APIKeyEnv:      "ANTHROPIC_API_KEY",
			Description:    "スマートで効率的な日常使いに最適なモデル",
			SupportsVision: true,
		},
		{
			Name:           "Claude Opus 4",
			Provider:       ProviderAnthropic,
			Model:          "claude-opus-4-20250514",
			APIKeyEnv:      "ANTHROPIC_API_KEY",
			Description:    "世界最高のコーディングモデル、最も知的なAI",
			SupportsVision: true,
		},
		{
			Name:           "Gemini 2.5 Flash",
			Provider:       ProviderGoogle,
			Model:          "gemini-2.5-flash-preview-05-20",
			APIKeyEnv:      "GOOGLE_API_KEY",
			Description:    "思考機能付きハイブリッド推論モデル、速度と効率重視",
			SupportsVision: true,
		},
		{
			Name:        "Ollama (llama3)",
			Provider:    ProviderOllama,
			Model:       "llama3",
			BaseURL:     "http://localhost:11434",
			Description: "ローカル実行のオープンモデル（APIキー不要）",
		},
	}
}

// LoadModels returns the catalog, replaced by the YAML file at path when it
// exists. A missing file is not an error; a malformed one is.
func LoadModels(path string) ([]*ModelConfig, error) {
	if path == "" {
		return BuiltinModels(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return BuiltinModels(), nil
		}
		return nil, fmt.Errorf("read model catalog %s: %w", path, err)
	}

	var catalog []*ModelConfig
	if err := yaml.Unmarshal(b, &catalog); err != nil {
		return nil, fmt.Errorf("parse model catalog %s: %w", path, err)
	}
	for _, m := range catalog {
		if _, ok := SupportedModelProviders[m.Provider]; !ok {
			return nil, fmt.Errorf("unsupported model provider %q for model %q", m.Provider, m.Name)
		}
	}
	return catalog, nil
}

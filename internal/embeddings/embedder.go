// Package embeddings turns sticker set descriptions into vectors for the
// similarity index.
package embeddings

import (
	"context"
	"fmt"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// Providers accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config selects and configures an embedding provider.
type Config struct {
	Provider   string `koanf:"provider" yaml:"provider"`
	Model      string `koanf:"model" yaml:"model"`
	APIKey     string `koanf:"api_key" yaml:"api_key,omitempty"`
	BaseURL    string `koanf:"base_url" yaml:"base_url,omitempty"`
	Dimensions int    `koanf:"dimensions" yaml:"dimensions,omitempty"`
}

// New builds the Embedder named by cfg.Provider.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai embeddings need an api key")
		}
		model := OpenAIModel(cfg.Model)
		if model == "" {
			model = ModelTextEmbedding3Small
		}
		return NewOpenAIEmbedder(cfg.APIKey, model, cfg.BaseURL), nil
	case ProviderOllama:
		model := cfg.Model
		if model == "" {
			model = defaultOllamaModel
		}
		dims := cfg.Dimensions
		if dims <= 0 {
			dims = defaultOllamaDimensions
		}
		return NewOllamaEmbedder(model, dims, cfg.BaseURL), nil
	case "":
		return nil, fmt.Errorf("no embedding provider configured")
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

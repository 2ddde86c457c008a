// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/filing-intel/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/filing-intel/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/filing-intel/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/filing-intel/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/filing-intel/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
)

// Supported AI providers.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// modelDimensions maps known embedding models to their vector sizes.
// Unknown models fall back to the adapter's default.
var modelDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// EmbeddingSettings selects and configures the embedding provider.
type EmbeddingSettings struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string

	// Dimensions overrides the model's known vector size.
	Dimensions int
}

// IsConfigured reports whether the settings name a supported provider.
func (s *EmbeddingSettings) IsConfigured() bool {
	switch s.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic:
		return true
	default:
		return false
	}
}

// LLMSettings selects and configures the language model provider.
type LLMSettings struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string

	// RequestsPerSecond throttles providers with strict rate limits.
	// Zero means the adapter's default.
	RequestsPerSecond float64
}

// IsConfigured reports whether the settings name a supported provider.
func (s *LLMSettings) IsConfigured() bool {
	switch s.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic:
		return true
	default:
		return false
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Check the [embedding] section of your config",
			domain.ErrEmbeddingUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Check the [embedding] section of your config",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Check the [llm] section of your config",
			domain.ErrGenerationUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Check the [llm] section of your config",
			domain.ErrGenerationUnavailable, err)
	}

	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOllama:
		return createOllamaEmbedding(settings), nil

	case ProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case ProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOllama:
		return createOllamaLLM(settings), nil

	case ProviderOpenAI:
		return createOpenAILLM(settings)

	case ProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = modelDimensions[settings.Model]
	}
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = modelDimensions[settings.Model]
	}

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:            settings.APIKey,
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		RequestsPerSecond: settings.RequestsPerSecond,
	})
}

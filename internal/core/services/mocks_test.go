package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
)

// --- Mock implementations shared across service tests ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors can be pinned per input text; unmapped texts get the default
// embedding.
type mockEmbeddingService struct {
	mu         sync.Mutex
	embedding  []float32
	vectors    map[string][]float32
	embedErr   error
	batchErr   error
	model      string
	dims       int
	embedCalls int
	batchCalls int
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	if m.embedding != nil {
		return m.embedding
	}
	return []float32{1, 0, 0}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = m.vectorFor(text)
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 3
}

func (m *mockEmbeddingService) ModelName() string {
	if m.model != "" {
		return m.model
	}
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockLLMService implements driven.LLMService for testing. Responses are
// served in order; the last one repeats once the queue runs out.
type mockLLMService struct {
	mu          sync.Mutex
	responses   []string
	generateErr error
	prompts     []string
	systems     []string
	calls       int
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.systems = append(m.systems, opts.System)
	if m.generateErr != nil {
		return "", m.generateErr
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	i := m.calls - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

// quickRetry keeps retry loops fast in tests.
func quickRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, BaseDelay: 1, MaxDelay: 1}
}

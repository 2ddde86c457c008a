package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu         sync.RWMutex
	chunks     map[string]domain.Chunk
	embeddings map[string]domain.Embedding
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks:     make(map[string]domain.Chunk),
		embeddings: make(map[string]domain.Embedding),
	}
}

// UpsertChunk stores or replaces a chunk by ID.
func (s *ChunkStore) UpsertChunk(_ context.Context, chunk domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[chunk.ID] = chunk
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *ChunkStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

// ListChunks returns chunks filtered by company and section. Results are
// ordered by chunk ID for deterministic iteration.
func (s *ChunkStore) ListChunks(_ context.Context, cik, section string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Chunk
	for _, chunk := range s.chunks {
		if cik != "" && chunk.CIK != cik {
			continue
		}
		if section != "" && chunk.Section != section {
			continue
		}
		result = append(result, chunk)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeleteFilingChunks removes every chunk and embedding of a filing.
func (s *ChunkStore) DeleteFilingChunks(_ context.Context, accessionNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, chunk := range s.chunks {
		if chunk.AccessionNumber == accessionNumber {
			delete(s.chunks, id)
			delete(s.embeddings, id)
		}
	}
	return nil
}

// UpsertEmbedding stores or replaces the embedding for a chunk.
func (s *ChunkStore) UpsertEmbedding(_ context.Context, emb domain.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddings[emb.ChunkID] = emb
	return nil
}

// GetEmbedding retrieves the embedding for a chunk.
func (s *ChunkStore) GetEmbedding(_ context.Context, chunkID string) (*domain.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emb, ok := s.embeddings[chunkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &emb, nil
}

// ListEmbeddings returns candidate embeddings, filtered by company when
// cik is non-empty.
func (s *ChunkStore) ListEmbeddings(_ context.Context, cik string) ([]domain.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Embedding
	for _, emb := range s.embeddings {
		if cik != "" && emb.CIK != cik {
			continue
		}
		result = append(result, emb)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ChunkID < result[j].ChunkID
	})
	return result, nil
}

// EmbeddingModels returns the distinct embedding model names present.
func (s *ChunkStore) EmbeddingModels(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var models []string
	for _, emb := range s.embeddings {
		if !seen[emb.Model] {
			seen[emb.Model] = true
			models = append(models, emb.Model)
		}
	}
	sort.Strings(models)
	return models, nil
}

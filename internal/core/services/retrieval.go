package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
	"github.com/custodia-labs/filing-intel/internal/logger"
)

// RetrievalEngine finds the chunks most similar to a query. The scan is
// linear over the filtered candidate set: corpora are filing-scale, not
// web-scale, so an approximate index is an optimisation, not a
// correctness requirement.
type RetrievalEngine struct {
	store    driven.ChunkStore
	embedder driven.EmbeddingService
	retry    RetryPolicy
}

// NewRetrievalEngine creates a retrieval engine. The embedder must be
// the same model used for indexing.
func NewRetrievalEngine(store driven.ChunkStore, embedder driven.EmbeddingService, retry RetryPolicy) *RetrievalEngine {
	return &RetrievalEngine{
		store:    store,
		embedder: embedder,
		retry:    retry.withDefaults(),
	}
}

// Retrieve returns the topK chunks most similar to the query, restricted
// to one company when cik is non-empty. Ties are broken by more recent
// period end first, then by chunk ordinal ascending. An empty index for
// the filter returns an empty slice, never an error.
func (r *RetrievalEngine) Retrieve(ctx context.Context, query, cik string, topK int) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidInput, topK)
	}

	var queryVec []float32
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		queryVec, err = r.embedder.Embed(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrEmbeddingUnavailable, err)
	}

	embeddings, err := r.store.ListEmbeddings(ctx, cik)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	if len(embeddings) == 0 {
		logger.Debug("No candidate embeddings for cik=%q", cik)
		return []domain.RetrievedChunk{}, nil
	}

	chunks, err := r.store.ListChunks(ctx, cik, "")
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	byID := make(map[string]domain.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	scored := make([]domain.RetrievedChunk, 0, len(embeddings))
	for _, emb := range embeddings {
		chunk, ok := byID[emb.ChunkID]
		if !ok {
			// Embedding without a live chunk: retired, skip.
			continue
		}
		if len(emb.Vector) != len(queryVec) {
			logger.Warn("Dimension mismatch for chunk %s (%d vs %d), skipping",
				emb.ChunkID, len(emb.Vector), len(queryVec))
			continue
		}
		scored = append(scored, domain.RetrievedChunk{
			Chunk:      chunk,
			Similarity: cosineSimilarity(queryVec, emb.Vector),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if !a.Chunk.PeriodEnd.Equal(b.Chunk.PeriodEnd) {
			return a.Chunk.PeriodEnd.After(b.Chunk.PeriodEnd)
		}
		return a.Chunk.Index < b.Chunk.Index
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Zero vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

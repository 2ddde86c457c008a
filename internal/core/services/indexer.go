package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driving"
	"github.com/custodia-labs/filing-intel/internal/logger"
)

// DefaultEmbedBatchSize bounds how many chunks are sent to the provider
// in one batch request.
const DefaultEmbedBatchSize = 16

// EmbeddingIndexer converts chunks into vectors and persists them. It is
// idempotent per chunk: reindexing unchanged text is a no-op, detected
// via a content hash; changed text replaces the stored vector.
type EmbeddingIndexer struct {
	store     driven.ChunkStore
	embedder  driven.EmbeddingService
	retry     RetryPolicy
	batchSize int
}

// NewEmbeddingIndexer creates an indexer. A zero retry policy falls back
// to DefaultRetryPolicy; a batchSize of 0 falls back to
// DefaultEmbedBatchSize.
func NewEmbeddingIndexer(
	store driven.ChunkStore,
	embedder driven.EmbeddingService,
	retry RetryPolicy,
	batchSize int,
) *EmbeddingIndexer {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &EmbeddingIndexer{
		store:     store,
		embedder:  embedder,
		retry:     retry.withDefaults(),
		batchSize: batchSize,
	}
}

// ValidateIndex rejects an index containing embeddings from any model
// other than the configured provider's. Mixing embedding spaces breaks
// similarity comparisons, so this is checked before every index build.
func (x *EmbeddingIndexer) ValidateIndex(ctx context.Context) error {
	models, err := x.store.EmbeddingModels(ctx)
	if err != nil {
		return fmt.Errorf("list embedding models: %w", err)
	}
	for _, m := range models {
		if m != x.embedder.ModelName() {
			return fmt.Errorf("%w: index has %q, provider is %q",
				domain.ErrModelMismatch, m, x.embedder.ModelName())
		}
	}
	return nil
}

// IndexChunk embeds and stores one chunk. Returns the stored embedding,
// or domain.ErrEmbeddingUnavailable (wrapped) after retries run out; the
// caller may proceed without it at the cost of the chunk being
// unreachable by retrieval.
func (x *EmbeddingIndexer) IndexChunk(ctx context.Context, chunk domain.Chunk) (*domain.Embedding, error) {
	hash := contentHash(chunk.Text)

	existing, err := x.store.GetEmbedding(ctx, chunk.ID)
	if err == nil && existing.ContentHash == hash && existing.Model == x.embedder.ModelName() {
		logger.Debug("Chunk %s unchanged, skipping embed", chunk.ID)
		return existing, nil
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get embedding %s: %w", chunk.ID, err)
	}

	var vector []float32
	embedErr := x.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		vector, err = x.embedder.Embed(ctx, chunk.Text)
		return err
	})
	if embedErr != nil {
		return nil, fmt.Errorf("%w: chunk %s: %w", domain.ErrEmbeddingUnavailable, chunk.ID, embedErr)
	}

	emb := domain.Embedding{
		ChunkID:     chunk.ID,
		CIK:         chunk.CIK,
		Vector:      vector,
		Model:       x.embedder.ModelName(),
		ContentHash: hash,
	}
	if err := x.store.UpsertEmbedding(ctx, emb); err != nil {
		return nil, fmt.Errorf("%w: embedding %s: %w", domain.ErrStoreWriteFailure, chunk.ID, err)
	}
	return &emb, nil
}

// IndexChunks indexes a batch of chunks. Provider calls are batched up
// to the configured batch size; failures are scoped per batch and the
// remaining batches continue. Returns the number of chunks with a live
// embedding and the per-item failures.
func (x *EmbeddingIndexer) IndexChunks(ctx context.Context, chunks []domain.Chunk) (int, []driving.ItemFailure) {
	var failures []driving.ItemFailure
	indexed := 0

	if err := x.ValidateIndex(ctx); err != nil {
		for _, c := range chunks {
			failures = append(failures, driving.ItemFailure{Stage: "index", Item: c.ID, Reason: err.Error()})
		}
		return 0, failures
	}

	// Skip chunks whose stored embedding is already current.
	pending := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		existing, err := x.store.GetEmbedding(ctx, chunk.ID)
		if err == nil && existing.ContentHash == contentHash(chunk.Text) && existing.Model == x.embedder.ModelName() {
			indexed++
			continue
		}
		pending = append(pending, chunk)
	}

	for start := 0; start < len(pending); start += x.batchSize {
		end := start + x.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		var vectors [][]float32
		err := x.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			vectors, err = x.embedder.EmbedBatch(ctx, texts)
			return err
		})
		if err != nil {
			reason := fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err).Error()
			for _, c := range batch {
				failures = append(failures, driving.ItemFailure{Stage: "index", Item: c.ID, Reason: reason})
			}
			if ctx.Err() != nil {
				return indexed, failures
			}
			continue
		}
		if len(vectors) != len(batch) {
			for _, c := range batch {
				failures = append(failures, driving.ItemFailure{
					Stage: "index", Item: c.ID,
					Reason: fmt.Sprintf("provider returned %d vectors for %d texts", len(vectors), len(batch)),
				})
			}
			continue
		}

		for i, c := range batch {
			emb := domain.Embedding{
				ChunkID:     c.ID,
				CIK:         c.CIK,
				Vector:      vectors[i],
				Model:       x.embedder.ModelName(),
				ContentHash: contentHash(c.Text),
			}
			if err := x.store.UpsertEmbedding(ctx, emb); err != nil {
				failures = append(failures, driving.ItemFailure{Stage: "store", Item: c.ID, Reason: err.Error()})
				continue
			}
			indexed++
		}
	}

	return indexed, failures
}

// contentHash fingerprints chunk text for idempotent reindexing.
func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

package driven

import (
	"context"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

// ChunkStore persists chunks and their embeddings.
// All writes are upserts by primary key, so cancelling a batch mid-way
// leaves a consistent (if incomplete) state.
type ChunkStore interface {
	// UpsertChunk stores or replaces a chunk by ID.
	UpsertChunk(ctx context.Context, chunk domain.Chunk) error

	// GetChunk retrieves a chunk by ID.
	// Returns domain.ErrNotFound when absent.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// ListChunks returns chunks filtered by company and section.
	// Empty cik or section means no filter on that field.
	ListChunks(ctx context.Context, cik, section string) ([]domain.Chunk, error)

	// DeleteFilingChunks retires every chunk (and its embedding) of a
	// filing instance, used when a filing is reprocessed.
	DeleteFilingChunks(ctx context.Context, accessionNumber string) error

	// UpsertEmbedding stores or replaces the embedding for a chunk.
	// Exactly one embedding exists per live chunk.
	UpsertEmbedding(ctx context.Context, emb domain.Embedding) error

	// GetEmbedding retrieves the embedding for a chunk.
	// Returns domain.ErrNotFound when absent.
	GetEmbedding(ctx context.Context, chunkID string) (*domain.Embedding, error)

	// ListEmbeddings returns candidate embeddings for a similarity
	// scan, filtered by company when cik is non-empty.
	ListEmbeddings(ctx context.Context, cik string) ([]domain.Embedding, error)

	// EmbeddingModels returns the distinct embedding model names
	// present in the index, used to reject mixed embedding spaces.
	EmbeddingModels(ctx context.Context) ([]string, error)
}

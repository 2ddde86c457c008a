package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// The same model and dimension must be used for indexing and querying:
// mixing embedding spaces across one index is disallowed and is
// validated at index-build time.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Warehouse-native embedding functions
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// This is more efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	// It is recorded alongside every stored embedding.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

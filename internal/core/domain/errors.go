package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedDocument indicates chunking could not locate any
	// recognisable section structure in a nonempty filing. Recoverable:
	// the caller may fall back to whole-document chunking.
	ErrMalformedDocument = errors.New("malformed document: no section markers found")

	// ErrEmbeddingUnavailable indicates the embedding provider failed
	// after retries were exhausted. The affected chunk is skipped and
	// remains unreachable by retrieval.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrGenerationUnavailable indicates the language model provider
	// failed after retries during answer synthesis or extraction.
	ErrGenerationUnavailable = errors.New("generation provider unavailable")

	// ErrScoringUnavailable indicates the language model provider
	// failed persistently during risk scoring.
	ErrScoringUnavailable = errors.New("risk scoring provider unavailable")

	// ErrValidationFailure indicates model output failed the structural
	// contract for metrics or risk categories. The offending output is
	// discarded, not persisted.
	ErrValidationFailure = errors.New("model output validation failed")

	// ErrStoreWriteFailure indicates the persistence layer rejected a
	// write after retries.
	ErrStoreWriteFailure = errors.New("store write failed")

	// ErrModelMismatch indicates the index contains embeddings from a
	// different model than the configured provider. Mixing embedding
	// spaces is disallowed.
	ErrModelMismatch = errors.New("embedding model mismatch in index")
)

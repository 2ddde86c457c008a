// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - ChunkStore: Filing chunk and embedding persistence
//   - MetricStore: Extracted financial metric persistence
//   - RiskStore: Risk assessment persistence
//   - CompanyStore: Company universe persistence
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Embedding vectors are stored as little-endian
// float32 blobs alongside the model name that produced them.
//
// # Data Location
//
// By default, the database is stored at ~/.filing-intel/data/filings.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite

// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ChunkStore: chunk and embedding persistence
//   - MetricStore: financial metric persistence
//   - RiskStore: risk assessment persistence
//   - CompanyStore: company reference data
//   - EmbeddingService: text -> fixed-dimension vector
//   - LLMService: prompt -> text, used for extraction, scoring and synthesis
//
// # Optional Interfaces
//
//   - ConfigStore: application configuration (defaults apply when nil)
//   - PromptStore: customisable prompt templates (embedded defaults apply)
//
// Both providers are treated as unreliable: they may rate-limit, time
// out or return malformed output, so callers always wrap them with
// bounded retry and output validation.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: any adapter package
package driven

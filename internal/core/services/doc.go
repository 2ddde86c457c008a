// Package services implements the core pipeline components: section
// chunking, embedding indexing, retrieval, answer synthesis, metric
// extraction, anomaly detection and risk scoring, plus the batch
// orchestrator that wires them together.
//
// Services depend only on domain types and the driven ports; all
// provider and storage specifics live behind those interfaces so tests
// can substitute deterministic stubs.
package services

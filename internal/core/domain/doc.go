// Package domain contains the core entities of the filing intelligence
// pipeline: filings, chunks, embeddings, financial metrics, risk
// assessments and the company reference universe.
//
// Closed enumerations (filing sections, the metric catalogue, risk
// categories, anomaly thresholds) live here so they are auditable and
// testable in one place rather than scattered through services.
//
// This package must not import any adapter or service package.
package domain

package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a
	// sensible default or an error, depending on whether the prompt is
	// required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the pipeline.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptAnswer grounds a question in retrieved filing excerpts.
	// The template expects %s (company), %s (question) and %s (context)
	// placeholders, in that order.
	PromptAnswer = "answer"

	// PromptExtractMetrics requests structured metric extraction.
	// The template expects %s (company), %s (metric list) and
	// %s (filing text) placeholders, in that order.
	PromptExtractMetrics = "extract_metrics"

	// PromptScoreRisks requests categorised risk findings.
	// The template expects %s (company) and %s (filing text)
	// placeholders, in that order.
	PromptScoreRisks = "score_risks"
)

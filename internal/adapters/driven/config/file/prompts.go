package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptAnswer: `Based on the following SEC filing excerpts for %s, answer this question: %s

Context from SEC filings:
%s

Provide a clear, concise answer grounded in the excerpts. If the context
does not contain enough information to answer fully, say so.

Format your response as JSON:
{
  "answer": "your detailed answer",
  "confidence": "HIGH/MEDIUM/LOW",
  "caveats": ["any limitations or uncertainties"]
}`,

	driven.PromptExtractMetrics: `Extract the following financial metrics from this SEC filing for %s.

Required metrics (values in millions USD unless noted; use null if not found):
%s

For each metric provide:
- value: the numerical value
- source: a brief quote showing where it was found

Return as JSON: {"metrics": {"metric_name": {"value": X, "source": "..."}}}

Filing text:
%s`,

	driven.PromptScoreRisks: `Analyze the following SEC filing excerpts for %s.
Identify and categorize risks into exactly these categories:
- FINANCIAL: financial and credit risks
- OPERATIONAL: operational and business risks
- MARKET: market and competitive risks
- REGULATORY: regulatory and compliance risks
- LITIGATION: legal proceedings and litigation risks
- ACCOUNTING: accounting and reporting concerns

For each risk found provide:
- category: one of the categories above
- severity: LOW, MEDIUM, HIGH or CRITICAL
- description: brief description of the risk
- evidence: a verbatim quote from the text supporting this finding

Return as JSON: {"risks": [...]}

Filing text:
%s`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.filing-intel/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".filing-intel", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Prompts

This directory contains customisable prompts used by the filing analysis
pipeline.

## Files

- ` + "`answer.txt`" + ` - Grounds a question in retrieved filing excerpts
- ` + "`extract_metrics.txt`" + ` - Extracts structured financial metrics from filing text
- ` + "`score_risks.txt`" + ` - Identifies and categorises risks in filing excerpts

## Customisation

Edit any file to customise LLM behaviour. Changes take effect on the next
command.

## Format Placeholders

Prompts use Go fmt placeholders:
- ` + "`%s`" + ` - String (e.g., the company, question or filing text)

Ensure customised prompts maintain placeholders in the correct positions.
`
	return os.WriteFile(path, []byte(content), 0600)
}

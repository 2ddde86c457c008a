package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filing-intel/internal/core/ports/driven"
)

func TestPromptStore_LoadCreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Contains(t, prompt, "SEC filing excerpts")

	// First load initialises the directory with editable default files.
	assert.FileExists(t, filepath.Join(dir, "answer.txt"))
	assert.FileExists(t, filepath.Join(dir, "extract_metrics.txt"))
	assert.FileExists(t, filepath.Join(dir, "score_risks.txt"))
	assert.FileExists(t, filepath.Join(dir, "README.md"))
}

func TestPromptStore_CustomFileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	custom := "Answer the question for %s: %s using %s"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "answer.txt"), []byte(custom+"\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt, "file content wins, trailing whitespace trimmed")
}

func TestPromptStore_UnknownPromptFails(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent")
	assert.Error(t, err)
}

func TestPromptStore_ReloadPicksUpEdits(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptScoreRisks)
	require.NoError(t, err)

	edited := "Revised: " + first
	require.NoError(t, os.WriteFile(filepath.Join(dir, "score_risks.txt"), []byte(edited), 0600))

	// Cached value survives until Reload.
	cached, err := store.Load(driven.PromptScoreRisks)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptScoreRisks)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fresh, "Revised:"))
}

func TestPromptStore_Dir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

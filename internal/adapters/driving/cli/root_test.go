package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "filing-intel", rootCmd.Use)
}

func TestRootCmd_HasPersistentFlags(t *testing.T) {
	for _, name := range []string{"verbose", "config-dir", "data-dir"} {
		flag := rootCmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, "%s flag should exist", name)
	}
}

func TestRootCmd_HasExpectedCommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}

	assert.Contains(t, names, "ingest")
	assert.Contains(t, names, "ask")
	assert.Contains(t, names, "metrics")
	assert.Contains(t, names, "risks")
	assert.Contains(t, names, "companies")
	assert.Contains(t, names, "version")
}

func TestPromptDirFor(t *testing.T) {
	assert.Equal(t, "", promptDirFor(""))
	assert.Contains(t, promptDirFor("/tmp/conf"), "prompts")
}

package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompaniesCmd_Use(t *testing.T) {
	assert.Equal(t, "companies", companiesCmd.Use)
}

func TestCompaniesCmd_Short(t *testing.T) {
	assert.Equal(t, "Manage the company registry", companiesCmd.Short)
}

func TestCompaniesCmd_HasAddSubcommand(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range companiesCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "add")
}

func TestCompaniesCmd_StoreNotConfigured(t *testing.T) {
	oldStore := companyStore
	oldWired := servicesWired
	companyStore = nil
	servicesWired = true
	defer func() {
		companyStore = oldStore
		servicesWired = oldWired
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"companies"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "company store not configured")
}

func TestCompaniesCmd_ListEmpty(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"companies"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No companies registered.")
}

func TestCompaniesCmd_List(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	seedCompany("0000320193", "AAPL")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"companies"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "0000320193")
	assert.Contains(t, buf.String(), "AAPL")
}

func TestCompaniesAddCmd_Use(t *testing.T) {
	assert.Equal(t, "add [cik]", companiesAddCmd.Use)
}

func TestCompaniesAddCmd_RequiresExactlyOneArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"companies", "add"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestCompaniesAddCmd_RegistersWithSector(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{
		"companies", "add", "0000320193",
		"--ticker", "AAPL", "--name", "Apple Inc.", "--sic", "3571",
	})
	defer func() {
		rootCmd.SetArgs(nil)
		companyTicker = ""
		companyName = ""
		companySIC = ""
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Registered 0000320193 (AAPL)")

	company, err := testCompanyStore.GetCompanyByTicker(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Manufacturing", company.Sector)
	assert.True(t, company.Active)
}

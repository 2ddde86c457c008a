package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

func seedAssessments(t *testing.T) {
	t.Helper()
	seedCompany("0000320193", "AAPL")

	period := time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC)
	prior := time.Date(2022, 9, 24, 0, 0, 0, 0, time.UTC)

	assessments := []domain.RiskAssessment{
		{
			ID: domain.AssessmentID("0000320193", period, domain.RiskLitigation), CIK: "0000320193",
			Ticker: "AAPL", PeriodEnd: period, Category: domain.RiskLitigation, Score: 75,
			Summary:  "Pending patent dispute over wearable sensors",
			Evidence: []domain.RiskEvidence{{ChunkID: "c1", Quote: "a patent dispute is pending"}},
		},
		{
			ID: domain.AssessmentID("0000320193", period, domain.RiskMarket), CIK: "0000320193",
			Ticker: "AAPL", PeriodEnd: period, Category: domain.RiskMarket, Score: 50,
			Summary: "Smartphone demand is cyclical",
		},
		{
			ID: domain.AssessmentID("0000320193", prior, domain.RiskLitigation), CIK: "0000320193",
			Ticker: "AAPL", PeriodEnd: prior, Category: domain.RiskLitigation, Score: 25,
			Summary: "Routine proceedings only",
		},
	}
	for _, a := range assessments {
		require.NoError(t, testRiskStore.UpsertAssessment(context.Background(), a))
	}
}

func TestRisksCmd_Use(t *testing.T) {
	assert.Equal(t, "risks [ticker]", risksCmd.Use)
}

func TestRisksCmd_Short(t *testing.T) {
	assert.Equal(t, "Show the risk profile for a company", risksCmd.Short)
}

func TestRisksCmd_RequiresExactlyOneArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"risks"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestRisksCmd_ServiceNotConfigured(t *testing.T) {
	oldReporter := riskReporter
	oldWired := servicesWired
	riskReporter = nil
	servicesWired = true
	defer func() {
		riskReporter = oldReporter
		servicesWired = oldWired
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"risks", "AAPL"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "risk reporter not configured")
}

func TestRisksCmd_Summary(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	seedAssessments(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"risks", "AAPL"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Risk profile for AAPL")
	assert.Contains(t, out, "LITIGATION")
	assert.Contains(t, out, "MARKET")
	assert.Contains(t, out, "Pending patent dispute over wearable sensors")
	assert.Contains(t, out, "High-severity flags (1):")
}

func TestRisksCmd_SummaryEmpty(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	seedCompany("0000789019", "MSFT")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"risks", "MSFT"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No risk assessments recorded for MSFT.")
}

func TestRisksCmd_History(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	seedAssessments(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"risks", "--history", "AAPL"})
	defer func() {
		rootCmd.SetArgs(nil)
		risksHistory = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "2023-09-30")
	assert.Contains(t, out, "2022-09-24")
	assert.Contains(t, out, "Routine proceedings only")
	assert.Contains(t, out, "evidence (c1)")
}

func TestRisksCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	seedAssessments(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"risks", "--json", "AAPL"})
	defer func() {
		rootCmd.SetArgs(nil)
		risksJSON = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\"overall_score\"")
	assert.Contains(t, buf.String(), "\"breakdown\"")
}

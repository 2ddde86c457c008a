package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

var (
	risksHistory bool
	risksJSON    bool
)

var risksCmd = &cobra.Command{
	Use:   "risks [ticker]",
	Short: "Show the risk profile for a company",
	Long: `Shows the categorised risk profile for a company: the overall
weighted score, a per-category breakdown with supporting evidence, and
recent high-severity flags. Use --history for all assessments across
periods.`,
	Args: cobra.ExactArgs(1),
	RunE: runRisks,
}

func init() {
	risksCmd.Flags().BoolVar(&risksHistory, "history", false, "show all assessments, newest first")
	risksCmd.Flags().BoolVar(&risksJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(risksCmd)
}

func runRisks(cmd *cobra.Command, args []string) error {
	if riskReporter == nil {
		return errors.New("risk reporter not configured")
	}

	if risksHistory {
		return runRisksHistory(cmd, args[0])
	}
	return runRisksSummary(cmd, args[0])
}

func runRisksSummary(cmd *cobra.Command, ticker string) error {
	summary, err := riskReporter.Summary(cmd.Context(), ticker)
	if err != nil {
		return fmt.Errorf("risk summary failed: %w", err)
	}

	if risksJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(summary.Breakdown) == 0 {
		cmd.Printf("No risk assessments recorded for %s.\n", summary.Ticker)
		return nil
	}

	cmd.Printf("Risk profile for %s (overall score %.1f):\n", summary.Ticker, summary.OverallScore)
	for _, category := range domain.RiskCategories {
		breakdown, ok := summary.Breakdown[category]
		if !ok {
			continue
		}
		cmd.Printf("  %-12s latest %5.1f  avg %5.1f  across %d period(s)\n",
			category, breakdown.Latest.Score, breakdown.AverageScore, breakdown.Count)
		if breakdown.Latest.Summary != "" {
			cmd.Printf("               %s\n", breakdown.Latest.Summary)
		}
	}

	if len(summary.RecentFlags) > 0 {
		cmd.Println()
		cmd.Printf("High-severity flags (%d):\n", len(summary.RecentFlags))
		for _, a := range summary.RecentFlags {
			printAssessment(cmd, a)
		}
	}
	return nil
}

func runRisksHistory(cmd *cobra.Command, ticker string) error {
	history, err := riskReporter.History(cmd.Context(), ticker)
	if err != nil {
		return fmt.Errorf("risk history failed: %w", err)
	}

	if risksJSON {
		data, err := json.MarshalIndent(history, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(history) == 0 {
		cmd.Println("No risk assessments recorded.")
		return nil
	}

	for _, a := range history {
		printAssessment(cmd, a)
	}
	return nil
}

func printAssessment(cmd *cobra.Command, a domain.RiskAssessment) {
	cmd.Printf("  %s %-12s %5.1f  %s\n",
		a.PeriodEnd.Format("2006-01-02"), a.Category, a.Score, a.Summary)
	for _, ev := range a.Evidence {
		cmd.Printf("    evidence (%s): %q\n", ev.ChunkID, ev.Quote)
	}
}

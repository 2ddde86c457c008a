package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

var (
	metricsHistory bool
	metricsJSON    bool
)

var metricsCmd = &cobra.Command{
	Use:   "metrics [ticker]",
	Short: "Show extracted financial metrics for a company",
	Long: `Shows the latest extracted financial metrics for a company, with
year-over-year changes and anomaly flags. Use --history for the full
time series across all ingested periods.`,
	Args: cobra.ExactArgs(1),
	RunE: runMetrics,
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsHistory, "history", false, "show all periods, newest first")
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	if metricReporter == nil {
		return errors.New("metric reporter not configured")
	}

	if metricsHistory {
		return runMetricsHistory(cmd, args[0])
	}
	return runMetricsSummary(cmd, args[0])
}

func runMetricsSummary(cmd *cobra.Command, ticker string) error {
	summary, err := metricReporter.Summary(cmd.Context(), ticker)
	if err != nil {
		return fmt.Errorf("metrics summary failed: %w", err)
	}

	if metricsJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(summary.Latest) == 0 {
		cmd.Printf("No metrics recorded for %s.\n", summary.Ticker)
		return nil
	}

	cmd.Printf("Latest metrics for %s:\n", summary.Ticker)
	names := make([]string, 0, len(summary.Latest))
	for name := range summary.Latest {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printMetric(cmd, summary.Latest[name])
	}

	if len(summary.Anomalies) > 0 {
		cmd.Println()
		cmd.Printf("Anomalies (%d):\n", len(summary.Anomalies))
		for _, rec := range summary.Anomalies {
			printMetric(cmd, rec)
		}
	}
	return nil
}

func runMetricsHistory(cmd *cobra.Command, ticker string) error {
	history, err := metricReporter.History(cmd.Context(), ticker)
	if err != nil {
		return fmt.Errorf("metrics history failed: %w", err)
	}

	if metricsJSON {
		data, err := json.MarshalIndent(history, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(history) == 0 {
		cmd.Println("No metrics recorded.")
		return nil
	}

	current := ""
	for _, rec := range history {
		period := rec.PeriodEnd.Format("2006-01-02")
		if period != current {
			current = period
			cmd.Printf("\nPeriod %s:\n", period)
		}
		printMetric(cmd, rec)
	}
	return nil
}

func printMetric(cmd *cobra.Command, rec domain.MetricRecord) {
	line := fmt.Sprintf("  %-20s %14.2f %s", rec.Name, rec.Value, rec.Unit)
	if rec.YoYChange != nil {
		line += fmt.Sprintf("  (%+.1f%% YoY)", *rec.YoYChange)
	}
	if rec.Anomaly {
		line += "  [ANOMALY]"
	}
	cmd.Println(line)
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filing-intel/internal/core/ports/driving"
)

var (
	askTicker string
	askTopK   int
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about indexed filings",
	Long: `Answers a natural-language question from indexed filing text.
Retrieval finds the most relevant chunks by semantic similarity and the
answer is grounded in them, with citations back to the source sections.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askTicker, "ticker", "t", "", "restrict retrieval to one company")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	answer, err := answerService.Ask(cmd.Context(), args[0], driving.AskOptions{
		Ticker: askTicker,
		TopK:   askTopK,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)
	cmd.Println()
	cmd.Printf("Confidence: %s\n", answer.Confidence)

	for _, caveat := range answer.Caveats {
		cmd.Printf("Caveat: %s\n", caveat)
	}

	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, c := range answer.Citations {
			cmd.Printf("  [%d] %s %s %s (%.2f)\n",
				i+1, c.Ticker, c.Section, c.PeriodEnd.Format("2006-01-02"), c.Similarity)
		}
	}
	return nil
}

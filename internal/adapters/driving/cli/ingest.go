package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
	"github.com/custodia-labs/filing-intel/internal/core/ports/driving"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest SEC filings into the knowledge base",
	Long: `Processes one or more filing JSON files through the full pipeline:
section chunking, embedding, metric extraction, anomaly detection and
risk scoring. The path may be a single .json file or a directory of
them. Re-ingesting a filing replaces its previous chunks and records.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output reports as JSON")
	rootCmd.AddCommand(ingestCmd)
}

// filingFile is the on-disk JSON representation of one filing.
type filingFile struct {
	DocumentID      string             `json:"document_id"`
	AccessionNumber string             `json:"accession_number"`
	CIK             string             `json:"cik"`
	Ticker          string             `json:"ticker"`
	CompanyName     string             `json:"company_name"`
	FilingType      string             `json:"filing_type"`
	PeriodEnd       string             `json:"period_end"`
	Text            string             `json:"text"`
	Facts           map[string]float64 `json:"facts,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	filings, err := loadFilings(args[0])
	if err != nil {
		return err
	}
	if len(filings) == 0 {
		cmd.Println("No filing files found.")
		return nil
	}

	reports, err := ingestService.IngestAll(cmd.Context(), filings)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if ingestJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal reports: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for i := range reports {
		printReport(cmd, &reports[i])
	}
	return nil
}

// loadFilings reads filing JSON from a file or every .json file in a
// directory.
func loadFilings(path string) ([]domain.Filing, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var paths []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", path, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	filings := make([]domain.Filing, 0, len(paths))
	for _, p := range paths {
		filing, err := loadFiling(p)
		if err != nil {
			return nil, err
		}
		filings = append(filings, *filing)
	}
	return filings, nil
}

// loadFiling parses one filing JSON file.
func loadFiling(path string) (*domain.Filing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var f filingFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var periodEnd time.Time
	if f.PeriodEnd != "" {
		periodEnd, err = time.Parse("2006-01-02", f.PeriodEnd)
		if err != nil {
			return nil, fmt.Errorf("parse %s: invalid period_end %q: %w", path, f.PeriodEnd, err)
		}
	}

	documentID := f.DocumentID
	if documentID == "" {
		documentID = f.AccessionNumber
	}

	return &domain.Filing{
		DocumentID:      documentID,
		AccessionNumber: f.AccessionNumber,
		CIK:             f.CIK,
		Ticker:          f.Ticker,
		CompanyName:     f.CompanyName,
		FilingType:      f.FilingType,
		PeriodEnd:       periodEnd,
		Text:            f.Text,
		Facts:           f.Facts,
	}, nil
}

func printReport(cmd *cobra.Command, r *driving.IngestReport) {
	cmd.Printf("%s %s: %d chunks (%d indexed), %d metrics (%d anomalies), %d risk assessments\n",
		r.Ticker, r.AccessionNumber, r.Chunks, r.Indexed, r.Metrics, r.Anomalies, r.Assessments)
	if r.WholeDocumentFallback {
		cmd.Println("  note: no section markers found, chunked as whole document")
	}
	if r.Discarded > 0 {
		cmd.Printf("  discarded: %d model outputs failed validation\n", r.Discarded)
	}
	for _, f := range r.Failures {
		cmd.Printf("  failure [%s] %s: %s\n", f.Stage, f.Item, f.Reason)
	}
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/filing-intel/internal/core/domain"
)

var (
	companyTicker string
	companyName   string
	companySIC    string
	companiesJSON bool
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Manage the company registry",
	Long: `Lists and registers companies. Ingestion registers companies
automatically from filing metadata; "companies add" pre-registers one
by hand.`,
	RunE: runCompaniesList,
}

var companiesAddCmd = &cobra.Command{
	Use:   "add [cik]",
	Short: "Register a company by CIK",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompaniesAdd,
}

func init() {
	companiesCmd.Flags().BoolVar(&companiesJSON, "json", false, "output as JSON")
	companiesAddCmd.Flags().StringVar(&companyTicker, "ticker", "", "company ticker symbol")
	companiesAddCmd.Flags().StringVar(&companyName, "name", "", "company name")
	companiesAddCmd.Flags().StringVar(&companySIC, "sic", "", "SIC industry code")
	companiesCmd.AddCommand(companiesAddCmd)
	rootCmd.AddCommand(companiesCmd)
}

func runCompaniesList(cmd *cobra.Command, _ []string) error {
	if companyStore == nil {
		return errors.New("company store not configured")
	}

	companies, err := companyStore.ListCompanies(cmd.Context())
	if err != nil {
		return fmt.Errorf("list companies failed: %w", err)
	}

	if companiesJSON {
		data, err := json.MarshalIndent(companies, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal companies: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(companies) == 0 {
		cmd.Println("No companies registered.")
		return nil
	}

	for _, c := range companies {
		cmd.Printf("%-12s %-8s %-12s %s\n", c.CIK, c.Ticker, c.Sector, c.Name)
	}
	return nil
}

func runCompaniesAdd(cmd *cobra.Command, args []string) error {
	if companyStore == nil {
		return errors.New("company store not configured")
	}

	company := domain.Company{
		CIK:     args[0],
		Ticker:  companyTicker,
		Name:    companyName,
		SICCode: companySIC,
		Sector:  domain.SectorFromSIC(companySIC),
		Active:  true,
	}
	if err := companyStore.UpsertCompany(cmd.Context(), company); err != nil {
		return fmt.Errorf("add company failed: %w", err)
	}

	cmd.Printf("Registered %s (%s)\n", company.CIK, company.Ticker)
	return nil
}

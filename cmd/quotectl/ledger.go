package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rushabh-runwal/ai-quote-generator/internal/config"
	csvledger "github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/ledger/csv"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/ledger/xlsx"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Quote ledger commands",
}

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the CSV ledger as an Excel workbook",
	RunE:  runLedgerExport,
}

func init() {
	ledgerExportCmd.Flags().String("ledger", "", "CSV ledger file (default: from service configuration)")
	ledgerExportCmd.Flags().StringP("out", "o", "quote_records.xlsx", "output workbook")
	ledgerCmd.AddCommand(ledgerExportCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func runLedgerExport(cmd *cobra.Command, _ []string) error {
	ledgerPath, _ := cmd.Flags().GetString("ledger")
	out, _ := cmd.Flags().GetString("out")
	if ledgerPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ledgerPath = cfg.Storage.LedgerFile
		if !filepath.IsAbs(ledgerPath) {
			ledgerPath = filepath.Join(cfg.Storage.Path, ledgerPath)
		}
	}

	ledger, err := csvledger.New(ledgerPath)
	if err != nil {
		return err
	}
	records, err := ledger.Records(cmd.Context())
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := xlsx.NewExporter().Export(records, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}
	cmd.Printf("exported %d records to %s\n", len(records), out)
	return nil
}

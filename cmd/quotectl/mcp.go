package main

import (
	"github.com/spf13/cobra"

	mcpadapter "github.com/rushabh-runwal/ai-quote-generator/internal/adapters/mcp"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/pricing"
	"github.com/rushabh-runwal/ai-quote-generator/internal/observability/logging"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pricing tools over stdio",
	Long: `Start a Model Context Protocol server on stdio exposing the
compute_quote and list_catalog tools. Quotes are priced but never stored.`,
	RunE: runMCPServe,
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(_ *cobra.Command, _ []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	// stdout carries the protocol, so logs stay off.
	srv := mcpadapter.NewServer(pricing.NewCalculator(cat), cat, cat.BaseTaxRate(), version, logging.NewNop())
	return srv.ServeStdio()
}

package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/rushabh-runwal/ai-quote-generator/internal/config"
	"github.com/rushabh-runwal/ai-quote-generator/internal/infrastructure/catalog"
)

var version = "dev"

var catalogPath string

var rootCmd = &cobra.Command{
	Use:   "quotectl",
	Short: "Operate the legal services quote generator",
	Long: `quotectl prices quotes offline, prints the service catalog, exports the
quote ledger and serves the pricing tools over MCP.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("quotectl version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "catalog YAML file (default: embedded catalog)")
	rootCmd.AddCommand(versionCmd)
}

func loadCatalog() (*catalog.Catalog, error) {
	if catalogPath != "" {
		return catalog.Load(catalogPath)
	}
	// Fall back to the service configuration when it names a catalog.
	if cfg, err := config.Load(); err == nil && cfg.Catalog.Path != "" {
		return catalog.Load(cfg.Catalog.Path)
	}
	return catalog.Default()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

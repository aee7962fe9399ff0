package main

import (
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the service catalog and state tax table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), cat.View())
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}

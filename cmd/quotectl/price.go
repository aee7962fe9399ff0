package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
	"github.com/rushabh-runwal/ai-quote-generator/internal/core/pricing"
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Compute a quote without storing it",
	Long: `Compute a quote for the given services and state and print it as JSON.

Examples:
  quotectl price --services business_formation,contract_review --state CA \
    --name "Jane Doe" --email jane@example.com`,
	RunE: runPrice,
}

func init() {
	priceCmd.Flags().StringSlice("services", nil, "service identifiers (comma separated)")
	priceCmd.Flags().String("state", "", "two-letter state code or OTHER")
	priceCmd.Flags().String("name", "", "client name")
	priceCmd.Flags().String("email", "", "client email")
	priceCmd.Flags().String("phone", "", "client phone")
	_ = priceCmd.MarkFlagRequired("services")
	_ = priceCmd.MarkFlagRequired("state")
	_ = priceCmd.MarkFlagRequired("name")
	_ = priceCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(priceCmd)
}

func runPrice(cmd *cobra.Command, _ []string) error {
	services, err := cmd.Flags().GetStringSlice("services")
	if err != nil {
		return fmt.Errorf("getting services flag: %w", err)
	}
	state, _ := cmd.Flags().GetString("state")
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	phone, _ := cmd.Flags().GetString("phone")

	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	quote, err := pricing.NewCalculator(cat).Compute(services, state, domain.ClientInfo{
		Name:  name,
		Email: email,
		Phone: phone,
	}, false)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), quote)
}

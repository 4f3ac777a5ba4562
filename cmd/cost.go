package cmd

import (
	"fmt"
	"strings"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var costCmd = &cobra.Command{
	Use:   "cost [shop-id] [price]",
	Short: "Estimate landed cost of a price at a shop",
	Args:  cobra.ExactArgs(2),
	RunE:  runCost,
}

func init() {
	costCmd.Flags().String("category", "", "Item category (selects the duty rate)")
	costCmd.Flags().String("currency", "", "Price currency (default: the shop currency)")
	costCmd.Flags().String("format", "table", "Output format: json, table")
	rootCmd.AddCommand(costCmd)
}

func runCost(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	price, err := decimal.NewFromString(strings.ReplaceAll(args[1], ",", "."))
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", args[1], err)
	}
	category, _ := cmd.Flags().GetString("category")
	currency, _ := cmd.Flags().GetString("currency")
	format, _ := cmd.Flags().GetString("format")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	shop, ok := a.registry.Config(args[0])
	if !ok {
		return fmt.Errorf("unknown shop %q", args[0])
	}
	if currency == "" {
		currency = shop.Currency
	}
	breakdown, err := a.calc.Calculate(ctx, models.ProductResult{
		ShopID:   shop.ID,
		Price:    price,
		Currency: strings.ToUpper(currency),
		Category: category,
	}, shop)
	if err != nil {
		return fmt.Errorf("cost failed: %w", err)
	}

	if format == "json" {
		return printJSON(cmd.OutOrStdout(), breakdown)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s, %s)\n", shop.DisplayName, shop.Region, shop.Currency)
	fmt.Fprintf(out, "  Price:    %s\n", formatPrice(price, currency))
	fmt.Fprintf(out, "  Shipping: %s\n", formatPrice(breakdown.Shipping, currency))
	fmt.Fprintf(out, "  Duty:     %s\n", formatPrice(breakdown.Duty, currency))
	fmt.Fprintf(out, "  VAT:      %s\n", formatPrice(breakdown.VAT, currency))
	fmt.Fprintf(out, "  Total:    %s\n", formatPrice(breakdown.Total, currency))
	if breakdown.HomeCurrency != strings.ToUpper(currency) {
		fmt.Fprintf(out, "  Landed:   %s\n", formatPrice(breakdown.TotalHome, breakdown.HomeCurrency))
	}
	return nil
}

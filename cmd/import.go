package cmd

import (
	"fmt"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"github.com/andreasragnarsson/fashion-finder/internal/ui"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [shop-id]",
	Short: "Re-import the full catalog of a feed-backed shop",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().String("format", "summary", "Output format: json, summary")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	adapter, err := a.registry.Adapter(args[0])
	if err != nil {
		return err
	}
	if adapter.Kind() != platform.KindFeed {
		return fmt.Errorf("shop %s is a %s adapter; only feed shops support bulk import", args[0], adapter.Kind())
	}

	spin := ui.NewSpinner()
	spin.Start(fmt.Sprintf("Importing %s catalog...", args[0]))
	ctx := platform.WithProgress(cmd.Context(), spin.Progress())
	products, err := platform.Guard(func() platform.Result[[]models.ProductResult] {
		return adapter.BulkImport(ctx)
	}).Unwrap()
	spin.Stop()
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if format == "json" {
		return printJSON(cmd.OutOrStdout(), products)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d products from %s\n", len(products), args[0])
	return nil
}

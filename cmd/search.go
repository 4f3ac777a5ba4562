package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"github.com/andreasragnarsson/fashion-finder/internal/search"
	"github.com/andreasragnarsson/fashion-finder/internal/ui"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search products across shops",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	addQueryFlags(searchCmd)
	searchCmd.Flags().StringSlice("shop", nil, "Only query these shop ids (repeatable)")
	searchCmd.Flags().Bool("cost", false, "Attach landed cost (shipping, duty, VAT)")
	searchCmd.Flags().Int("limit", models.DefaultLimit, "Maximum results")
	searchCmd.Flags().String("format", "table", "Output format: json, table")
	rootCmd.AddCommand(searchCmd)
}

func addQueryFlags(c *cobra.Command) {
	c.Flags().String("category", "", "Category filter")
	c.Flags().String("brand", "", "Brand filter")
	c.Flags().String("color", "", "Colour filter")
	c.Flags().String("gender", "", "Gender: men, women, unisex, kids")
	c.Flags().String("size", "", "Size filter")
	c.Flags().String("min-price", "", "Minimum price")
	c.Flags().String("max-price", "", "Maximum price")
}

// queryFromFlags builds a SearchQuery from the shared filter flags.
func queryFromFlags(c *cobra.Command, text string, limit int) (models.SearchQuery, error) {
	q := models.SearchQuery{Query: text, Limit: limit}
	q.Category, _ = c.Flags().GetString("category")
	q.Brand, _ = c.Flags().GetString("brand")
	q.Color, _ = c.Flags().GetString("color")
	q.Gender, _ = c.Flags().GetString("gender")
	q.Size, _ = c.Flags().GetString("size")

	var err error
	if q.MinPrice, err = priceFlag(c, "min-price"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = priceFlag(c, "max-price"); err != nil {
		return q, err
	}
	return q, nil
}

func priceFlag(c *cobra.Command, name string) (*decimal.Decimal, error) {
	v, _ := c.Flags().GetString(name)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &d, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")
	withCost, _ := cmd.Flags().GetBool("cost")
	shopIDs, _ := cmd.Flags().GetStringSlice("shop")
	format, _ := cmd.Flags().GetString("format")

	query, err := queryFromFlags(cmd, text, limit)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	products := searchWithSpinner(ctx, a, fmt.Sprintf("Searching '%s'...", text), search.Request{
		Query:       query,
		Shops:       shopIDs,
		IncludeCost: withCost,
		Limit:       query.EffectiveLimit(),
	})

	switch format {
	case "json":
		return printJSON(cmd.OutOrStdout(), products)
	default:
		printProductsTable(cmd.OutOrStdout(), products)
	}
	return nil
}

func searchWithSpinner(ctx context.Context, a *app, msg string, req search.Request) []models.ProductResult {
	spin := ui.NewSpinner()
	spin.Start(msg)
	defer spin.Stop()
	return a.search.Search(platform.WithProgress(ctx, spin.Progress()), req)
}

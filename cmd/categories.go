package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/search"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories [query]",
	Short: "Show which categories, brands and shops answer a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCategories,
}

func init() {
	categoriesCmd.Flags().Int("limit", 100, "Number of products to sample")
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	products := searchWithSpinner(ctx, a, fmt.Sprintf("Sampling shops for '%s'...", text), search.Request{
		Query: models.SearchQuery{Query: text, Limit: limit},
		Limit: limit,
	})
	if len(products) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No products found.")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Results for \"%s\" (%d products sampled):\n", text, len(products))
	printFacet(out, "Categories", products, func(p models.ProductResult) string { return formatBreadcrumb(p.Category) })
	printFacet(out, "Brands", products, func(p models.ProductResult) string { return p.Brand })
	printFacet(out, "Shops", products, func(p models.ProductResult) string { return p.ShopID })
	return nil
}

type facetCount struct {
	value string
	count int
}

// countFacet tallies non-empty values, most frequent first, ties alphabetical.
func countFacet(products []models.ProductResult, key func(models.ProductResult) string) []facetCount {
	counts := make(map[string]int)
	for _, p := range products {
		if v := key(p); v != "" {
			counts[v]++
		}
	}
	entries := make([]facetCount, 0, len(counts))
	for v, n := range counts {
		entries = append(entries, facetCount{v, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].value < entries[j].value
	})
	return entries
}

func printFacet(w io.Writer, title string, products []models.ProductResult, key func(models.ProductResult) string) {
	entries := countFacet(products, key)
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for i, e := range entries {
		fmt.Fprintf(w, " %2d. %-50s  (%d products)\n", i+1, truncate(e.value, 50), e.count)
	}
}

// formatBreadcrumb converts "dam/jackor/parkas" to "Dam > Jackor > Parkas".
func formatBreadcrumb(s string) string {
	if s == "" {
		return ""
	}
	parts := strings.Split(s, "/")
	for i, p := range parts {
		words := strings.Split(p, "-")
		for j, w := range words {
			if r := []rune(w); len(r) > 0 {
				words[j] = strings.ToUpper(string(r[0])) + string(r[1:])
			}
		}
		parts[i] = strings.Join(words, " ")
	}
	return strings.Join(parts, " > ")
}

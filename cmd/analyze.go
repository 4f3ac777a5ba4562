package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/andreasragnarsson/fashion-finder/internal/search"
	"github.com/andreasragnarsson/fashion-finder/internal/ui"
	"github.com/andreasragnarsson/fashion-finder/internal/vision"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [image]",
	Short: "Identify outfit items in a photo and optionally search for them",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().Bool("search", false, "Search shops for every identified item")
	analyzeCmd.Flags().Int("limit", 5, "Results per item when searching")
	analyzeCmd.Flags().Float64("min-confidence", 0.5, "Skip items identified below this confidence")
	analyzeCmd.Flags().String("format", "table", "Output format: json, table")
	rootCmd.AddCommand(analyzeCmd)
}

type itemMatches struct {
	Item     vision.IdentifiedItem  `json:"item"`
	Query    string                 `json:"query"`
	Products []models.ProductResult `json:"products"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	doSearch, _ := cmd.Flags().GetBool("search")
	limit, _ := cmd.Flags().GetInt("limit")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
	format, _ := cmd.Flags().GetString("format")

	image, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	key := cfg.GeminiAPIKey
	if cfg.VisionProvider == "openai" {
		key = cfg.OpenAIAPIKey
	}
	analyzer, err := vision.New(ctx, cfg.VisionProvider, key, cfg.VisionModel)
	if err != nil {
		return err
	}

	spin := ui.NewSpinner()
	spin.Start("Analyzing outfit...")
	analysis, err := analyzer.Analyze(ctx, image, vision.MimeType(args[0]))
	spin.Stop()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	var matches []itemMatches
	if doSearch {
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		for _, item := range analysis.Items {
			if item.Confidence < minConfidence {
				continue
			}
			q := vision.ToSearchQuery(item, limit)
			products := searchWithSpinner(ctx, a, fmt.Sprintf("Searching '%s'...", q.Query), search.Request{
				Query: q, IncludeCost: true, Limit: limit,
			})
			matches = append(matches, itemMatches{Item: item, Query: q.Query, Products: products})
		}
	}

	if format == "json" {
		return printJSON(cmd.OutOrStdout(), struct {
			Analysis *vision.OutfitAnalysis `json:"analysis"`
			Matches  []itemMatches          `json:"matches,omitempty"`
		}{analysis, matches})
	}
	printAnalysis(cmd.OutOrStdout(), analysis)
	for _, m := range matches {
		fmt.Fprintf(cmd.OutOrStdout(), "\n== %s ==\n", m.Query)
		printProductsTable(cmd.OutOrStdout(), m.Products)
	}
	return nil
}

func printAnalysis(w io.Writer, a *vision.OutfitAnalysis) {
	fmt.Fprintf(w, "Style: %s", a.OverallStyle)
	if a.Occasion != "" {
		fmt.Fprintf(w, "  |  Occasion: %s", a.Occasion)
	}
	if a.Gender != "" {
		fmt.Fprintf(w, "  |  Gender: %s", a.Gender)
	}
	fmt.Fprintln(w)
	for i, it := range a.Items {
		fmt.Fprintf(w, " %d. %s (%.0f%%)  %s\n", i+1, it.ItemType, it.Confidence*100, it.Description)
		if q := vision.GenerateSearchQuery(it); q != "" {
			fmt.Fprintf(w, "    query: %s\n", q)
		}
	}
}

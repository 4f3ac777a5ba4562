package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/andreasragnarsson/fashion-finder/internal/models"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage watched products",
}

var watchAddCmd = &cobra.Command{
	Use:   "add [shop-id] [product-id]",
	Short: "Watch a product for price drops",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatchAdd,
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the watches of a user",
	Args:  cobra.NoArgs,
	RunE:  runWatchList,
}

var watchRemoveCmd = &cobra.Command{
	Use:   "remove [watch-id]",
	Short: "Stop watching a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchRemove,
}

func init() {
	watchAddCmd.Flags().String("email", "", "Notification address")
	watchAddCmd.Flags().String("target", "", "Notify when the price reaches this value")
	watchAddCmd.Flags().Bool("any-drop", false, "Notify on any price drop")
	watchAddCmd.Flags().Bool("back-in-stock", false, "Notify when the product returns to stock")
	_ = watchAddCmd.MarkFlagRequired("email")

	watchListCmd.Flags().String("email", "", "Watch owner")
	watchListCmd.Flags().String("format", "table", "Output format: json, table")
	_ = watchListCmd.MarkFlagRequired("email")

	watchCmd.AddCommand(watchAddCmd, watchListCmd, watchRemoveCmd)
	rootCmd.AddCommand(watchCmd)
}

func runWatchAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email, _ := cmd.Flags().GetString("email")
	anyDrop, _ := cmd.Flags().GetBool("any-drop")
	backInStock, _ := cmd.Flags().GetBool("back-in-stock")
	target, err := priceFlag(cmd, "target")
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.search.Detail(ctx, args[0], args[1], false)
	if err != nil {
		return fmt.Errorf("product lookup failed: %w", err)
	}
	st, err := a.store(ctx)
	if err != nil {
		return err
	}

	entry := &models.WatchEntry{
		UserEmail:         email,
		ShopID:            p.ShopID,
		ProductID:         p.ExternalID,
		ProductName:       p.Name,
		ProductURL:        p.ProductURL,
		Currency:          p.Currency,
		PriceAtAdd:        p.Price,
		TargetPrice:       target,
		NotifyAnyDrop:     anyDrop,
		NotifyBackInStock: backInStock,
		InStock:           p.InStock,
		Active:            true,
	}
	if err := st.Add(ctx, entry); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s at %s (id %s)\n", p.Name, formatPrice(p.Price, p.Currency), entry.ID)
	return nil
}

func runWatchList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	email, _ := cmd.Flags().GetString("email")
	format, _ := cmd.Flags().GetString("format")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	st, err := a.store(ctx)
	if err != nil {
		return err
	}
	entries, err := st.ListByUser(ctx, email)
	if err != nil {
		return err
	}

	if format == "json" {
		return printJSON(cmd.OutOrStdout(), entries)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSHOP\tPRODUCT\tADDED\tCURRENT\tLOWEST\tTARGET\tACTIVE")
	for _, e := range entries {
		target := "-"
		if e.TargetPrice != nil {
			target = e.TargetPrice.StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			e.ID, e.ShopID, truncate(e.ProductName, 40),
			e.PriceAtAdd.StringFixed(2), e.CurrentPrice.StringFixed(2), e.LowestPriceSeen.StringFixed(2), target, e.Active)
	}
	return tw.Flush()
}

func runWatchRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	st, err := a.store(ctx)
	if err != nil {
		return err
	}
	if err := st.Deactivate(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watch %s deactivated\n", args[0])
	return nil
}

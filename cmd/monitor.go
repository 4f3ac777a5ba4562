package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/andreasragnarsson/fashion-finder/internal/monitor"
	"github.com/andreasragnarsson/fashion-finder/internal/platform"
	"github.com/andreasragnarsson/fashion-finder/internal/ui"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Check watched prices and send notifications",
	Args:  cobra.NoArgs,
	RunE:  runMonitor,
}

func init() {
	monitorCmd.Flags().Duration("every", 0, "Repeat the check at this interval (0 runs once)")
	monitorCmd.Flags().String("format", "table", "Output format: json, table")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	every, _ := cmd.Flags().GetDuration("every")
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
	m := a.monitor(st)

	for {
		spin := ui.NewSpinner()
		spin.Start("Checking watched prices...")
		report, err := m.Run(platform.WithProgress(ctx, spin.Progress()))
		spin.Stop()
		if err != nil {
			return fmt.Errorf("monitor failed: %w", err)
		}
		if format == "json" {
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
		} else {
			printReport(cmd.OutOrStdout(), report)
		}

		if every <= 0 {
			return nil
		}
		logx.Info().Dur("every", every).Msg("next check scheduled")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(every):
		}
	}
}

func printReport(w io.Writer, r *monitor.Report) {
	fmt.Fprintf(w, "Checked %d watches, %d failed, %d notifications\n", r.Checked, r.Failed, len(r.Notifications))
	for _, o := range r.Outcomes {
		change := "unchanged"
		switch {
		case o.Dropped:
			change = fmt.Sprintf("-%s%%", o.DropPercent.StringFixed(2))
		case o.DropAmount.IsNegative():
			change = "up " + o.DropAmount.Neg().StringFixed(2)
		}
		fmt.Fprintf(w, "  %s  %s/%s  %s -> %s  %s\n", o.WatchID, o.ShopID, o.ProductID,
			o.OldPrice.StringFixed(2), formatPrice(o.NewPrice, o.Currency), change)
	}
	for _, n := range r.Notifications {
		status := "sent " + n.Delivery.MessageID
		if n.Error != "" {
			status = "failed: " + n.Error
		}
		fmt.Fprintf(w, "  notify %s (%s) to %s: %s\n", n.WatchID, n.Kind, n.To, status)
	}
}

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var shopsCmd = &cobra.Command{
	Use:   "shops",
	Short: "List configured shops and skipped configurations",
	Args:  cobra.NoArgs,
	RunE:  runShops,
}

func init() {
	rootCmd.AddCommand(shopsCmd)
}

func runShops(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADAPTER\tREGION\tCURRENCY\tTRUST")
	for _, c := range a.registry.Configs() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\n",
			c.ID, c.DisplayName, a.registry.Implementation(c), c.Region, c.Currency, c.TrustScore)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if skipped := a.registry.Skipped(); len(skipped) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\nSkipped %d configuration(s):\n", len(skipped))
		for _, e := range skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %v\n", e)
		}
	}
	return nil
}

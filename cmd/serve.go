package cmd

import (
	"fmt"

	mcpserver "github.com/andreasragnarsson/fashion-finder/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP stdio server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting Fashion Finder MCP server on stdio...")
	if err := mcpserver.Serve(a.mcpDeps(cmd.Context())); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

package cmd

import (
	"fmt"

	mcpserver "github.com/andreasragnarsson/fashion-finder/mcp"
	"github.com/spf13/cobra"
)

var serveHTTPCmd = &cobra.Command{
	Use:   "serve-http",
	Short: "Start MCP HTTP server",
	Long:  "Start the MCP server over HTTP for remote access, with /healthz and /metrics.",
	RunE:  runServeHTTP,
}

func init() {
	serveHTTPCmd.Flags().String("port", "", "HTTP port (default from $PORT or 8080)")
	rootCmd.AddCommand(serveHTTPCmd)
}

func runServeHTTP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	port := cfg.HTTPPort
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		port = p
	}

	return mcpserver.ServeHTTP(ctx, a.mcpDeps(ctx), mcpserver.HTTPOptions{
		Addr:    fmt.Sprintf(":%s", port),
		APIKey:  cfg.APIKey,
		Metrics: a.metrics.Handler(),
	})
}

// Package main is the MCP entry point of the hospital recommender. It needs
// no external services: the bundled catalog is served over stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emergency-assist/hospital-recommender/internal/config"
	"github.com/emergency-assist/hospital-recommender/internal/mcp"
	"github.com/emergency-assist/hospital-recommender/internal/setup"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Hospital recommender MCP server (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
		SilenceUsage: true,
	}
	rootCmd.AddCommand(setup.NewCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadLiteConfig()

	server, err := mcp.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx)
}

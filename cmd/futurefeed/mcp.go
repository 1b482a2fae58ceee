// ABOUTME: MCP server command implementation for futurefeed.
// ABOUTME: Starts the MCP server in stdio mode so agents can read feeds and act on posts.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcppkg "github.com/2389-research/futurefeed/internal/mcp"
)

var mcpFindPages int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server (stdio mode)",
	Long: `Start the Model Context Protocol server for agent integration.

The server communicates over stdio and exposes feed reading, post
mutations, and follow management as tools.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().IntVar(&mcpFindPages, "find-pages", mcppkg.DefaultFindPages, "Pages to search when locating a post")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := mcppkg.NewServer(globalController, globalEngine, globalFollows, mcppkg.WithFindPages(mcpFindPages))
	if err != nil {
		return err
	}

	return server.Serve(ctx)
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/paritylens/paritylens/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis tools over MCP on stdin/stdout",
	Long: `Starts a Model Context Protocol server over stdio. An MCP client (for
example an AI assistant configured with this binary as a tool server) can
then call analyze_fairness, list_runs and get_run directly.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info("Starting ParityLens MCP server over stdio")
	srv := mcp.NewServer(Version, cfg, store, logger)
	return srv.Run(cmd.Context())
}

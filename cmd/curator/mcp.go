package main

import (
	"log"
	"os"

	"github.com/aretw0/curator/internal/cli"
	"github.com/aretw0/curator/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts curator as an MCP Server on Standard Input/Output.
Agents get a recommend tool plus history_lookup, inventory_lookup and rank.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, debug, err := setup(cmd)
		if err != nil {
			return err
		}
		logger, err := cli.NewLogger(cfg.LogLevel, debug)
		if err != nil {
			return err
		}

		rt, err := cli.NewRuntime(cmd.Context(), cfg, logger, cli.RuntimeOptions{Debug: debug})
		if err != nil {
			return err
		}
		defer rt.Close()

		srv := mcp.NewServer(rt.Engine, mcp.WithDefaults(cfg.Defaults.StoreID, cfg.Defaults.TopK))

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		logger.Info("Starting Curator MCP Server (Stdio)...")
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

package main

import (
	"github.com/aretw0/curator/internal/cli"
	"github.com/aretw0/curator/pkg/adapters/memory"
	"github.com/aretw0/curator/pkg/registry"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Describe the registry tools as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.PrintTools(cmd.OutOrStdout(), registry.New(memory.NewCatalog(nil, nil)))
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

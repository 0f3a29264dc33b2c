package main

import (
	"fmt"

	"github.com/aretw0/curator/internal/cli"
	"github.com/aretw0/curator/internal/presentation/graph"
	"github.com/aretw0/curator/internal/runtime"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the pipeline visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the pipeline stages and the fields each one reads and writes.`,
	Run: func(cmd *cobra.Command, args []string) {
		output := graph.GenerateMermaid(cli.GraphStages(runtime.DefaultPipeline()), nil)
		fmt.Fprint(cmd.OutOrStdout(), output)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

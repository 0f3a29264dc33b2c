package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/curator"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of curator",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "curator version %s\n", strings.TrimSpace(curator.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"

	"github.com/aretw0/curator/internal/cli"
	"github.com/aretw0/curator/internal/logging"
	"github.com/aretw0/curator/internal/validator"
	"github.com/aretw0/curator/pkg/ports"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the catalog data",
	Long:  `Reads every user and store from the configured backend and reports empty or duplicate ids and empty item names.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		cfg.Results.Kind = "none"
		cfg.Capability.Provider = "static"

		rt, err := cli.NewRuntime(cmd.Context(), cfg, logging.NewNop(), cli.RuntimeOptions{})
		if err != nil {
			return err
		}
		defer rt.Close()

		lister, ok := rt.Catalog.(ports.Lister)
		if !ok {
			return fmt.Errorf("the %s backend cannot list its records", cfg.Backend)
		}
		issues, err := validator.ValidateCatalog(cmd.Context(), lister)
		if err != nil {
			return err
		}
		for _, issue := range issues {
			fmt.Fprintln(cmd.OutOrStdout(), issue)
		}
		if len(issues) > 0 {
			return validator.Error(issues)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Catalog in %s is valid.\n", cfg.DataDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

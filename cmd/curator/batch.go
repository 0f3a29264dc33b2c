package main

import (
	"fmt"

	"github.com/aretw0/curator/internal/cli"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Run many recommendation requests concurrently",
	Long: `Reads a YAML or JSON list of requests (username, store_id, top_k, run_id) and prints
one JSON object per request, in input order. Exits 1 if any request failed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, debug, err := setup(cmd)
		if err != nil {
			return err
		}
		logger, err := cli.NewLogger(cfg.LogLevel, debug)
		if err != nil {
			return err
		}
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		save, _ := cmd.Flags().GetBool("save")
		if !save {
			cfg.Results.Kind = "none"
		}

		reqs, err := cli.LoadBatch(args[0], cfg.Defaults.StoreID, cfg.Defaults.TopK)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		rt, err := cli.NewRuntime(ctx, cfg, logger, cli.RuntimeOptions{Debug: debug})
		if err != nil {
			return err
		}
		defer rt.Close()

		results := rt.Engine.RecommendBatch(ctx, reqs, concurrency)
		failed, err := cli.WriteBatch(cmd.OutOrStdout(), results)
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d requests failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().IntP("concurrency", "c", 4, "Maximum runs in flight")
	batchCmd.Flags().Bool("save", false, "Persist each run to the configured result store")
}

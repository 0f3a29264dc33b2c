package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/curator"
	"github.com/aretw0/curator/internal/cli"
	"github.com/aretw0/curator/internal/config"
	"github.com/aretw0/curator/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Curator recommends store items from a user's purchase history",
	Long: `Curator runs a fixed pipeline: fetch the user's history, fetch the store's inventory,
ask a language model for candidates, then rank and truncate them to top-k.`,
	SilenceUsage: true,
	RunE:         runRecommend,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.String("config", config.DefaultPath, "Path to the YAML configuration file")
	pf.String("data-dir", "", "Directory holding the catalog data")
	pf.String("backend", "", "Catalog backend: file, sqlite, loam or memory")
	pf.String("provider", "", "Capability provider: ollama, openai, process or static")
	pf.String("model", "", "Model name for the capability provider")
	pf.Bool("debug", false, "Log every stage and tool event to stderr")

	f := rootCmd.Flags()
	f.StringP("username", "u", "", "User to recommend for")
	f.StringP("store", "s", "", "Store to recommend from (default from config, ABC)")
	f.IntP("top-k", "k", 0, "Maximum number of items (default from config, 3)")
	f.Bool("json", false, "Print the final state as JSON")
	f.Bool("explain", false, "Print a markdown report of the run")
	f.Bool("save", false, "Persist the run to the configured result store")
	_ = rootCmd.MarkFlagRequired("username")
}

// loadConfig reads the config file and environment, then applies command-line overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	override := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	override("data-dir", &cfg.DataDir)
	override("backend", &cfg.Backend)
	override("provider", &cfg.Capability.Provider)
	override("model", &cfg.Capability.Model)
	return cfg, cfg.Validate()
}

// setup loads the configuration and builds the logger every command starts from.
func setup(cmd *cobra.Command) (config.Config, bool, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, false, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	return cfg, debug, nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	cfg, debug, err := setup(cmd)
	if err != nil {
		return err
	}
	logger, err := cli.NewLogger(cfg.LogLevel, debug)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	username, _ := flags.GetString("username")
	jsonMode, _ := flags.GetBool("json")
	explain, _ := flags.GetBool("explain")
	save, _ := flags.GetBool("save")

	req := curator.Request{
		RunID:    curator.NewRunID(),
		Username: username,
		StoreID:  cfg.Defaults.StoreID,
		TopK:     cfg.Defaults.TopK,
	}
	if flags.Changed("store") {
		req.StoreID, _ = flags.GetString("store")
	}
	if flags.Changed("top-k") {
		req.TopK, _ = flags.GetInt("top-k")
	}
	if !save {
		cfg.Results.Kind = "none"
	} else if cfg.Results.Kind == "none" {
		return fmt.Errorf("--save needs a result store (results.kind is %q)", cfg.Results.Kind)
	}

	ctx := cli.NewSignalContext(cmd.Context())
	defer ctx.Cancel()

	rt, err := cli.NewRuntime(ctx, cfg, logger, cli.RuntimeOptions{Debug: debug, Explain: explain})
	if err != nil {
		return err
	}
	defer rt.Close()

	state, err := rt.Engine.Run(ctx, req)
	if err != nil {
		if sig := ctx.Signal(); sig != nil {
			cli.PrintSystemMessage(cmd.ErrOrStderr(), "Interrupted by %v.", sig)
		}
		return cli.HandleExecutionError(err)
	}

	out := cmd.OutOrStdout()
	switch {
	case jsonMode:
		if err := cli.PrintJSON(out, req.RunID, state); err != nil {
			return err
		}
	case explain:
		report := cli.Explain(req.RunID, state, rt.Trace.Stages(req.RunID), rt.Engine.Pipeline())
		writeMarkdown(out, report)
	default:
		cli.PrintResult(out, state.Result())
	}

	if save {
		cli.PrintSystemMessage(cmd.ErrOrStderr(), "Saved run %s (%s store).", req.RunID, cfg.Results.Kind)
	}
	return nil
}

// writeMarkdown renders md with glamour when w is a terminal.
func writeMarkdown(w io.Writer, md string) {
	if f, ok := w.(*os.File); ok {
		fmt.Fprint(w, tui.RenderFor(f, md))
		return
	}
	fmt.Fprint(w, md)
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aleister1102/releasewatcher/internal/config"
	"github.com/aleister1102/releasewatcher/internal/logger"
	"github.com/aleister1102/releasewatcher/internal/orchestrator"
	"github.com/aleister1102/releasewatcher/internal/output"
	"github.com/aleister1102/releasewatcher/internal/scheduler"
	"github.com/aleister1102/releasewatcher/internal/source"
	"github.com/aleister1102/releasewatcher/internal/watcher"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var flags AppFlags

	rootCmd := &cobra.Command{
		Use:           "releasewatcher",
		Short:         "Watch upstream releases and report the ones you missed",
		Long:          "releasewatcher compares the versions you run with the releases published upstream and reports what you missed.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, flags)
		},
	}
	flags.register(rootCmd.Flags())

	rootCmd.AddCommand(newTypesCmd())
	return rootCmd
}

func run(cmd *cobra.Command, flags AppFlags) error {
	ctx := cmd.Context()
	bootstrap := logger.Bootstrap(os.Stderr)

	cfg, err := config.LoadGlobalConfig(flags.ConfigFile, bootstrap)
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	if err := flags.apply(cfg); err != nil {
		return err
	}

	log, err := logger.New(cfg.Logger, cfg.ConfigFileDir)
	if err != nil {
		return fmt.Errorf("could not initialize logger: %w", err)
	}
	log.Info().
		Str("run_mode", cfg.Core.RunMode).
		Int("threads", cfg.Core.Threads).
		Str("config_dir", cfg.ConfigFileDir).
		Msg("Release watcher starting")

	orch, err := orchestrator.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := orch.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to release outputs")
		}
	}()

	if err := scheduler.NewScheduler(cfg.Core, orch, log).Start(ctx); err != nil {
		return err
	}
	log.Info().Msg("Release watcher stopped")
	return nil
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered source, watcher and output types",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printTypes(cmd.OutOrStdout())
		},
	}
}

func printTypes(w io.Writer) {
	sections := []struct {
		title string
		names []string
	}{
		{title: "Sources", names: source.NewDefaultRegistry().Names()},
		{title: "Watchers", names: watcher.NewDefaultRegistry().Names()},
		{title: "Outputs", names: output.NewDefaultRegistry().Names()},
	}
	for i, section := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s:\n", section.title)
		for _, name := range section.names {
			fmt.Fprintf(w, "  - %s\n", name)
		}
	}
}

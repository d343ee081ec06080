package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the preview and report derivation worker",
		Long: `Runs the derivation worker on its own, for deployments that keep it out
of the API process. With --once, reclaims stale claims, runs a single sweep
and exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd, configPath, once)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Vibeyard config file")
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep and exit")
	return cmd
}

func runWorker(cmd *cobra.Command, configPath string, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, configPath)
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	w, err := rt.newWorker()
	if err != nil {
		return err
	}

	if !once {
		fmt.Fprintln(cmd.OutOrStdout(), "Derivation worker started (Ctrl-C to stop)")
		return w.Run(ctx)
	}

	reclaimed, err := w.Reclaim(ctx)
	if err != nil {
		return err
	}
	processed, err := w.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reclaimed %d stale item(s), processed %d item(s)\n", reclaimed, processed)
	return nil
}

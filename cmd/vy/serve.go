package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/vibeyard/internal/config"
	"github.com/zulandar/vibeyard/internal/generate"
	"github.com/zulandar/vibeyard/internal/logger"
	"github.com/zulandar/vibeyard/internal/notify"
	"github.com/zulandar/vibeyard/internal/server"
	"github.com/zulandar/vibeyard/internal/studio"
	"github.com/zulandar/vibeyard/internal/worker"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noWorker   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the HTTP API. Unless worker.enabled is false or --no-worker is
given, the derivation worker runs in the same process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noWorker)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Vibeyard config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "do not run the derivation worker in this process")
	return cmd
}

// runtime is the wiring shared by serve and worker.
type runtime struct {
	cfg      *config.Config
	db       *gorm.DB
	log      *logger.Logger
	notifier notify.Notifier
	pipeline *generate.Pipeline
}

func newRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, gormDB, err := connectFromConfig(ctx, configPath)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	notifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("notify: %w", err)
	}
	client := generate.NewClient(cfg.Generation.Timeout)
	return &runtime{
		cfg:      cfg,
		db:       gormDB,
		log:      log,
		notifier: notifier,
		pipeline: generate.NewPipeline(gormDB, client, log),
	}, nil
}

func (rt *runtime) newWorker() (*worker.Worker, error) {
	opts := worker.OptionsFromConfig(rt.cfg)
	opts.DB = rt.db
	opts.Generator = rt.pipeline
	opts.Notifier = rt.notifier
	opts.Log = rt.log
	return worker.New(opts)
}

func runServe(cmd *cobra.Command, configPath string, port int, noWorker bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	rt, err := newRuntime(ctx, configPath)
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	if port > 0 {
		rt.cfg.Server.Port = port
	}

	workerDone := make(chan struct{})
	if rt.cfg.WorkerEnabled() && !noWorker {
		w, err := rt.newWorker()
		if err != nil {
			return err
		}
		go func() {
			defer close(workerDone)
			if err := w.Run(ctx); err != nil {
				rt.log.Error("worker exited", "error", err)
			}
		}()
		fmt.Fprintln(cmd.OutOrStdout(), "Derivation worker running in-process")
	} else {
		close(workerDone)
	}

	lang := rt.cfg.Generation.Language
	err = server.Start(ctx, server.StartOpts{
		Deps: server.Deps{
			DB:       rt.db,
			Studio:   studio.New(rt.db, rt.pipeline, rt.log, lang),
			Reporter: rt.pipeline,
			Notifier: rt.notifier,
			Log:      rt.log,
			Lang:     lang,
		},
		Port: rt.cfg.Server.Port,
		Out:  cmd.OutOrStdout(),
	})
	cancel()
	<-workerDone
	return err
}

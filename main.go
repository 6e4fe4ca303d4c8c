package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/vehicle-search/internal/app"
	"github.com/yourorg/vehicle-search/internal/config"
	"github.com/yourorg/vehicle-search/internal/indexer"
	"github.com/yourorg/vehicle-search/internal/logging"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:          "vehicle-search",
		Short:        "Keeps the vehicle search index in step with the catalog",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfgPath)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", config.Get("CONFIG_PATH", ""), "path to a YAML config file")
	return cmd
}

func run(parent context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return err
	}
	logger, logCloser := logging.Setup(cfg.Log)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := app.Build(ctx, cfg, logger, app.WithTransport())
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer func() {
		if err := comps.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()
	comps.ConfigureIndex(ctx)

	coord := indexer.New(comps.Subscriber, comps.Syncer, cfg.Transport.Topics, indexer.Options{
		Workers:         cfg.Indexer.Workers,
		HandlerTimeout:  cfg.Indexer.HandlerTimeout,
		ShutdownTimeout: cfg.Indexer.ShutdownTimeout,
		Logger:          logger,
	})
	sweeper := comps.Sweeper()

	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: BuildRouter(cfg.HTTP, RouterDeps{
			Searcher:    comps.Searcher(),
			Syncer:      comps.Syncer,
			Sweeper:     sweeper,
			Coordinator: coord,
			Publisher:   comps.Publisher,
			Topics:      cfg.Transport.Topics,
			Background:  gctx,
			Logger:      logger,
		}),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	g.Go(func() error { return coord.Run(gctx) })
	if cfg.Reindex.Enabled {
		g.Go(func() error { return sweeper.Run(gctx) })
	}
	g.Go(func() error {
		logger.Info("vehicle-search listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Indexer.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("vehicle-search stopped", "error", err)
		return err
	}
	logger.Info("vehicle-search stopped")
	return nil
}

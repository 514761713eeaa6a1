package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/compresr/chat-adapter/internal/config"
	"github.com/compresr/chat-adapter/internal/gateway"
)

// shutdownTimeout bounds draining in-flight exchanges on SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

var noWatchFlag bool

func init() {
	serveCmd.Flags().BoolVar(&noWatchFlag, "no-watch", false, "do not reload the config file on change")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway for chat UIs",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, src, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg, false)

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.tracker.Close()

	logger.Info().
		Str("version", Version).
		Str("config", src.label).
		Int("port", cfg.Server.Port).
		Str("endpoint", cfg.Adapter.EndpointURL()).
		Strs("models", cfg.Adapter.ModelList()).
		Msg("chat adapter starting")

	gw := gateway.New(a.store, a.adapter, logger, a.alerts)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(gw.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return gw.Shutdown(shutdownCtx)
	})
	if src.path != "" && !noWatchFlag {
		g.Go(func() error {
			return config.Watch(gctx, src.path, a.store)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("chat adapter stopped")
	return nil
}

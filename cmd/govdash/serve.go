package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"govdash/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the browser dashboard, metrics endpoint, and ratio monitor",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dash := a.Dashboard()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return dash.Serve(ctx, cfg.Dashboard.ListenAddr)
	})
	g.Go(func() error {
		return dash.ForwardReadings(ctx)
	})
	if cfg.App.MetricsAddr != "" {
		g.Go(func() error {
			srv := metrics.Serve(cfg.App.MetricsAddr)
			log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}
	if a.Monitor != nil {
		g.Go(func() error {
			return a.Monitor.Run(ctx)
		})
	}

	log.Info().
		Str("horizon", cfg.Network.HorizonURL).
		Str("rpc", cfg.Network.RPCURL).
		Str("xasset", cfg.Contracts.XAsset).
		Str("governance", cfg.Contracts.Governance).
		Msg("govdash started")

	err = g.Wait()
	log.Info().Msg("shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

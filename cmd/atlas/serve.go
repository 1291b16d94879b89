package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"atlas/internal/adapters/httpapi"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API. State changes are streamed on /api/v1/events,
Prometheus metrics are served on /metrics. When redis.url is set, changes are
shared with other atlas processes using the same storage.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, flags, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides http.addr)")
	return cmd
}

func runServe(ctx context.Context, flags *globalFlags, addr string) error {
	a, err := openApp(ctx, flags, appOptions{metrics: true, labels: true})
	if err != nil {
		return err
	}
	defer a.Close()
	if addr == "" {
		addr = a.cfg.HTTP.Addr
	}

	api, err := httpapi.New(a.svc,
		httpapi.WithLogger(a.logger.Named("http")),
		httpapi.WithScanner(a.scanner),
		httpapi.WithRegistry(a.registry))
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	relay, err := a.relay(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if relay != nil {
		g.Go(func() error {
			a.logger.Info("relaying changes", zap.String("origin", relay.Origin()))
			return relay.Run(gctx)
		})
	}
	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	server "listing_sync/internal/adapters/http_server"
	"listing_sync/internal/adapters/observability"
	"listing_sync/internal/app"
	"listing_sync/internal/shared"
)

func main() {
	cfg, err := shared.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	deps, err := shared.Wire(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("wiring failed")
	}
	defer deps.Close()

	sched := app.NewScheduler(deps.Sync, cfg.SyncInterval)

	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Q: deps.Query, Runner: sched, Ctx: ctx})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return sched.Loop(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// let a triggered run finish recording before the ledger is closed
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if werr := sched.Wait(drainCtx); werr != nil {
		log.Warn().Err(werr).Msg("sync still running at shutdown")
	}
	cancel()

	if err != nil {
		log.Error().Err(err).Msg("api stopped with error")
		deps.Close()
		os.Exit(1)
	}
	log.Info().Msg("api stopped")
}

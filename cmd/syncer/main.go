package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"listing_sync/internal/adapters/observability"
	"listing_sync/internal/shared"
)

const (
	exitConfig  = 1
	exitPartial = 2
)

// exitError carries a process exit code out of cobra's RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func main() {
	var (
		envFiles     []string
		allowPartial bool
	)

	root := &cobra.Command{
		Use:           "syncer",
		Short:         "Sync AppFolio listings into the HubDB listing tables once and exit",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), envFiles, allowPartial)
		},
	}
	root.Flags().StringSliceVar(&envFiles, "env-file", nil, "env file(s) to load before reading the environment (default ./.env if present)")
	root.Flags().BoolVar(&allowPartial, "allow-partial", false, "exit 0 even when some listings failed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		code := exitConfig
		if ee, ok := err.(*exitError); ok {
			code = ee.code
		}
		fmt.Fprintln(os.Stderr, "syncer:", err)
		stop()
		os.Exit(code)
	}
}

func run(ctx context.Context, envFiles []string, allowPartial bool) error {
	cfg, err := shared.Load(envFiles...)
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}

	// console in dev, JSON otherwise
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	deps, err := shared.Wire(ctx, cfg)
	if err != nil {
		return &exitError{code: exitConfig, err: err}
	}
	defer deps.Close()

	log.Info().
		Str("internal_table", cfg.InternalTableID).
		Str("public_table", cfg.PublicTableID).
		Msg("sync starting")

	report := deps.Sync.SyncOnce(ctx)

	if err := observability.Push(cfg.PushgatewayURL, "listing_sync", reg); err != nil {
		log.Warn().Err(err).Msg("pushgateway push failed")
	}

	if report.HasFailures() && !allowPartial {
		return &exitError{code: exitPartial, err: fmt.Errorf("run %s finished with %d failed listings", report.ID, len(report.Failed))}
	}
	return nil
}

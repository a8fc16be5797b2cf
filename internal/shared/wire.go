package shared

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"listing_sync/internal/adapters/appfolio"
	"listing_sync/internal/adapters/hubdb"
	"listing_sync/internal/adapters/observability"
	redisad "listing_sync/internal/adapters/redis"
	"listing_sync/internal/app"
	"listing_sync/internal/domain"
	mysqlrepo "listing_sync/internal/storage/mysql"
)

// Deps holds the wired services of one process and what must be closed on exit.
type Deps struct {
	Sync    *app.SyncService
	Query   *app.QueryService
	closers []func() error
}

func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

// Wire builds the source and destination clients and the optional ledger and
// cache. An unreachable ledger or cache is an error; an unset one is a no-op.
func Wire(ctx context.Context, cfg Config) (*Deps, error) {
	base := cfg.AppFolioBase
	if base == "" {
		base = appfolio.BaseURL(cfg.AppFolioDomain)
	}
	src, err := appfolio.New(base, cfg.AppFolioClientID, cfg.AppFolioSecret, cfg.SourceRPS, cfg.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("appfolio client: %w", err)
	}
	store, err := hubdb.New(cfg.HubDBBase, cfg.HubSpotKey, cfg.HubDBRPS, cfg.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("hubdb client: %w", err)
	}

	d := &Deps{}
	var (
		runs  domain.RunRepository = app.NopRuns{}
		cache domain.Cache         = app.NopCache{}
	)

	if cfg.MySQLDSN != "" {
		dsn, err := mysqlrepo.DSN(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Msg("run ledger connection ok")
		d.closers = append(d.closers, db.Close)
		runs = mysqlrepo.New(db)
	}

	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			d.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		d.closers = append(d.closers, rc.Close)
		cache = rc
	}

	rec := app.NewReconciler(src, store, cfg.Tables(), cfg.PhotoSlots)
	d.Sync = app.NewSyncService(rec, runs, cache, observability.ObserveRun)
	d.Query = app.NewQueryService(runs, cache, cfg.CacheTTL)
	return d, nil
}

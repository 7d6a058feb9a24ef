// Package app wires stores, clients and services from configuration.
package app

import (
	"context"
	"fmt"
	"io"

	"rift-stats-lab/internal/backfill"
	"rift-stats-lab/internal/cache"
	"rift-stats-lab/internal/config"
	"rift-stats-lab/internal/ingestion"
	"rift-stats-lab/internal/insight"
	"rift-stats-lab/internal/logger"
	"rift-stats-lab/internal/metrics"
	"rift-stats-lab/internal/orchestrator"
	"rift-stats-lab/internal/player"
	"rift-stats-lab/internal/riot"
	"rift-stats-lab/internal/storage"
	chstore "rift-stats-lab/internal/storage/clickhouse"
	"rift-stats-lab/internal/storage/memory"
	"rift-stats-lab/internal/storage/migrations"
	pgstore "rift-stats-lab/internal/storage/postgres"
)

// Stores holds the three persistent tables.
type Stores struct {
	Records    storage.MatchRecordStore
	Entries    storage.ParticipantIndexStore
	Aggregates storage.PlayerAggregateStore
}

// App holds every wired component.
type App struct {
	Stores       Stores
	Cache        cache.Cache
	Riot         *riot.Client // nil without an API key
	Backfill     *backfill.Runner
	Orchestrator *orchestrator.Orchestrator
	Pipeline     *ingestion.Pipeline
	Aggregator   *metrics.Aggregator
	Players      *player.Service
	Insight      insight.Generator
	Enricher     *insight.Enricher

	closers []func()
}

// New builds the application. Close must be called to release resources.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	log = logger.OrNop(log)
	a := &App{}

	stores, err := a.openStores(ctx, cfg, log)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Stores = *stores

	objects, err := a.openCache(cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Cache = objects

	if cfg.Riot.APIKey != "" {
		a.Riot = riot.NewClient(cfg.Riot.APIKey,
			riot.WithTimeout(cfg.Riot.Timeout),
			riot.WithMaxRetries(cfg.Riot.MaxRetries),
			riot.WithFallbackRegion(cfg.Riot.FallbackRegion),
			riot.WithFallbackPlatform(cfg.Riot.FallbackPlatform),
		)
	} else {
		log.Warn("RIOT_API_KEY not set, upstream tier disabled")
	}

	a.Backfill = backfill.NewRunner(backfill.Options{
		Workers:     cfg.Backfill.Workers,
		QueueSize:   cfg.Backfill.QueueSize,
		TaskTimeout: cfg.Backfill.TaskTimeout,
		Observer: func(name string, err error) {
			log.Warn("side task failed", "task", name, "error", err)
		},
		Logger: log,
	})

	if cfg.Insight.Endpoint != "" {
		a.Insight = insight.NewHTTPGenerator(cfg.Insight.Endpoint, cfg.Insight.Timeout)
	} else {
		a.Insight = insight.Nop{}
	}
	a.Enricher = insight.NewEnricher(insight.EnricherOptions{
		Generator:  a.Insight,
		Records:    a.Stores.Records,
		Entries:    a.Stores.Entries,
		Aggregates: a.Stores.Aggregates,
		Backfill:   a.Backfill,
		Logger:     log,
	})

	orchOpts := orchestrator.Options{
		Records:   a.Stores.Records,
		Cache:     a.Cache,
		Backfill:  a.Backfill,
		ObjectTTL: cfg.Cache.ObjectTTL,
		RecordTTL: cfg.Ingestion.RecordTTL,
		Logger:    log,
	}
	aggOpts := metrics.AggregatorOptions{
		Entries:    a.Stores.Entries,
		Aggregates: a.Stores.Aggregates,
		Region:     cfg.Riot.FallbackRegion,
		Logger:     log,
	}
	pipeOpts := ingestion.Options{
		Records:      a.Stores.Records,
		Entries:      a.Stores.Entries,
		DefaultCount: cfg.Ingestion.DefaultCount,
		Concurrency:  cfg.Ingestion.Concurrency,
		Lookback:     cfg.Ingestion.Lookback,
		RecordTTL:    cfg.Ingestion.RecordTTL,
		Logger:       log,
	}
	playerOpts := player.Options{
		Entries:    a.Stores.Entries,
		Aggregates: a.Stores.Aggregates,
		Logger:     log,
	}
	// Interface fields stay nil without a client.
	if a.Riot != nil {
		orchOpts.Upstream = a.Riot
		aggOpts.Identity = a.Riot
		pipeOpts.Lister = a.Riot
		playerOpts.Accounts = a.Riot
	}
	if cfg.Insight.Endpoint != "" {
		pipeOpts.Enricher = a.Enricher
	}

	a.Orchestrator = orchestrator.New(orchOpts)
	a.Aggregator = metrics.NewAggregator(aggOpts)

	pipeOpts.Resolver = a.Orchestrator
	pipeOpts.Aggregator = a.Aggregator
	a.Pipeline = ingestion.New(pipeOpts)

	playerOpts.Ingester = a.Pipeline
	playerOpts.Aggregator = a.Aggregator
	a.Players = player.NewService(playerOpts)

	return a, nil
}

// Close drains side tasks and releases connections in reverse open order.
func (a *App) Close(ctx context.Context) {
	if a.Backfill != nil {
		_ = a.Backfill.Close(ctx)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Stores, error) {
	if cfg.Storage.UseMemory {
		log.Info("using in-memory stores")
		return &Stores{
			Records:    memory.NewMatchRecordStore(),
			Entries:    memory.NewParticipantIndexStore(),
			Aggregates: memory.NewPlayerAggregateStore(),
		}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN, pgstore.WithMaxConns(cfg.Storage.PostgresMaxConns))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if cfg.Storage.AutoMigrate {
		applied, err := migrations.ApplyPostgres(ctx, pool)
		if err != nil {
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		log.Info("postgres migrations applied", "files", len(applied))
	}

	stores := &Stores{
		Records:    pgstore.NewMatchRecordStore(pool),
		Entries:    pgstore.NewParticipantIndexStore(pool),
		Aggregates: pgstore.NewPlayerAggregateStore(pool),
	}

	if cfg.Storage.ClickHouseDSN != "" {
		if cfg.Storage.AutoMigrate {
			if err := chstore.EnsureDatabase(ctx, cfg.Storage.ClickHouseDSN); err != nil {
				return nil, fmt.Errorf("clickhouse database: %w", err)
			}
		}
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		if cfg.Storage.AutoMigrate {
			if _, err := migrations.ApplyClickhouse(ctx, conn); err != nil {
				return nil, fmt.Errorf("clickhouse migrations: %w", err)
			}
		}
		stores.Entries = chstore.NewParticipantIndexStore(conn)
		log.Info("participant index served from clickhouse")
	}

	return stores, nil
}

func (a *App) openCache(cfg *config.Config) (cache.Cache, error) {
	var c cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.RedisPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		c = rc
	default:
		c = cache.NewMemoryCache(0)
	}
	if closer, ok := c.(io.Closer); ok {
		a.closers = append(a.closers, func() { _ = closer.Close() })
	}
	return c, nil
}

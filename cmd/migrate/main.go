package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"rift-stats-lab/internal/config"
	"rift-stats-lab/internal/logger"
	chstore "rift-stats-lab/internal/storage/clickhouse"
	"rift-stats-lab/internal/storage/migrations"
	pgstore "rift-stats-lab/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	postgresDSN := flag.String("postgres-dsn", cfg.Storage.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.Storage.ClickHouseDSN, "ClickHouse connection string (optional)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall migration timeout")
	flag.Parse()

	log, err := logger.New(cfg.App.LogMode(), cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *postgresDSN == "" {
		log.Fatal("--postgres-dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		log.Fatal("connect to postgres", "error", err)
	}
	defer pool.Close()

	applied, err := migrations.ApplyPostgres(ctx, pool)
	if err != nil {
		log.Fatal("postgres migrations failed", "error", err)
	}
	if len(applied) == 0 {
		log.Info("postgres schema up to date")
	}
	for _, name := range applied {
		log.Info("applied postgres migration", "file", name)
	}

	if *clickhouseDSN != "" {
		if err := chstore.EnsureDatabase(ctx, *clickhouseDSN); err != nil {
			log.Fatal("create clickhouse database", "error", err)
		}
		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			log.Fatal("connect to clickhouse", "error", err)
		}
		files, err := migrations.ApplyClickhouse(ctx, conn)
		_ = conn.Close()
		if err != nil {
			log.Fatal("clickhouse migrations failed", "error", err)
		}
		log.Info("clickhouse migrations applied", "files", len(files))
	}

	log.Info("migrations complete")
}

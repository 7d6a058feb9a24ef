// Package main runs the HTTP service: player lookups, ingestion,
// aggregation and tiered match resolution behind one router.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rift-stats-lab/internal/api"
	"rift-stats-lab/internal/app"
	"rift-stats-lab/internal/config"
	"rift-stats-lab/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Flags override env
	flag.BoolVar(&cfg.Storage.UseMemory, "use-memory", cfg.Storage.UseMemory, "Use in-memory storage instead of PostgreSQL")
	flag.StringVar(&cfg.Storage.PostgresDSN, "postgres-dsn", cfg.Storage.PostgresDSN, "PostgreSQL connection string")
	flag.StringVar(&cfg.Storage.ClickHouseDSN, "clickhouse-dsn", cfg.Storage.ClickHouseDSN, "ClickHouse connection string (optional participant index)")
	flag.IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "HTTP listen port")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.App.LogMode(), cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to wire application", "error", err)
	}

	router := api.NewRouter(api.Config{
		Players:     application.Players,
		Ingester:    application.Pipeline,
		Aggregator:  application.Aggregator,
		Entries:     application.Stores.Entries,
		Resolver:    application.Orchestrator,
		History:     application.Insight,
		Timelines:   application.Enricher,
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     cfg.App.Version,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr, "version", cfg.App.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received signal, initiating graceful shutdown", "signal", sig.String())
	case err := <-serveErr:
		if err != nil {
			log.Error("http server failed", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			log.Warn("received second signal, forcing immediate shutdown", "signal", sig.String())
			os.Exit(1)
		case <-time.After(cfg.Server.ShutdownTimeout + 5*time.Second):
			log.Warn("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	application.Close(shutdownCtx)
	close(done)

	log.Info("shutdown complete")
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"rift-stats-lab/internal/app"
	"rift-stats-lab/internal/config"
	"rift-stats-lab/internal/ingestion"
	"rift-stats-lab/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	puuid := flag.String("puuid", "", "Player PUUID to ingest")
	riotID := flag.String("riot-id", "", "Riot ID as name#tag (resolved to a PUUID)")
	matchIDs := flag.String("match-ids", "", "Comma-separated match IDs (skips listing)")
	count := flag.Int("count", cfg.Ingestion.DefaultCount, "Number of recent matches to list")
	platform := flag.String("platform", "", "Routing hint (platform or region)")
	flag.BoolVar(&cfg.Storage.UseMemory, "use-memory", cfg.Storage.UseMemory, "Use in-memory storage instead of PostgreSQL")
	flag.StringVar(&cfg.Storage.PostgresDSN, "postgres-dsn", cfg.Storage.PostgresDSN, "PostgreSQL connection string")
	flag.Parse()

	if *puuid == "" && *riotID == "" {
		fmt.Fprintln(os.Stderr, "one of --puuid or --riot-id is required")
		os.Exit(2)
	}
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to wire application", "error", err)
	}
	defer application.Close(context.Background())

	target := *puuid
	if target == "" {
		name, tag, found := strings.Cut(*riotID, "#")
		if !found {
			log.Fatal("--riot-id must look like name#tag", "riot_id", *riotID)
		}
		account, err := application.Players.SearchPlayer(ctx, name, tag, *platform)
		if err != nil {
			log.Fatal("account lookup failed", "error", err)
		}
		target = account.PUUID
		log.Info("resolved riot id", "game_name", account.GameName, "tag_line", account.TagLine, "puuid", target)
	}

	req := ingestion.Request{Count: *count, RoutingHint: *platform}
	if *matchIDs != "" {
		for _, id := range strings.Split(*matchIDs, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.MatchIDs = append(req.MatchIDs, id)
			}
		}
	}

	summary, err := application.Pipeline.IngestForPlayer(ctx, target, req)
	if err != nil {
		log.Fatal("ingestion failed", "error", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		log.Fatal("encode summary", "error", err)
	}

	log.Info("ingestion complete",
		"processed", summary.Processed,
		"failed", summary.Failed,
		"participants", summary.ParticipantsProcessed,
	)
}

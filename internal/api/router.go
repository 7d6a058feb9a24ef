// Package api exposes players, matches and ingestion over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"rift-stats-lab/internal/insight"
	"rift-stats-lab/internal/logger"
	"rift-stats-lab/internal/observability"
)

// Config holds the dependencies of the router.
type Config struct {
	Players    PlayerService
	Ingester   Ingester
	Aggregator Aggregator
	Entries    EntryLister
	Resolver   Resolver

	// Optional. History defaults to a generator with nothing to say.
	History   HistoryAnalyzer
	Timelines TimelineEnricher

	CORSOrigins []string
	Version     string
	Logger      *logger.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg Config) *chi.Mux {
	h := &Handler{
		players:    cfg.Players,
		ingester:   cfg.Ingester,
		aggregator: cfg.Aggregator,
		entries:    cfg.Entries,
		resolver:   cfg.Resolver,
		history:    cfg.History,
		timelines:  cfg.Timelines,
		version:    cfg.Version,
		started:    time.Now().UTC(),
	}
	if h.history == nil {
		h.history = insight.Nop{}
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(Recovery(cfg.Logger))
	r.Use(RequestID)
	r.Use(Logging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", observability.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/accounts/{gameName}/{tagLine}", h.SearchAccount)

		r.Route("/players/{puuid}", func(r chi.Router) {
			r.Get("/", h.GetPlayer)
			r.Get("/state", h.GetPlayerState)
			r.Get("/matches", h.ListPlayerMatches)
			r.Get("/insight", h.GetPlayerInsight)
			r.Post("/ingest", h.IngestPlayer)
			r.Post("/aggregate", h.AggregatePlayer)
		})

		r.Post("/matches", h.ProcessMatch)
		r.Route("/matches/{matchId}", func(r chi.Router) {
			r.Get("/", h.GetMatch)
			r.Get("/timeline", h.GetTimeline)
		})
	})

	return r
}

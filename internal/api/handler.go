package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/ingestion"
	"rift-stats-lab/internal/orchestrator"
	"rift-stats-lab/internal/player"
	"rift-stats-lab/internal/riot"
)

// maxBodyBytes bounds request bodies; a batch of full match payloads fits.
const maxBodyBytes = 32 << 20

// PlayerService serves player views and account search.
type PlayerService interface {
	Lookup(ctx context.Context, puuid string, opts player.LookupOptions) (*player.View, error)
	State(ctx context.Context, puuid string) (domain.PlayerViewState, error)
	SearchPlayer(ctx context.Context, gameName, tagLine, region string) (*riot.AccountDto, error)
}

// Ingester runs ingestion.
type Ingester interface {
	IngestForPlayer(ctx context.Context, puuid string, req ingestion.Request) (*ingestion.Summary, error)
	ProcessMatch(ctx context.Context, raw json.RawMessage) (*ingestion.MatchResult, error)
}

// Aggregator recomputes aggregates.
type Aggregator interface {
	Aggregate(ctx context.Context, puuid string) (*domain.PlayerAggregate, error)
}

// EntryLister reads a player's participant entries.
type EntryLister interface {
	ListByPUUID(ctx context.Context, puuid string, limit int) ([]*domain.ParticipantIndexEntry, error)
}

// Resolver resolves match and timeline payloads.
type Resolver interface {
	ResolveMatch(ctx context.Context, matchID, routingHint string) (*orchestrator.Resolution, error)
	ResolveTimeline(ctx context.Context, matchID, routingHint string) (*orchestrator.Resolution, error)
}

// HistoryAnalyzer comments on recent matches.
type HistoryAnalyzer interface {
	AnalyzeHistory(ctx context.Context, entries []*domain.ParticipantIndexEntry) (*domain.Insight, error)
}

// TimelineEnricher attaches timeline insight to a match in the background.
type TimelineEnricher interface {
	EnrichTimeline(matchID string, timeline json.RawMessage)
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	players    PlayerService
	ingester   Ingester
	aggregator Aggregator
	entries    EntryLister
	resolver   Resolver
	history    HistoryAnalyzer
	timelines  TimelineEnricher
	version    string
	started    time.Time
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string    `json:"status"`
	Version       string    `json:"version,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptimeSeconds"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	ok(w, HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Timestamp:     now,
		UptimeSeconds: int64(now.Sub(h.started).Seconds()),
	})
}

// SearchAccount handles GET /api/v1/accounts/{gameName}/{tagLine}
func (h *Handler) SearchAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.players.SearchPlayer(r.Context(),
		chi.URLParam(r, "gameName"),
		chi.URLParam(r, "tagLine"),
		r.URL.Query().Get("region"),
	)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, acct)
}

// GetPlayer handles GET /api/v1/players/{puuid}
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	force, err := boolParam(q.Get("force"))
	if err != nil {
		fail(w, badRequest("force must be a boolean"))
		return
	}
	count, err := intParam(q.Get("count"))
	if err != nil {
		fail(w, badRequest("count must be a non-negative integer"))
		return
	}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		fail(w, badRequest("limit must be a non-negative integer"))
		return
	}

	v, err := h.players.Lookup(r.Context(), chi.URLParam(r, "puuid"), player.LookupOptions{
		Force:       force,
		Count:       count,
		RoutingHint: q.Get("platform"),
		Limit:       limit,
	})
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, v)
}

// GetPlayerState handles GET /api/v1/players/{puuid}/state
func (h *Handler) GetPlayerState(w http.ResponseWriter, r *http.Request) {
	puuid := chi.URLParam(r, "puuid")
	state, err := h.players.State(r.Context(), puuid)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"puuid": puuid, "state": state})
}

// IngestPlayer handles POST /api/v1/players/{puuid}/ingest
func (h *Handler) IngestPlayer(w http.ResponseWriter, r *http.Request) {
	var req ingestion.Request
	if err := decodeBody(r, &req, true); err != nil {
		fail(w, err)
		return
	}

	summary, err := h.ingester.IngestForPlayer(r.Context(), chi.URLParam(r, "puuid"), req)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, summary)
}

// AggregatePlayer handles POST /api/v1/players/{puuid}/aggregate
func (h *Handler) AggregatePlayer(w http.ResponseWriter, r *http.Request) {
	agg, err := h.aggregator.Aggregate(r.Context(), chi.URLParam(r, "puuid"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, agg)
}

// ListPlayerMatches handles GET /api/v1/players/{puuid}/matches
func (h *Handler) ListPlayerMatches(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		fail(w, badRequest("limit must be a non-negative integer"))
		return
	}
	if limit == 0 {
		limit = player.DefaultLimit
	}

	entries, err := h.entries.ListByPUUID(r.Context(), chi.URLParam(r, "puuid"), limit)
	if err != nil {
		fail(w, err)
		return
	}
	if entries == nil {
		entries = []*domain.ParticipantIndexEntry{}
	}
	ok(w, entries)
}

// GetPlayerInsight handles GET /api/v1/players/{puuid}/insight
func (h *Handler) GetPlayerInsight(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		fail(w, badRequest("limit must be a non-negative integer"))
		return
	}
	if limit == 0 {
		limit = player.DefaultLimit
	}

	entries, err := h.entries.ListByPUUID(r.Context(), chi.URLParam(r, "puuid"), limit)
	if err != nil {
		fail(w, err)
		return
	}
	if len(entries) == 0 {
		fail(w, domain.Errorf(domain.KindNotFound, "api.GetPlayerInsight", "no matches for player"))
		return
	}

	ins, err := h.history.AnalyzeHistory(r.Context(), entries)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, map[string]any{"insight": ins, "matches": len(entries)})
}

// GetMatch handles GET /api/v1/matches/{matchId}
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolver.ResolveMatch(r.Context(), chi.URLParam(r, "matchId"), r.URL.Query().Get("platform"))
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, res)
}

// GetTimeline handles GET /api/v1/matches/{matchId}/timeline
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchId")
	res, err := h.resolver.ResolveTimeline(r.Context(), matchID, r.URL.Query().Get("platform"))
	if err != nil {
		fail(w, err)
		return
	}
	if h.timelines != nil && res.Tier != orchestrator.TierPrimary {
		h.timelines.EnrichTimeline(matchID, res.Data)
	}
	ok(w, res)
}

// ProcessMatch handles POST /api/v1/matches
func (h *Handler) ProcessMatch(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeBody(r, &raw, false); err != nil {
		fail(w, err)
		return
	}

	res, err := h.ingester.ProcessMatch(r.Context(), raw)
	if err != nil {
		fail(w, err)
		return
	}
	ok(w, res)
}

// decodeBody reads a JSON body into v. An empty body is accepted when allowEmpty is set.
func decodeBody(r *http.Request, v any, allowEmpty bool) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("failed to read request body")
	}
	if len(body) == 0 {
		if allowEmpty {
			return nil
		}
		return badRequest("request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest("invalid JSON")
	}
	return nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

func boolParam(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// Package player serves a player's history view, materializing it through
// ingestion on first access.
//
// States: NO_DATA → INGESTING → READY, and READY → INGESTING on a forced
// refresh. A READY lookup performs no writes unless the aggregate is missing.
package player

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/ingestion"
	"rift-stats-lab/internal/logger"
	"rift-stats-lab/internal/metrics"
	"rift-stats-lab/internal/observability"
	"rift-stats-lab/internal/riot"
	"rift-stats-lab/internal/storage"
)

// DefaultLimit is the number of entries returned in a view.
const DefaultLimit = 20

// Ingester runs an ingestion for one player.
type Ingester interface {
	IngestForPlayer(ctx context.Context, puuid string, req ingestion.Request) (*ingestion.Summary, error)
}

// Aggregator recomputes a player's aggregate.
type Aggregator interface {
	Aggregate(ctx context.Context, puuid string) (*domain.PlayerAggregate, error)
}

// AccountSearcher resolves riot IDs to accounts. *riot.Client satisfies it.
type AccountSearcher interface {
	GetAccountByRiotID(ctx context.Context, gameName, tagLine, region string) (*riot.AccountDto, error)
}

// LookupOptions tune one lookup.
type LookupOptions struct {
	Force       bool   // re-ingest even when READY
	Count       int    // listing size for ingestion
	RoutingHint string // platform or region
	Limit       int    // entries in the view, default DefaultLimit
}

// View is a player's materialized history.
type View struct {
	State     domain.PlayerViewState          `json:"state"`
	Entries   []*domain.ParticipantIndexEntry `json:"entries"`
	Aggregate *domain.PlayerAggregate         `json:"aggregate,omitempty"`
	Ingestion *ingestion.Summary              `json:"ingestion,omitempty"`
}

// Service serves player views.
type Service struct {
	entries    storage.ParticipantIndexStore
	aggregates storage.PlayerAggregateStore
	ingester   Ingester
	aggregator Aggregator
	accounts   AccountSearcher
	log        *logger.Logger

	group singleflight.Group

	mu       sync.Mutex
	inflight map[string]int
}

// Options contains configuration for creating a Service.
type Options struct {
	Entries    storage.ParticipantIndexStore
	Aggregates storage.PlayerAggregateStore
	Ingester   Ingester
	Aggregator Aggregator
	Accounts   AccountSearcher // optional, required by SearchPlayer
	Logger     *logger.Logger
}

// NewService creates a new player service.
func NewService(opts Options) *Service {
	return &Service{
		entries:    opts.Entries,
		aggregates: opts.Aggregates,
		ingester:   opts.Ingester,
		aggregator: opts.Aggregator,
		accounts:   opts.Accounts,
		log:        logger.OrNop(opts.Logger).With("component", "player"),
		inflight:   make(map[string]int),
	}
}

// Lookup returns the player's view, ingesting first when there is no data
// or when opts.Force is set. Concurrent lookups of one player share a run.
func (s *Service) Lookup(ctx context.Context, puuid string, opts LookupOptions) (*View, error) {
	const op = "player.Lookup"
	if puuid == "" {
		return nil, domain.Errorf(domain.KindInvalidInput, op, "empty puuid")
	}

	state, err := s.storedState(ctx, puuid)
	if err != nil {
		return nil, domain.NewError(domain.KindInternal, op, err)
	}

	if state == domain.PlayerStateReady && !opts.Force {
		return s.view(ctx, puuid, domain.PlayerStateReady, opts.Limit)
	}

	observability.RecordPlayerTransition(string(state), string(domain.PlayerStateIngesting))
	summary, err := s.ingest(ctx, puuid, opts)
	if err != nil {
		after, _ := s.storedState(ctx, puuid)
		observability.RecordPlayerTransition(string(domain.PlayerStateIngesting), string(after))
		s.log.Warn("ingestion for lookup failed", "puuid", puuid, "state", after, "error", err)
		return nil, err
	}

	after, err := s.storedState(ctx, puuid)
	if err != nil {
		return nil, domain.NewError(domain.KindInternal, op, err)
	}
	observability.RecordPlayerTransition(string(domain.PlayerStateIngesting), string(after))

	if err := runFailure(op, after, summary); err != nil {
		s.log.Warn("ingestion for lookup stored nothing", "puuid", puuid,
			"failed", summary.Failed, "total", summary.TotalMatches, "error", err)
		return nil, err
	}

	v, err := s.view(ctx, puuid, after, opts.Limit)
	if err != nil {
		return nil, err
	}
	v.Ingestion = summary
	return v, nil
}

// runFailure turns a run that stored nothing while matches failed into an
// error carrying the first failed match's kind.
func runFailure(op string, after domain.PlayerViewState, summary *ingestion.Summary) error {
	if after != domain.PlayerStateNoData || summary == nil || summary.Processed > 0 || summary.Failed == 0 {
		return nil
	}
	for _, r := range summary.Results {
		if !r.Success {
			return domain.Errorf(domain.KindForCode(r.Code), op,
				"%d of %d matches failed, first %s: %s", summary.Failed, summary.TotalMatches, r.MatchID, r.Error)
		}
	}
	return domain.Errorf(domain.KindInternal, op, "%d matches failed", summary.Failed)
}

// State reports the player's state as seen by this process.
func (s *Service) State(ctx context.Context, puuid string) (domain.PlayerViewState, error) {
	s.mu.Lock()
	running := s.inflight[puuid] > 0
	s.mu.Unlock()
	if running {
		return domain.PlayerStateIngesting, nil
	}
	return s.storedState(ctx, puuid)
}

// SearchPlayer resolves a riot ID to an account.
func (s *Service) SearchPlayer(ctx context.Context, gameName, tagLine, region string) (*riot.AccountDto, error) {
	const op = "player.SearchPlayer"
	gameName = strings.TrimSpace(gameName)
	tagLine = strings.TrimPrefix(strings.TrimSpace(tagLine), "#")
	if gameName == "" || tagLine == "" {
		return nil, domain.Errorf(domain.KindInvalidInput, op, "game name and tag line are required")
	}
	if s.accounts == nil {
		return nil, domain.Errorf(domain.KindUpstreamUnavailable, op, "account search not configured")
	}
	return s.accounts.GetAccountByRiotID(ctx, gameName, tagLine, region)
}

func (s *Service) ingest(ctx context.Context, puuid string, opts LookupOptions) (*ingestion.Summary, error) {
	// The shared run outlives any single caller's cancellation.
	runCtx := context.WithoutCancel(ctx)

	v, err, shared := s.group.Do(puuid, func() (interface{}, error) {
		s.mu.Lock()
		s.inflight[puuid]++
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			if s.inflight[puuid]--; s.inflight[puuid] <= 0 {
				delete(s.inflight, puuid)
			}
			s.mu.Unlock()
		}()

		return s.ingester.IngestForPlayer(runCtx, puuid, ingestion.Request{
			Count:       opts.Count,
			RoutingHint: opts.RoutingHint,
		})
	})
	if shared {
		s.log.Debug("joined in-flight ingestion", "puuid", puuid)
	}
	if err != nil {
		return nil, err
	}
	return v.(*ingestion.Summary), nil
}

func (s *Service) storedState(ctx context.Context, puuid string) (domain.PlayerViewState, error) {
	n, err := s.entries.CountByPUUID(ctx, puuid)
	if err != nil {
		return domain.PlayerStateNoData, err
	}
	if n == 0 {
		return domain.PlayerStateNoData, nil
	}
	return domain.PlayerStateReady, nil
}

func (s *Service) view(ctx context.Context, puuid string, state domain.PlayerViewState, limit int) (*View, error) {
	const op = "player.view"
	if limit <= 0 {
		limit = DefaultLimit
	}

	entries, err := s.entries.ListByPUUID(ctx, puuid, limit)
	if err != nil {
		return nil, domain.NewError(domain.KindInternal, op, err)
	}
	if entries == nil {
		entries = []*domain.ParticipantIndexEntry{}
	}
	v := &View{State: state, Entries: entries}

	agg, err := s.aggregates.Get(ctx, puuid)
	switch {
	case err == nil:
		v.Aggregate = agg
	case errors.Is(err, storage.ErrNotFound) && len(entries) > 0:
		v.Aggregate = s.heal(ctx, puuid)
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, domain.NewError(domain.KindInternal, op, err)
	}
	return v, nil
}

// heal recomputes a missing aggregate. Failure leaves the view without one.
func (s *Service) heal(ctx context.Context, puuid string) *domain.PlayerAggregate {
	agg, err := s.aggregator.Aggregate(ctx, puuid)
	if err != nil {
		if !errors.Is(err, metrics.ErrNoParticipants) {
			s.log.Warn("aggregate self-heal failed", "puuid", puuid, "error", err)
		}
		return nil
	}
	s.log.Info("aggregate recomputed on read", "puuid", puuid)
	return agg
}

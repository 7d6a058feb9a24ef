// Package ingestion turns upstream match payloads into match records and
// participant index entries, then refreshes the player aggregate.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/logger"
	"rift-stats-lab/internal/metrics"
	"rift-stats-lab/internal/observability"
	"rift-stats-lab/internal/orchestrator"
	"rift-stats-lab/internal/riot"
	"rift-stats-lab/internal/storage"
)

const (
	// DefaultCount is the listing size when a request names no count.
	DefaultCount = 20
	// MaxCount is the upstream cap on one listing.
	MaxCount = 100
	// DefaultConcurrency bounds per-match fan-out.
	DefaultConcurrency = 4
	// DefaultLookback bounds the listing window.
	DefaultLookback = 365 * 24 * time.Hour

	// MessageNoMatches is reported when a listing comes back empty.
	MessageNoMatches = "no matches found"
)

// MatchResolver resolves a match ID to its payload.
type MatchResolver interface {
	ResolveMatch(ctx context.Context, matchID, routingHint string) (*orchestrator.Resolution, error)
}

// MatchLister lists a player's match IDs.
type MatchLister interface {
	ListMatchIDs(ctx context.Context, puuid string, opts riot.MatchListOptions, platform string) ([]string, error)
}

// Aggregator refreshes the player aggregate after ingestion.
type Aggregator interface {
	Aggregate(ctx context.Context, puuid string) (*domain.PlayerAggregate, error)
}

// Enricher receives freshly written rows for best-effort insight attachment.
type Enricher interface {
	EnrichEntries(entries []*domain.ParticipantIndexEntry)
	EnrichAggregate(agg *domain.PlayerAggregate)
}

// Request selects the matches to ingest. Sources are used in priority order:
// Matches, then MatchIDs, then a listing of the player's recent history.
type Request struct {
	Matches     []json.RawMessage `json:"matches,omitempty"`
	MatchIDs    []string          `json:"matchIds,omitempty"`
	Count       int               `json:"count,omitempty"`
	RoutingHint string            `json:"platform,omitempty"`
}

// MatchResult is the outcome of one match.
type MatchResult struct {
	MatchID               string `json:"matchId,omitempty"`
	Success               bool   `json:"success"`
	Code                  string `json:"code,omitempty"`
	Error                 string `json:"error,omitempty"`
	ParticipantsProcessed int    `json:"participantsProcessed"`
	ParticipantsSkipped   int    `json:"participantsSkipped"`
	ParticipantsMissingID int    `json:"participantsMissingId"`
}

// Summary reports a whole ingestion run.
type Summary struct {
	Processed             int                     `json:"processed"`
	TotalMatches          int                     `json:"totalMatches"`
	Failed                int                     `json:"failed"`
	ParticipantsProcessed int                     `json:"participantsProcessed"`
	ParticipantsSkipped   int                     `json:"participantsSkipped"`
	ParticipantsMissingID int                     `json:"participantsMissingId"`
	Results               []MatchResult           `json:"results"`
	Aggregation           *domain.PlayerAggregate `json:"aggregation,omitempty"`
	AggregationError      string                  `json:"aggregationError,omitempty"`
	Message               string                  `json:"message,omitempty"`
}

// Pipeline ingests matches for players.
type Pipeline struct {
	records    storage.MatchRecordStore
	entries    storage.ParticipantIndexStore
	resolver   MatchResolver
	lister     MatchLister
	aggregator Aggregator
	enricher   Enricher

	defaultCount int
	concurrency  int
	lookback     time.Duration
	recordTTL    time.Duration
	now          func() time.Time
	log          *logger.Logger
}

// Options contains configuration for creating a Pipeline.
type Options struct {
	Records    storage.MatchRecordStore
	Entries    storage.ParticipantIndexStore
	Resolver   MatchResolver
	Lister     MatchLister
	Aggregator Aggregator
	Enricher   Enricher // optional

	DefaultCount int           // default DefaultCount
	Concurrency  int           // default DefaultConcurrency
	Lookback     time.Duration // default DefaultLookback
	RecordTTL    time.Duration // default orchestrator.DefaultRecordTTL
	Now          func() time.Time
	Logger       *logger.Logger
}

// New creates a new ingestion pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		records:      opts.Records,
		entries:      opts.Entries,
		resolver:     opts.Resolver,
		lister:       opts.Lister,
		aggregator:   opts.Aggregator,
		enricher:     opts.Enricher,
		defaultCount: opts.DefaultCount,
		concurrency:  opts.Concurrency,
		lookback:     opts.Lookback,
		recordTTL:    opts.RecordTTL,
		now:          opts.Now,
		log:          logger.OrNop(opts.Logger).With("component", "ingestion"),
	}
	if p.defaultCount <= 0 {
		p.defaultCount = DefaultCount
	}
	if p.concurrency <= 0 {
		p.concurrency = DefaultConcurrency
	}
	if p.lookback <= 0 {
		p.lookback = DefaultLookback
	}
	if p.recordTTL <= 0 {
		p.recordTTL = orchestrator.DefaultRecordTTL
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// source is one unit of fan-out: either a raw payload or an ID to resolve.
type source struct {
	matchID string
	raw     json.RawMessage
}

// IngestForPlayer ingests the requested matches and refreshes the player's
// aggregate. Per-match failures are reported in the summary; only a failed
// listing fails the call.
func (p *Pipeline) IngestForPlayer(ctx context.Context, puuid string, req Request) (*Summary, error) {
	const op = "ingestion.IngestForPlayer"
	if puuid == "" {
		return nil, domain.Errorf(domain.KindInvalidInput, op, "empty puuid")
	}
	start := p.now()
	defer func() { observability.RecordIngestion(time.Since(start)) }()

	sources, err := p.collect(ctx, puuid, req)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		p.log.Info("nothing to ingest", "puuid", puuid)
		return &Summary{Results: []MatchResult{}, Message: MessageNoMatches}, nil
	}

	results := p.fanOut(ctx, sources, req.RoutingHint)
	summary := summarize(results)

	agg, err := p.aggregator.Aggregate(ctx, puuid)
	switch {
	case errors.Is(err, metrics.ErrNoParticipants):
		p.log.Warn("no participant entries after ingestion", "puuid", puuid)
		summary.AggregationError = CodeNoParticipants
	case err != nil:
		p.log.Error("aggregation after ingestion failed", "puuid", puuid, "error", err)
		summary.AggregationError = domain.KindAggregationFailure.Code()
	default:
		summary.Aggregation = agg
		if p.enricher != nil {
			p.enricher.EnrichAggregate(agg)
		}
	}

	p.log.Info("ingestion finished",
		"puuid", puuid,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"participants", summary.ParticipantsProcessed,
		"skipped", summary.ParticipantsSkipped,
	)
	return summary, nil
}

// CodeNoParticipants is the aggregation code reported when no entries exist.
const CodeNoParticipants = "NO_PARTICIPANTS"

// ProcessMatch ingests one payload for all of its participants. No aggregate
// is recomputed.
func (p *Pipeline) ProcessMatch(ctx context.Context, raw json.RawMessage) (*MatchResult, error) {
	res, err := p.store(ctx, raw)
	return &res, err
}

func (p *Pipeline) collect(ctx context.Context, puuid string, req Request) ([]source, error) {
	if len(req.Matches) > 0 {
		out := make([]source, len(req.Matches))
		for i, raw := range req.Matches {
			out[i] = source{raw: raw}
		}
		return out, nil
	}

	ids := req.MatchIDs
	if len(ids) == 0 {
		listed, err := p.list(ctx, puuid, req)
		if err != nil {
			return nil, err
		}
		ids = listed
	}

	// Repeated IDs would cost an extra upstream fetch each.
	out := make([]source, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, source{matchID: id})
	}
	if dropped := len(ids) - len(out); dropped > 0 {
		p.log.Debug("dropped repeated match ids", "puuid", puuid, "dropped", dropped)
	}
	return out, nil
}

func (p *Pipeline) list(ctx context.Context, puuid string, req Request) ([]string, error) {
	const op = "ingestion.list"
	if p.lister == nil {
		return nil, domain.Errorf(domain.KindUpstreamUnavailable, op, "no match lister configured")
	}

	count := req.Count
	if count <= 0 {
		count = p.defaultCount
	}
	if count > MaxCount {
		count = MaxCount
	}

	ids, err := p.lister.ListMatchIDs(ctx, puuid, riot.MatchListOptions{
		Count:     count,
		StartTime: p.now().Add(-p.lookback).Unix(),
	}, req.RoutingHint)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, domain.NewError(domain.KindUpstreamUnavailable, op, err)
	}
	return ids, nil
}

// fanOut processes every source with bounded concurrency. Goroutines never
// return errors so one failed match does not cancel its siblings.
func (p *Pipeline) fanOut(ctx context.Context, sources []source, hint string) []MatchResult {
	results := make([]MatchResult, len(sources))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = p.ingestOne(ctx, src, hint)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Pipeline) ingestOne(ctx context.Context, src source, hint string) MatchResult {
	raw := src.raw
	if raw == nil {
		res, err := p.resolver.ResolveMatch(ctx, src.matchID, hint)
		if err != nil {
			p.log.Warn("match resolution failed", "match_id", src.matchID, "error", err)
			observability.RecordIngestedMatch("failed")
			return MatchResult{MatchID: src.matchID, Code: domain.CodeOf(err), Error: err.Error()}
		}
		raw = res.Data
	}

	res, _ := p.store(ctx, raw)
	if res.MatchID == "" {
		res.MatchID = src.matchID
	}
	return res
}

// store validates one payload and writes its record and entries.
// The returned error is also recorded in the result.
func (p *Pipeline) store(ctx context.Context, raw json.RawMessage) (MatchResult, error) {
	now := p.now()
	processed, err := ProcessMatchData(raw, now)
	if err != nil {
		observability.RecordIngestedMatch("invalid")
		return MatchResult{Code: domain.CodeOf(err), Error: err.Error()}, err
	}

	rec := processed.Record
	rec.ExpiresAt = now.Add(p.recordTTL).Unix()
	res := MatchResult{MatchID: rec.MatchID, ParticipantsMissingID: processed.MissingID}

	if err := p.records.Create(ctx, rec); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return p.fail(res, fmt.Errorf("create match record: %w", err))
		}
		p.log.Debug("match record exists, refreshing ttl", "match_id", rec.MatchID)
		if err := p.records.Touch(ctx, rec.MatchID, rec.ProcessedAt, rec.ExpiresAt); err != nil {
			p.log.Warn("match record touch failed", "match_id", rec.MatchID, "error", err)
		}
	}

	created := make([]*domain.ParticipantIndexEntry, 0, len(processed.Entries))
	for _, e := range processed.Entries {
		err := p.entries.Create(ctx, e)
		switch {
		case err == nil:
			res.ParticipantsProcessed++
			created = append(created, e)
		case errors.Is(err, storage.ErrDuplicateKey):
			res.ParticipantsSkipped++
		default:
			return p.fail(res, fmt.Errorf("create participant entry %s: %w", e.PUUID, err))
		}
	}

	observability.RecordIngestedMatch("ok")
	observability.RecordIngestedParticipants("processed", res.ParticipantsProcessed)
	observability.RecordIngestedParticipants("skipped", res.ParticipantsSkipped)
	observability.RecordIngestedParticipants("missing_id", res.ParticipantsMissingID)

	if p.enricher != nil && len(created) > 0 {
		p.enricher.EnrichEntries(created)
	}

	res.Success = true
	return res, nil
}

func (p *Pipeline) fail(res MatchResult, err error) (MatchResult, error) {
	observability.RecordIngestedMatch("failed")
	p.log.Error("match write failed", "match_id", res.MatchID, "error", err)
	res.Code = domain.CodeOf(err)
	res.Error = err.Error()
	return res, err
}

func summarize(results []MatchResult) *Summary {
	s := &Summary{TotalMatches: len(results), Results: results}
	for _, r := range results {
		if r.Success {
			s.Processed++
		} else {
			s.Failed++
		}
		s.ParticipantsProcessed += r.ParticipantsProcessed
		s.ParticipantsSkipped += r.ParticipantsSkipped
		s.ParticipantsMissingID += r.ParticipantsMissingID
	}
	return s
}

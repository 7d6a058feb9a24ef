// Package orchestrator resolves match and timeline payloads through the
// storage tiers: match record store → object cache → Riot API.
// Faster tiers are backfilled through best-effort side tasks.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rift-stats-lab/internal/backfill"
	"rift-stats-lab/internal/cache"
	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/logger"
	"rift-stats-lab/internal/observability"
	"rift-stats-lab/internal/riot"
	"rift-stats-lab/internal/storage"
)

// DefaultRecordTTL is the freshness window stamped on backfilled match records.
const DefaultRecordTTL = 30 * 24 * time.Hour

// Tier names the layer that served a payload.
type Tier string

const (
	TierPrimary     Tier = "primary"
	TierObjectCache Tier = "object-cache"
	TierUpstream    Tier = "upstream"
)

// Resolution is a resolved payload and the tier it came from.
type Resolution struct {
	Data json.RawMessage `json:"data"`
	Tier Tier            `json:"tier"`
}

// Upstream is the slow, rate-limited source of truth.
type Upstream interface {
	GetMatch(ctx context.Context, matchID, platform string) (json.RawMessage, error)
	GetTimeline(ctx context.Context, matchID, platform string) (json.RawMessage, error)
}

// Orchestrator resolves payloads tier by tier.
type Orchestrator struct {
	records   storage.MatchRecordStore
	cache     cache.Cache
	upstream  Upstream
	side      backfill.Submitter
	objectTTL time.Duration
	recordTTL time.Duration
	now       func() time.Time
	log       *logger.Logger
}

// Options for creating Orchestrator.
type Options struct {
	// Tiers in resolution order. Cache and Upstream may be nil.
	Records  storage.MatchRecordStore
	Cache    cache.Cache
	Upstream Upstream

	// Backfill receives side tasks; nil runs them inline.
	Backfill backfill.Submitter

	ObjectTTL time.Duration // default cache.DefaultObjectTTL
	RecordTTL time.Duration // default DefaultRecordTTL
	Now       func() time.Time
	Logger    *logger.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		records:   opts.Records,
		cache:     opts.Cache,
		upstream:  opts.Upstream,
		side:      opts.Backfill,
		objectTTL: opts.ObjectTTL,
		recordTTL: opts.RecordTTL,
		now:       opts.Now,
		log:       logger.OrNop(opts.Logger).With("component", "orchestrator"),
	}
	if o.side == nil {
		o.side = backfill.NewInline(nil)
	}
	if o.objectTTL <= 0 {
		o.objectTTL = cache.DefaultObjectTTL
	}
	if o.recordTTL <= 0 {
		o.recordTTL = DefaultRecordTTL
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// ResolveMatch returns the match payload from the fastest tier that holds a
// valid copy. Invalid payloads and read errors at intermediate tiers are misses.
func (o *Orchestrator) ResolveMatch(ctx context.Context, matchID, routingHint string) (*Resolution, error) {
	const op = "orchestrator.ResolveMatch"
	if matchID == "" {
		return nil, domain.Errorf(domain.KindInvalidInput, op, "empty match id")
	}

	// Tier 1: match record store
	if data, ok := o.fromRecords(ctx, matchID); ok {
		observability.RecordResolution("match", string(TierPrimary))
		return &Resolution{Data: data, Tier: TierPrimary}, nil
	}

	// Tier 2: object cache
	if data, ok := o.fromCache(ctx, "match", cache.MatchKey(matchID), riot.ValidateMatchPayload); ok {
		o.backfillRecord(matchID, data)
		observability.RecordResolution("match", string(TierObjectCache))
		return &Resolution{Data: data, Tier: TierObjectCache}, nil
	}

	// Tier 3: upstream
	if o.upstream == nil {
		return nil, domain.Errorf(domain.KindUpstreamUnavailable, op, "no upstream configured")
	}
	data, err := o.upstream.GetMatch(ctx, matchID, routingHint)
	if err != nil {
		return nil, wrapUpstream(op, err)
	}
	if err := riot.ValidateMatchPayload(data); err != nil {
		return nil, domain.NewError(domain.KindInvalidUpstreamPayload, op, err)
	}

	o.backfillRecord(matchID, data)
	o.backfillCache(cache.MatchKey(matchID), data)
	observability.RecordResolution("match", string(TierUpstream))
	return &Resolution{Data: data, Tier: TierUpstream}, nil
}

// ResolveTimeline returns the timeline payload. A timeline already attached to
// the match record is served first, then the object cache, then upstream.
func (o *Orchestrator) ResolveTimeline(ctx context.Context, matchID, routingHint string) (*Resolution, error) {
	const op = "orchestrator.ResolveTimeline"
	if matchID == "" {
		return nil, domain.Errorf(domain.KindInvalidInput, op, "empty match id")
	}

	if rec, err := o.records.Get(ctx, matchID); err == nil && len(rec.TimelineData) > 0 {
		if riot.ValidateTimelinePayload(rec.TimelineData) == nil {
			observability.RecordResolution("timeline", string(TierPrimary))
			return &Resolution{Data: rec.TimelineData, Tier: TierPrimary}, nil
		}
	}

	if data, ok := o.fromCache(ctx, "timeline", cache.TimelineKey(matchID), riot.ValidateTimelinePayload); ok {
		observability.RecordResolution("timeline", string(TierObjectCache))
		return &Resolution{Data: data, Tier: TierObjectCache}, nil
	}

	if o.upstream == nil {
		return nil, domain.Errorf(domain.KindUpstreamUnavailable, op, "no upstream configured")
	}
	data, err := o.upstream.GetTimeline(ctx, matchID, routingHint)
	if err != nil {
		return nil, wrapUpstream(op, err)
	}
	if err := riot.ValidateTimelinePayload(data); err != nil {
		return nil, domain.NewError(domain.KindInvalidUpstreamPayload, op, err)
	}

	o.backfillCache(cache.TimelineKey(matchID), data)
	o.side.Submit("attach-timeline:"+matchID, func(ctx context.Context) error {
		err := o.records.AttachTimeline(ctx, matchID, data)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	})
	observability.RecordResolution("timeline", string(TierUpstream))
	return &Resolution{Data: data, Tier: TierUpstream}, nil
}

func (o *Orchestrator) fromRecords(ctx context.Context, matchID string) (json.RawMessage, bool) {
	rec, err := o.records.Get(ctx, matchID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		observability.RecordResolutionMiss(string(TierPrimary), "absent")
		return nil, false
	case err != nil:
		o.log.Warn("match record read failed, treating as miss", "match_id", matchID, "error", err)
		observability.RecordResolutionMiss(string(TierPrimary), "error")
		return nil, false
	}

	if err := riot.ValidateMatchPayload(rec.MatchData); err != nil {
		o.log.Warn("stored match payload invalid, treating as miss", "match_id", matchID, "error", err)
		observability.RecordResolutionMiss(string(TierPrimary), "invalid")
		return nil, false
	}

	if now := o.now(); rec.IsStale(now.Unix()) {
		observability.RecordStaleHit("match")
		o.refreshRecord(matchID, now)
	}
	return rec.MatchData, true
}

// refreshRecord extends the freshness marker of a validated record. Match
// payloads are immutable, so passing validation is enough to keep serving it.
func (o *Orchestrator) refreshRecord(matchID string, now time.Time) {
	processedAt, expiresAt := now.UnixMilli(), now.Add(o.recordTTL).Unix()
	o.side.Submit("touch-record:"+matchID, func(ctx context.Context) error {
		err := o.records.Touch(ctx, matchID, processedAt, expiresAt)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	})
}

func (o *Orchestrator) fromCache(ctx context.Context, kind, key string, validate func(json.RawMessage) error) (json.RawMessage, bool) {
	if o.cache == nil {
		return nil, false
	}

	data, err := o.cache.Get(ctx, key)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		observability.RecordResolutionMiss(string(TierObjectCache), "absent")
		return nil, false
	case err != nil:
		o.log.Warn("object cache read failed, treating as miss", "key", key, "error", err)
		observability.RecordResolutionMiss(string(TierObjectCache), "error")
		return nil, false
	}

	if err := validate(data); err != nil {
		o.log.Warn("cached payload invalid, treating as miss", "kind", kind, "key", key, "error", err)
		observability.RecordResolutionMiss(string(TierObjectCache), "invalid")
		return nil, false
	}
	return json.RawMessage(data), true
}

// backfillRecord creates the match record; an existing record is left untouched.
func (o *Orchestrator) backfillRecord(matchID string, data json.RawMessage) {
	rec := NewMatchRecord(matchID, data, o.now(), o.recordTTL)
	o.side.Submit("backfill-record:"+matchID, func(ctx context.Context) error {
		err := o.records.Create(ctx, rec)
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil
		}
		return err
	})
}

func (o *Orchestrator) backfillCache(key string, data json.RawMessage) {
	if o.cache == nil {
		return
	}
	ttl := o.objectTTL
	o.side.Submit("backfill-cache:"+key, func(ctx context.Context) error {
		return o.cache.Set(ctx, key, data, ttl)
	})
}

// NewMatchRecord builds a record for a payload fetched at now.
// expiresAt is in seconds, processedAt in milliseconds.
func NewMatchRecord(matchID string, data json.RawMessage, now time.Time, ttl time.Duration) *domain.MatchRecord {
	return &domain.MatchRecord{
		MatchID:      matchID,
		GameCreation: gameCreationOf(data),
		MatchData:    data,
		ExpiresAt:    now.Add(ttl).Unix(),
		ProcessedAt:  now.UnixMilli(),
	}
}

func gameCreationOf(data json.RawMessage) int64 {
	var head struct {
		Info struct {
			GameCreation int64 `json:"gameCreation"`
		} `json:"info"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0
	}
	return head.Info.GameCreation
}

// wrapUpstream keeps domain errors intact and classifies anything else as unavailable.
func wrapUpstream(op string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.NewError(domain.KindUpstreamUnavailable, op, fmt.Errorf("upstream: %w", err))
}

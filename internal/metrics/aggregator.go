// Package metrics computes player aggregates from the participant index.
package metrics

import (
	"context"
	"errors"
	"time"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/logger"
	"rift-stats-lab/internal/observability"
	"rift-stats-lab/internal/riot"
	"rift-stats-lab/internal/storage"
)

// ErrNoParticipants is returned when a player has no participant entries.
var ErrNoParticipants = errors.New("no participants found")

// IdentityResolver looks up the riot account behind a PUUID.
// *riot.Client satisfies it.
type IdentityResolver interface {
	GetAccountByPUUID(ctx context.Context, puuid, region string) (*riot.AccountDto, error)
}

// Aggregator recomputes player aggregates from scratch.
type Aggregator struct {
	entries    storage.ParticipantIndexStore
	aggregates storage.PlayerAggregateStore
	identity   IdentityResolver
	region     string
	now        func() time.Time
	log        *logger.Logger
}

// AggregatorOptions contains configuration for creating an Aggregator.
type AggregatorOptions struct {
	Entries    storage.ParticipantIndexStore
	Aggregates storage.PlayerAggregateStore

	// Identity is optional. Region is passed through to it.
	Identity IdentityResolver
	Region   string

	Now    func() time.Time
	Logger *logger.Logger
}

// NewAggregator creates a new player aggregator.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	a := &Aggregator{
		entries:    opts.Entries,
		aggregates: opts.Aggregates,
		identity:   opts.Identity,
		region:     opts.Region,
		now:        opts.Now,
		log:        logger.OrNop(opts.Logger).With("component", "aggregator"),
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Aggregate loads the player's full history, recomputes the aggregate and
// replaces the stored one. Returns ErrNoParticipants without writing when the
// history is empty; every other failure is an AggregationFailure.
func (a *Aggregator) Aggregate(ctx context.Context, puuid string) (*domain.PlayerAggregate, error) {
	const op = "metrics.Aggregate"
	start := a.now()

	entries, err := a.entries.ListByPUUID(ctx, puuid, 0)
	if err != nil {
		observability.RecordAggregation("failed", time.Since(start))
		return nil, domain.NewError(domain.KindAggregationFailure, op, err)
	}
	if len(entries) == 0 {
		observability.RecordAggregation("empty", time.Since(start))
		return nil, ErrNoParticipants
	}

	agg := ComputeAggregate(puuid, entries, start)
	a.carryOver(ctx, agg)
	a.resolveIdentity(ctx, agg)

	if err := a.write(ctx, agg); err != nil {
		observability.RecordAggregation("failed", time.Since(start))
		return nil, domain.NewError(domain.KindAggregationFailure, op, err)
	}

	observability.RecordAggregation("ok", time.Since(start))
	a.log.Debug("aggregate written", "puuid", puuid, "matches", agg.TotalMatches)
	return agg, nil
}

// carryOver keeps identity and insight from the previous aggregate.
func (a *Aggregator) carryOver(ctx context.Context, agg *domain.PlayerAggregate) {
	prev, err := a.aggregates.Get(ctx, agg.PUUID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.log.Warn("previous aggregate read failed", "puuid", agg.PUUID, "error", err)
		}
		return
	}
	agg.GameName = prev.GameName
	agg.TagLine = prev.TagLine
	agg.Insight = prev.Insight.Clone()
}

func (a *Aggregator) resolveIdentity(ctx context.Context, agg *domain.PlayerAggregate) {
	if a.identity == nil {
		return
	}
	acct, err := a.identity.GetAccountByPUUID(ctx, agg.PUUID, a.region)
	if err != nil {
		a.log.Debug("identity lookup failed, keeping previous", "puuid", agg.PUUID, "error", err)
		return
	}
	if acct.GameName != "" {
		agg.GameName = acct.GameName
		agg.TagLine = acct.TagLine
	}
}

func (a *Aggregator) write(ctx context.Context, agg *domain.PlayerAggregate) error {
	if u, ok := a.aggregates.(storage.PlayerAggregateUpserter); ok {
		return u.Upsert(ctx, agg)
	}
	return upsertWithFallback(ctx, a.aggregates, agg)
}

// upsertWithFallback replaces the aggregate using plain Update and Create.
// A concurrent creator between the two calls turns Create into a second Update.
func upsertWithFallback(ctx context.Context, store storage.PlayerAggregateStore, agg *domain.PlayerAggregate) error {
	err := store.Update(ctx, agg)
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	err = store.Create(ctx, agg)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return store.Update(ctx, agg)
	}
	return err
}

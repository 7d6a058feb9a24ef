package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/riot"
	"rift-stats-lab/internal/storage"
	"rift-stats-lab/internal/storage/memory"
)

type fakeIdentity struct {
	acct *riot.AccountDto
	err  error
}

func (f *fakeIdentity) GetAccountByPUUID(context.Context, string, string) (*riot.AccountDto, error) {
	return f.acct, f.err
}

// plainAggregates hides Upsert so the fallback path is used.
type plainAggregates struct {
	storage.PlayerAggregateStore
	updates, creates int
}

func (p *plainAggregates) Update(ctx context.Context, a *domain.PlayerAggregate) error {
	p.updates++
	return p.PlayerAggregateStore.Update(ctx, a)
}

func (p *plainAggregates) Create(ctx context.Context, a *domain.PlayerAggregate) error {
	p.creates++
	return p.PlayerAggregateStore.Create(ctx, a)
}

// racingAggregates lets a rival writer create the row between the first
// Update and the Create, so Create reports a duplicate key.
type racingAggregates struct {
	storage.PlayerAggregateStore
	rival            *domain.PlayerAggregate
	updates, creates int
}

func (r *racingAggregates) Update(ctx context.Context, a *domain.PlayerAggregate) error {
	r.updates++
	if r.updates == 1 {
		if err := r.PlayerAggregateStore.Create(ctx, r.rival); err != nil {
			return err
		}
		return storage.ErrNotFound
	}
	return r.PlayerAggregateStore.Update(ctx, a)
}

func (r *racingAggregates) Create(ctx context.Context, a *domain.PlayerAggregate) error {
	r.creates++
	return r.PlayerAggregateStore.Create(ctx, a)
}

// failingList returns an error from ListByPUUID.
type failingList struct {
	storage.ParticipantIndexStore
}

func (failingList) ListByPUUID(context.Context, string, int) ([]*domain.ParticipantIndexEntry, error) {
	return nil, errors.New("timeout")
}

func seedEntries(t *testing.T, store storage.ParticipantIndexStore, entries ...*domain.ParticipantIndexEntry) {
	t.Helper()
	for _, e := range entries {
		if err := store.Create(context.Background(), e); err != nil {
			t.Fatalf("seed entry %s: %v", e.MatchID, err)
		}
	}
}

func TestAggregator_NoParticipants(t *testing.T) {
	aggStore := memory.NewPlayerAggregateStore()
	a := NewAggregator(AggregatorOptions{
		Entries:    memory.NewParticipantIndexStore(),
		Aggregates: aggStore,
	})

	_, err := a.Aggregate(context.Background(), "P1")
	if !errors.Is(err, ErrNoParticipants) {
		t.Fatalf("expected ErrNoParticipants, got %v", err)
	}
	if domain.IsKind(err, domain.KindAggregationFailure) {
		t.Error("ErrNoParticipants must not be an AggregationFailure")
	}
	if _, err := aggStore.Get(context.Background(), "P1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected no aggregate written, got %v", err)
	}
}

func TestAggregator_WritesAggregate(t *testing.T) {
	ctx := context.Background()
	entries := memory.NewParticipantIndexStore()
	aggStore := memory.NewPlayerAggregateStore()
	seedEntries(t, entries, makeEntry("NA1_1", 1000, 99, true, 10, 2, 5))

	a := NewAggregator(AggregatorOptions{
		Entries:    entries,
		Aggregates: aggStore,
		Now:        func() time.Time { return time.UnixMilli(7000) },
	})

	got, err := a.Aggregate(ctx, "P1")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if got.TotalMatches != 1 || got.ChampionStats["99"].KDA != 7.5 {
		t.Errorf("unexpected aggregate: %+v", got)
	}

	stored, err := aggStore.Get(ctx, "P1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.LastUpdated != 7000 {
		t.Errorf("LastUpdated: got %d, want 7000", stored.LastUpdated)
	}

	// Recompute over the same history yields the same stored values.
	again, err := a.Aggregate(ctx, "P1")
	if err != nil {
		t.Fatalf("second Aggregate failed: %v", err)
	}
	if again.TotalMatches != stored.TotalMatches || again.WinRate != stored.WinRate {
		t.Errorf("recompute changed aggregate: %+v vs %+v", again, stored)
	}
}

func TestAggregator_IdentityAndCarryOver(t *testing.T) {
	ctx := context.Background()
	entries := memory.NewParticipantIndexStore()
	aggStore := memory.NewPlayerAggregateStore()
	seedEntries(t, entries, makeEntry("NA1_1", 1000, 99, true, 1, 1, 1))

	prev := &domain.PlayerAggregate{
		PUUID:    "P1",
		GameName: "Old",
		TagLine:  "NA1",
		Insight:  &domain.Insight{Severity: domain.SeverityInfo, Summary: "steady"},
	}
	if err := aggStore.Create(ctx, prev); err != nil {
		t.Fatalf("seed aggregate: %v", err)
	}

	failing := NewAggregator(AggregatorOptions{
		Entries:    entries,
		Aggregates: aggStore,
		Identity:   &fakeIdentity{err: errors.New("rate limited")},
	})
	got, err := failing.Aggregate(ctx, "P1")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if got.GameName != "Old" || got.TagLine != "NA1" {
		t.Errorf("identity not preserved: %s#%s", got.GameName, got.TagLine)
	}
	if got.Insight == nil || got.Insight.Summary != "steady" {
		t.Errorf("insight not preserved: %+v", got.Insight)
	}

	resolving := NewAggregator(AggregatorOptions{
		Entries:    entries,
		Aggregates: aggStore,
		Identity:   &fakeIdentity{acct: &riot.AccountDto{PUUID: "P1", GameName: "New", TagLine: "EUW"}},
	})
	got, err = resolving.Aggregate(ctx, "P1")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if got.GameName != "New" || got.TagLine != "EUW" {
		t.Errorf("identity not refreshed: %s#%s", got.GameName, got.TagLine)
	}
}

func TestAggregator_FallbackWrites(t *testing.T) {
	ctx := context.Background()
	entries := memory.NewParticipantIndexStore()
	store := &plainAggregates{PlayerAggregateStore: memory.NewPlayerAggregateStore()}
	seedEntries(t, entries, makeEntry("NA1_1", 1000, 1, true, 1, 1, 1))

	a := NewAggregator(AggregatorOptions{Entries: entries, Aggregates: store})

	if _, err := a.Aggregate(ctx, "P1"); err != nil {
		t.Fatalf("first Aggregate failed: %v", err)
	}
	if store.updates != 1 || store.creates != 1 {
		t.Errorf("first write: updates=%d creates=%d, want 1/1", store.updates, store.creates)
	}

	if _, err := a.Aggregate(ctx, "P1"); err != nil {
		t.Fatalf("second Aggregate failed: %v", err)
	}
	if store.updates != 2 || store.creates != 1 {
		t.Errorf("second write: updates=%d creates=%d, want 2/1", store.updates, store.creates)
	}
}

func TestAggregator_FallbackRetriesUpdateAfterDuplicate(t *testing.T) {
	ctx := context.Background()
	entries := memory.NewParticipantIndexStore()
	under := memory.NewPlayerAggregateStore()
	store := &racingAggregates{
		PlayerAggregateStore: under,
		rival:                &domain.PlayerAggregate{PUUID: "P1", TotalMatches: 42},
	}
	seedEntries(t, entries,
		makeEntry("NA1_1", 1000, 1, true, 1, 1, 1),
		makeEntry("NA1_2", 2000, 1, false, 1, 1, 1),
	)

	a := NewAggregator(AggregatorOptions{Entries: entries, Aggregates: store})

	if _, err := a.Aggregate(ctx, "P1"); err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if store.updates != 2 || store.creates != 1 {
		t.Errorf("writes: updates=%d creates=%d, want 2/1", store.updates, store.creates)
	}

	stored, err := under.Get(ctx, "P1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.TotalMatches != 2 {
		t.Errorf("rival row not replaced: TotalMatches=%d, want 2", stored.TotalMatches)
	}
}

func TestAggregator_ListFailure(t *testing.T) {
	a := NewAggregator(AggregatorOptions{
		Entries:    failingList{memory.NewParticipantIndexStore()},
		Aggregates: memory.NewPlayerAggregateStore(),
	})

	_, err := a.Aggregate(context.Background(), "P1")
	if !domain.IsKind(err, domain.KindAggregationFailure) {
		t.Fatalf("expected AggregationFailure, got %v", err)
	}
}

package insight

import (
	"context"
	"encoding/json"
	"strings"

	"rift-stats-lab/internal/backfill"
	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/logger"
	"rift-stats-lab/internal/storage"
)

// Enricher attaches generated insights to stored rows through side tasks.
// Generator and store failures are reported to the backfill observer only.
type Enricher struct {
	gen        Generator
	records    storage.MatchRecordStore
	entries    storage.ParticipantIndexStore
	aggregates storage.PlayerAggregateStore
	side       backfill.Submitter
	log        *logger.Logger
}

// EnricherOptions contains configuration for creating an Enricher.
type EnricherOptions struct {
	Generator  Generator // default Nop
	Records    storage.MatchRecordStore
	Entries    storage.ParticipantIndexStore
	Aggregates storage.PlayerAggregateStore
	Backfill   backfill.Submitter // default inline
	Logger     *logger.Logger
}

// NewEnricher creates a new insight enricher.
func NewEnricher(opts EnricherOptions) *Enricher {
	e := &Enricher{
		gen:        opts.Generator,
		records:    opts.Records,
		entries:    opts.Entries,
		aggregates: opts.Aggregates,
		side:       opts.Backfill,
		log:        logger.OrNop(opts.Logger).With("component", "insight"),
	}
	if e.gen == nil {
		e.gen = Nop{}
	}
	if e.side == nil {
		e.side = backfill.NewInline(nil)
	}
	return e
}

// Generator returns the underlying generator.
func (e *Enricher) Generator() Generator {
	return e.gen
}

// EnrichEntries submits one match analysis per entry.
func (e *Enricher) EnrichEntries(entries []*domain.ParticipantIndexEntry) {
	for _, entry := range entries {
		entry := entry.Clone()
		e.side.Submit("insight-entry:"+entry.MatchID, func(ctx context.Context) error {
			ins, err := e.gen.AnalyzeMatch(ctx, entry)
			if err != nil || ins == nil {
				return err
			}
			return e.entries.AttachInsight(ctx, entry.PUUID, entry.MatchID, ins)
		})
	}
}

// EnrichAggregate submits a player analysis.
func (e *Enricher) EnrichAggregate(agg *domain.PlayerAggregate) {
	agg = agg.Clone()
	e.side.Submit("insight-player:"+agg.PUUID, func(ctx context.Context) error {
		ins, err := e.gen.AnalyzePlayer(ctx, agg)
		if err != nil || ins == nil {
			return err
		}
		return e.aggregates.AttachInsight(ctx, agg.PUUID, ins)
	})
}

// EnrichTimeline submits a timeline analysis and stores its most severe
// moment as the match record's insight.
func (e *Enricher) EnrichTimeline(matchID string, timeline json.RawMessage) {
	e.side.Submit("insight-timeline:"+matchID, func(ctx context.Context) error {
		items, err := e.gen.AnalyzeTimeline(ctx, timeline)
		if err != nil {
			return err
		}
		ins := Summarize(items)
		if ins == nil {
			return nil
		}
		return e.records.AttachInsight(ctx, matchID, ins)
	})
}

// Summarize collapses timeline insights into one: the first of the highest
// severity, with every analysis of that severity joined. Returns nil for none.
func Summarize(items []domain.TimelineInsight) *domain.Insight {
	if len(items) == 0 {
		return nil
	}

	top := items[0].Severity
	for _, it := range items[1:] {
		if rank(it.Severity) > rank(top) {
			top = it.Severity
		}
	}

	var out *domain.Insight
	var analyses []string
	for _, it := range items {
		if it.Severity != top {
			continue
		}
		if out == nil {
			out = &domain.Insight{Severity: it.Severity, Summary: it.Summary}
		}
		if it.Analysis != "" {
			analyses = append(analyses, it.Analysis)
		}
	}
	out.Analysis = strings.Join(analyses, "\n")
	return out
}

func rank(s domain.Severity) int {
	switch s {
	case domain.SeverityWarning:
		return 2
	case domain.SeverityInfo:
		return 1
	default:
		return 0
	}
}

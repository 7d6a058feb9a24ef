// Package insight produces optional commentary on players, matches and
// timelines, and attaches it to stored rows without blocking the caller.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rift-stats-lab/internal/domain"
)

// Generator produces insights. A nil insight with a nil error means the
// generator has nothing to say.
type Generator interface {
	AnalyzePlayer(ctx context.Context, agg *domain.PlayerAggregate) (*domain.Insight, error)
	AnalyzeMatch(ctx context.Context, entry *domain.ParticipantIndexEntry) (*domain.Insight, error)
	AnalyzeHistory(ctx context.Context, entries []*domain.ParticipantIndexEntry) (*domain.Insight, error)
	AnalyzeTimeline(ctx context.Context, timeline json.RawMessage) ([]domain.TimelineInsight, error)
}

// Nop is the Generator used when no endpoint is configured.
type Nop struct{}

func (Nop) AnalyzePlayer(context.Context, *domain.PlayerAggregate) (*domain.Insight, error) {
	return nil, nil
}

func (Nop) AnalyzeMatch(context.Context, *domain.ParticipantIndexEntry) (*domain.Insight, error) {
	return nil, nil
}

func (Nop) AnalyzeHistory(context.Context, []*domain.ParticipantIndexEntry) (*domain.Insight, error) {
	return nil, nil
}

func (Nop) AnalyzeTimeline(context.Context, json.RawMessage) ([]domain.TimelineInsight, error) {
	return nil, nil
}

// Task names sent to the insight service.
const (
	TaskPlayer   = "player"
	TaskMatch    = "match"
	TaskHistory  = "history"
	TaskTimeline = "timeline"
)

// DefaultTimeout bounds one call to the insight service.
const DefaultTimeout = 20 * time.Second

// HTTPGenerator calls an external insight service.
// Each call is a POST of {"task": ..., "input": ...} to the endpoint.
type HTTPGenerator struct {
	endpoint   string
	httpClient *http.Client
}

// HTTPOption configures an HTTPGenerator.
type HTTPOption func(*HTTPGenerator)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(g *HTTPGenerator) {
		g.httpClient = client
	}
}

// NewHTTPGenerator creates a generator for endpoint. timeout <= 0 uses DefaultTimeout.
func NewHTTPGenerator(endpoint string, timeout time.Duration, opts ...HTTPOption) *HTTPGenerator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	g := &HTTPGenerator{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type request struct {
	Task  string `json:"task"`
	Input any    `json:"input"`
}

type timelineResponse struct {
	Insights []domain.TimelineInsight `json:"insights"`
}

// AnalyzePlayer comments on a player's aggregate.
func (g *HTTPGenerator) AnalyzePlayer(ctx context.Context, agg *domain.PlayerAggregate) (*domain.Insight, error) {
	return g.single(ctx, TaskPlayer, agg)
}

// AnalyzeMatch comments on one player's performance in one match.
func (g *HTTPGenerator) AnalyzeMatch(ctx context.Context, entry *domain.ParticipantIndexEntry) (*domain.Insight, error) {
	return g.single(ctx, TaskMatch, entry)
}

// AnalyzeHistory comments on a run of recent matches.
func (g *HTTPGenerator) AnalyzeHistory(ctx context.Context, entries []*domain.ParticipantIndexEntry) (*domain.Insight, error) {
	return g.single(ctx, TaskHistory, entries)
}

// AnalyzeTimeline returns insights anchored to timeline moments.
func (g *HTTPGenerator) AnalyzeTimeline(ctx context.Context, timeline json.RawMessage) ([]domain.TimelineInsight, error) {
	var resp timelineResponse
	if err := g.post(ctx, TaskTimeline, timeline, &resp); err != nil {
		return nil, err
	}
	for i, ti := range resp.Insights {
		if !ti.Severity.Valid() {
			return nil, domain.Errorf(domain.KindInvalidUpstreamPayload, "insight.AnalyzeTimeline", "insight %d: invalid severity %q", i, ti.Severity)
		}
	}
	return resp.Insights, nil
}

func (g *HTTPGenerator) single(ctx context.Context, task string, input any) (*domain.Insight, error) {
	var ins domain.Insight
	if err := g.post(ctx, task, input, &ins); err != nil {
		return nil, err
	}
	if !ins.Severity.Valid() {
		return nil, domain.Errorf(domain.KindInvalidUpstreamPayload, "insight."+task, "invalid severity %q", ins.Severity)
	}
	return &ins, nil
}

func (g *HTTPGenerator) post(ctx context.Context, task string, input any, out any) error {
	op := "insight." + task

	body, err := json.Marshal(request{Task: task, Input: input})
	if err != nil {
		return domain.Errorf(domain.KindInternal, op, "marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Errorf(domain.KindInternal, op, "create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.NewError(domain.KindUpstreamUnavailable, op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Errorf(domain.KindUpstreamUnavailable, op, "read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Errorf(domain.KindUpstreamUnavailable, op, "status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return domain.NewError(domain.KindInvalidUpstreamPayload, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

var (
	_ Generator = Nop{}
	_ Generator = (*HTTPGenerator)(nil)
)

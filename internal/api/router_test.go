package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rift-stats-lab/internal/backfill"
	"rift-stats-lab/internal/cache"
	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/ingestion"
	"rift-stats-lab/internal/metrics"
	"rift-stats-lab/internal/orchestrator"
	"rift-stats-lab/internal/player"
	"rift-stats-lab/internal/riot"
	"rift-stats-lab/internal/storage/memory"
)

const roundTripMatch = `{"metadata":{"matchId":"NA1_1"},"info":{"gameCreation":1000,"gameDuration":1500,"queueId":420,"gameMode":"CLASSIC","participants":[{"puuid":"P1","kills":10,"deaths":2,"assists":5,"championId":99,"championName":"Lux","win":true,"teamPosition":"MIDDLE"}]}}`

// stubUpstream serves fixed payloads keyed by match ID.
type stubUpstream struct {
	matches map[string]json.RawMessage
	errs    map[string]error
	ids     []string
}

func (s *stubUpstream) GetMatch(_ context.Context, matchID, _ string) (json.RawMessage, error) {
	if err, ok := s.errs[matchID]; ok {
		return nil, err
	}
	if raw, ok := s.matches[matchID]; ok {
		return raw, nil
	}
	return nil, domain.Errorf(domain.KindNotFound, "stub.GetMatch", "%s", matchID)
}

func (s *stubUpstream) GetTimeline(_ context.Context, matchID, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"metadata":{"matchId":"` + matchID + `"},"info":{"frames":[]}}`), nil
}

func (s *stubUpstream) ListMatchIDs(context.Context, string, riot.MatchListOptions, string) ([]string, error) {
	return s.ids, nil
}

func (s *stubUpstream) GetAccountByRiotID(_ context.Context, gameName, tagLine, _ string) (*riot.AccountDto, error) {
	if gameName == "ghost" {
		return nil, domain.Errorf(domain.KindNotFound, "stub.GetAccountByRiotID", "no account")
	}
	return &riot.AccountDto{PUUID: "P1", GameName: gameName, TagLine: tagLine}, nil
}

type testServer struct {
	srv      *httptest.Server
	upstream *stubUpstream
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	records := memory.NewMatchRecordStore()
	entries := memory.NewParticipantIndexStore()
	aggregates := memory.NewPlayerAggregateStore()
	objects := cache.NewMemoryCache(0)
	t.Cleanup(func() { _ = objects.Close() })

	upstream := &stubUpstream{
		matches: map[string]json.RawMessage{"NA1_1": json.RawMessage(roundTripMatch)},
		errs:    map[string]error{},
		ids:     []string{"NA1_1"},
	}
	side := backfill.NewInline(nil)

	orch := orchestrator.New(orchestrator.Options{
		Records: records, Cache: objects, Upstream: upstream, Backfill: side,
	})
	agg := metrics.NewAggregator(metrics.AggregatorOptions{Entries: entries, Aggregates: aggregates})
	pipe := ingestion.New(ingestion.Options{
		Records: records, Entries: entries, Resolver: orch, Lister: upstream, Aggregator: agg,
	})
	players := player.NewService(player.Options{
		Entries: entries, Aggregates: aggregates, Ingester: pipe, Aggregator: agg, Accounts: upstream,
	})

	router := NewRouter(Config{
		Players:    players,
		Ingester:   pipe,
		Aggregator: agg,
		Entries:    entries,
		Resolver:   orch,
		Version:    "test",
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, upstream: upstream}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, apiResponse, http.Header) {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out, resp.Header
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	status, resp, hdr := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, hdr.Get(RequestIDHeader))

	var h HealthResponse
	require.NoError(t, json.Unmarshal(resp.Data, &h))
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "test", h.Version)
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-123", resp.Header.Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProcessMatchThenAggregate(t *testing.T) {
	ts := newTestServer(t)

	status, resp, _ := ts.do(t, http.MethodPost, "/api/v1/matches", roundTripMatch)
	require.Equal(t, http.StatusOK, status, "body: %+v", resp.Error)

	var res ingestion.MatchResult
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.ParticipantsProcessed)

	status, resp, _ = ts.do(t, http.MethodPost, "/api/v1/players/P1/aggregate", "")
	require.Equal(t, http.StatusOK, status)

	var agg domain.PlayerAggregate
	require.NoError(t, json.Unmarshal(resp.Data, &agg))
	assert.Equal(t, 1, agg.TotalMatches)
	assert.InDelta(t, 1.0, agg.WinRate, 1e-9)
	assert.InDelta(t, 7.5, agg.ChampionStats["99"].KDA, 1e-9)

	status, resp, _ = ts.do(t, http.MethodGet, "/api/v1/players/P1/matches?limit=5", "")
	require.Equal(t, http.StatusOK, status)
	var entries []domain.ParticipantIndexEntry
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	require.Len(t, entries, 1)
	assert.InDelta(t, 7.5, entries[0].KDA, 1e-9)

	// The stored record now serves the match from the primary tier.
	status, resp, _ = ts.do(t, http.MethodGet, "/api/v1/matches/NA1_1", "")
	require.Equal(t, http.StatusOK, status)
	var resolved orchestrator.Resolution
	require.NoError(t, json.Unmarshal(resp.Data, &resolved))
	assert.Equal(t, orchestrator.TierPrimary, resolved.Tier)
}

func TestAggregateWithoutParticipants(t *testing.T) {
	ts := newTestServer(t)

	status, resp, _ := ts.do(t, http.MethodPost, "/api/v1/players/NOBODY/aggregate", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNoParticipants, resp.Error.Code)
}

func TestProcessMatch_Invalid(t *testing.T) {
	ts := newTestServer(t)

	status, resp, _ := ts.do(t, http.MethodPost, "/api/v1/matches", `{"metadata":{},"info":{}}`)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_MATCH_DATA", resp.Error.Code)

	status, resp, _ = ts.do(t, http.MethodPost, "/api/v1/matches", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
}

func TestGetMatch_ErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	ts.upstream.matches["NA1_BAD"] = json.RawMessage(`[]`)
	ts.upstream.errs["NA1_DOWN"] = domain.Errorf(domain.KindUpstreamUnavailable, "stub", "503")

	cases := []struct {
		path   string
		status int
		code   string
	}{
		{"/api/v1/matches/NA1_404", http.StatusNotFound, "NOT_FOUND"},
		{"/api/v1/matches/NA1_BAD", http.StatusBadGateway, "INVALID_UPSTREAM_PAYLOAD"},
		{"/api/v1/matches/NA1_DOWN", http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			status, resp, _ := ts.do(t, http.MethodGet, tc.path, "")
			assert.Equal(t, tc.status, status)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
		})
	}
}

func TestGetMatch_UpstreamThenCached(t *testing.T) {
	ts := newTestServer(t)

	status, resp, _ := ts.do(t, http.MethodGet, "/api/v1/matches/NA1_1?platform=na1", "")
	require.Equal(t, http.StatusOK, status)
	var first orchestrator.Resolution
	require.NoError(t, json.Unmarshal(resp.Data, &first))
	assert.Equal(t, orchestrator.TierUpstream, first.Tier)

	status, resp, _ = ts.do(t, http.MethodGet, "/api/v1/matches/NA1_1", "")
	require.Equal(t, http.StatusOK, status)
	var second orchestrator.Resolution
	require.NoError(t, json.Unmarshal(resp.Data, &second))
	assert.Equal(t, orchestrator.TierPrimary, second.Tier)
}

func TestGetTimeline(t *testing.T) {
	ts := newTestServer(t)

	status, resp, _ := ts.do(t, http.MethodGet, "/api/v1/matches/NA1_1/timeline", "")
	require.Equal(t, http.StatusOK, status)
	var res orchestrator.Resolution
	require.NoError(t, json.Unmarshal(resp.Data, &res))
	assert.Equal(t, orchestrator.TierUpstream, res.Tier)
}

func TestGetPlayer_LookupIngests(t *testing.T) {
	ts := newTestServer(t)

	status, resp, _ := ts.do(t, http.MethodGet, "/api/v1/players/P1?count=5&platform=na1", "")
	require.Equal(t, http.StatusOK, status, "error: %+v", resp.Error)

	var v player.View
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	assert.Equal(t, domain.PlayerStateReady, v.State)
	assert.Len(t, v.Entries, 1)
	require.NotNil(t, v.Aggregate)
	assert.Equal(t, 1, v.Aggregate.TotalMatches)
	require.NotNil(t, v.Ingestion)
	assert.Equal(t, 1, v.Ingestion.Processed)

	status, resp, _ = ts.do(t, http.MethodGet, "/api/v1/players/P1/state", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(resp.Data), `"READY"`)
}

func TestGetPlayer_BadParams(t *testing.T) {
	ts := newTestServer(t)

	for _, q := range []string{"?force=maybe", "?count=-1", "?limit=abc"} {
		status, resp, _ := ts.do(t, http.MethodGet, "/api/v1/players/P1"+q, "")
		assert.Equal(t, http.StatusBadRequest, status, q)
		require.NotNil(t, resp.Error, q)
		assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	}
}

func TestIngestPlayer(t *testing.T) {
	ts := newTestServer(t)

	status, resp, _ := ts.do(t, http.MethodPost, "/api/v1/players/P1/ingest", `{"matchIds":["NA1_1"],"platform":"na1"}`)
	require.Equal(t, http.StatusOK, status, "error: %+v", resp.Error)

	var summary ingestion.Summary
	require.NoError(t, json.Unmarshal(resp.Data, &summary))
	assert.Equal(t, 1, summary.Processed)
	require.NotNil(t, summary.Aggregation)

	// Re-ingesting is a no-op for stored entries.
	status, resp, _ = ts.do(t, http.MethodPost, "/api/v1/players/P1/ingest", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(resp.Data, &summary))
	assert.Equal(t, 0, summary.ParticipantsProcessed)
	assert.Equal(t, 1, summary.ParticipantsSkipped)
}

func TestSearchAccount(t *testing.T) {
	ts := newTestServer(t)

	status, resp, _ := ts.do(t, http.MethodGet, "/api/v1/accounts/Faker/KR1?region=asia", "")
	require.Equal(t, http.StatusOK, status)
	var acct riot.AccountDto
	require.NoError(t, json.Unmarshal(resp.Data, &acct))
	assert.Equal(t, "P1", acct.PUUID)

	status, resp, _ = ts.do(t, http.MethodGet, "/api/v1/accounts/ghost/NA1", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestGetPlayerInsight_NoHistory(t *testing.T) {
	ts := newTestServer(t)

	status, resp, _ := ts.do(t, http.MethodGet, "/api/v1/players/P9/insight", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestRecovery(t *testing.T) {
	h := Recovery(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "INTERNAL", body.Error.Code)
}

func TestToAPIError_InternalHidesMessage(t *testing.T) {
	e := toAPIError(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, e.Status)
	assert.Equal(t, "INTERNAL", e.Code)
	assert.Equal(t, "internal error", e.Message)

	e = toAPIError(domain.Errorf(domain.KindAggregationFailure, "op", "x"))
	assert.Equal(t, http.StatusInternalServerError, e.Status)
	assert.Equal(t, "AGGREGATION_FAILURE", e.Code)
}

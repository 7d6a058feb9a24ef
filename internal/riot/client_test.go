package riot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"rift-stats-lab/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) (*Client, *[]string) {
	t.Helper()
	var regions []string
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]ClientOption{
		WithBaseURLFunc(func(region string) string {
			regions = append(regions, region)
			return server.URL
		}),
		WithRetryDelay(time.Millisecond),
	}, opts...)
	return NewClient("RGAPI-test", opts...), &regions
}

func TestClient_GetMatch(t *testing.T) {
	client, regions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Riot-Token") != "RGAPI-test" {
			t.Errorf("missing X-Riot-Token header")
		}
		if r.URL.Path != "/lol/match/v5/matches/EUW1_42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"metadata":{"matchId":"EUW1_42"},"info":{"gameCreation":1}}`))
	})

	raw, err := client.GetMatch(context.Background(), "EUW1_42", "")
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if !strings.Contains(string(raw), "EUW1_42") {
		t.Errorf("unexpected payload %s", raw)
	}
	if (*regions)[0] != RegionEurope {
		t.Errorf("region from match id: got %s, want europe", (*regions)[0])
	}
}

func TestClient_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetMatch(context.Background(), "NA1_404", "na1")
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestClient_ServerErrorIsUnavailable(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, WithMaxRetries(3))

	_, err := client.GetTimeline(context.Background(), "NA1_1", "na1")
	if !domain.IsKind(err, domain.KindUpstreamUnavailable) {
		t.Fatalf("expected UpstreamUnavailable, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("5xx must not be retried: %d calls", calls.Load())
	}
}

func TestClient_RetriesOnlyRateLimit(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`["NA1_1","NA1_2"]`))
	}, WithMaxRetries(2))

	ids, err := client.ListMatchIDs(context.Background(), "p1", MatchListOptions{Count: 5}, "na1")
	if err != nil {
		t.Fatalf("ListMatchIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %d", len(ids))
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClient_RateLimitWithoutRetries(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.GetMatch(context.Background(), "NA1_1", "")
	if !domain.IsKind(err, domain.KindUpstreamUnavailable) {
		t.Fatalf("expected UpstreamUnavailable, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("default maxRetries is 0: got %d calls", calls.Load())
	}
}

func TestClient_Timeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}, WithTimeout(20*time.Millisecond))

	_, err := client.GetMatch(context.Background(), "NA1_1", "")
	if !domain.IsKind(err, domain.KindUpstreamUnavailable) {
		t.Fatalf("expected UpstreamUnavailable on timeout, got %v", err)
	}
}

func TestClient_InvalidPayload(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})

	_, err := client.GetMatch(context.Background(), "NA1_1", "")
	if !domain.IsKind(err, domain.KindInvalidUpstreamPayload) {
		t.Fatalf("expected InvalidUpstreamPayload, got %v", err)
	}
}

func TestClient_ListMatchIDsQuery(t *testing.T) {
	client, regions := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("count") != "100" {
			t.Errorf("count not capped: %s", q.Get("count"))
		}
		if q.Get("startTime") != "1700000000" {
			t.Errorf("startTime: %s", q.Get("startTime"))
		}
		if q.Has("start") {
			t.Errorf("zero start should be omitted")
		}
		w.Write([]byte(`[]`))
	})

	ids, err := client.ListMatchIDs(context.Background(), "p1", MatchListOptions{Count: 500, StartTime: 1700000000}, "KR")
	if err != nil {
		t.Fatalf("ListMatchIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty list")
	}
	if (*regions)[0] != RegionAsia {
		t.Errorf("region: got %s, want asia", (*regions)[0])
	}
}

func TestClient_GetAccountByRiotID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/riot/account/v1/accounts/by-riot-id/Hide%20on%20bush/KR1" {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		w.Write([]byte(`{"puuid":"p-faker","gameName":"Hide on bush","tagLine":"KR1"}`))
	})

	acct, err := client.GetAccountByRiotID(context.Background(), "Hide on bush", "KR1", "asia")
	if err != nil {
		t.Fatalf("GetAccountByRiotID failed: %v", err)
	}
	if acct.PUUID != "p-faker" {
		t.Errorf("puuid: got %s", acct.PUUID)
	}
}

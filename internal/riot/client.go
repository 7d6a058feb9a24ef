package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rift-stats-lab/internal/domain"
	"rift-stats-lab/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxRetries  = 0
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// MaxMatchListCount is the upstream cap on match-id listing.
	MaxMatchListCount = 100
)

// Client is an HTTP client for the Riot account-v1 and match-v5 APIs.
type Client struct {
	apiKey           string
	client           *http.Client
	maxRetries       int
	retryDelay       time.Duration
	maxDelay         time.Duration
	backoffMult      float64
	baseURL          func(region string) string
	fallbackRegion   string
	fallbackPlatform string
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithMaxRetries sets how many times a 429 response is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelay sets the initial backoff when Retry-After is absent.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay caps a single retry wait.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithBaseURLFunc overrides how a region maps to a base URL.
func WithBaseURLFunc(fn func(region string) string) ClientOption {
	return func(c *Client) {
		c.baseURL = fn
	}
}

// WithFallbackRegion sets the region used for unknown routing hints.
func WithFallbackRegion(region string) ClientOption {
	return func(c *Client) {
		if region != "" {
			c.fallbackRegion = strings.ToLower(region)
		}
	}
}

// WithFallbackPlatform sets the platform used when no hint is given.
func WithFallbackPlatform(platform string) ClientOption {
	return func(c *Client) {
		if platform != "" {
			c.fallbackPlatform = strings.ToLower(platform)
		}
	}
}

// NewClient creates a new Riot API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:         apiKey,
		client:         &http.Client{Timeout: DefaultTimeout},
		maxRetries:     DefaultMaxRetries,
		retryDelay:     DefaultRetryDelay,
		maxDelay:       DefaultMaxDelay,
		backoffMult:    DefaultBackoffMult,
		baseURL:        defaultBaseURL,
		fallbackRegion: RegionAmericas,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultBaseURL(region string) string {
	return "https://" + region + ".api.riotgames.com"
}

// Region resolves a routing hint to a regional routing value.
func (c *Client) Region(hint string) string {
	if hint == "" {
		hint = c.fallbackPlatform
	}
	return RegionForPlatform(hint, c.fallbackRegion)
}

// GetAccountByRiotID resolves a Riot ID (gameName#tagLine).
func (c *Client) GetAccountByRiotID(ctx context.Context, gameName, tagLine, region string) (*AccountDto, error) {
	const op = "riot.GetAccountByRiotID"
	path := fmt.Sprintf("/riot/account/v1/accounts/by-riot-id/%s/%s",
		url.PathEscape(gameName), url.PathEscape(tagLine))

	body, err := c.get(ctx, op, "account", c.Region(region), path, nil)
	if err != nil {
		return nil, err
	}
	return decodeAccount(op, body)
}

// GetAccountByPUUID resolves an account by PUUID.
func (c *Client) GetAccountByPUUID(ctx context.Context, puuid, region string) (*AccountDto, error) {
	const op = "riot.GetAccountByPUUID"
	path := "/riot/account/v1/accounts/by-puuid/" + url.PathEscape(puuid)

	body, err := c.get(ctx, op, "account", c.Region(region), path, nil)
	if err != nil {
		return nil, err
	}
	return decodeAccount(op, body)
}

// ListMatchIDs lists match IDs for a player, newest first. Count is capped at 100.
func (c *Client) ListMatchIDs(ctx context.Context, puuid string, opts MatchListOptions, platform string) ([]string, error) {
	const op = "riot.ListMatchIDs"
	path := "/lol/match/v5/matches/by-puuid/" + url.PathEscape(puuid) + "/ids"

	q := url.Values{}
	if opts.Start > 0 {
		q.Set("start", strconv.Itoa(opts.Start))
	}
	if opts.Count > 0 {
		count := opts.Count
		if count > MaxMatchListCount {
			count = MaxMatchListCount
		}
		q.Set("count", strconv.Itoa(count))
	}
	if opts.StartTime > 0 {
		q.Set("startTime", strconv.FormatInt(opts.StartTime, 10))
	}
	if opts.EndTime > 0 {
		q.Set("endTime", strconv.FormatInt(opts.EndTime, 10))
	}
	if opts.Queue > 0 {
		q.Set("queue", strconv.Itoa(opts.Queue))
	}
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}

	body, err := c.get(ctx, op, "match_ids", c.Region(platform), path, q)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, domain.Errorf(domain.KindInvalidUpstreamPayload, op, "decode match ids: %v", err)
	}
	return ids, nil
}

// GetMatch fetches a match payload and checks its shape.
func (c *Client) GetMatch(ctx context.Context, matchID, platform string) (json.RawMessage, error) {
	const op = "riot.GetMatch"
	body, err := c.get(ctx, op, "match", c.Region(c.hintFor(matchID, platform)), "/lol/match/v5/matches/"+url.PathEscape(matchID), nil)
	if err != nil {
		return nil, err
	}
	if err := ValidateMatchPayload(body); err != nil {
		return nil, domain.NewError(domain.KindInvalidUpstreamPayload, op, err)
	}
	return json.RawMessage(body), nil
}

// GetTimeline fetches a match timeline payload and checks its shape.
func (c *Client) GetTimeline(ctx context.Context, matchID, platform string) (json.RawMessage, error) {
	const op = "riot.GetTimeline"
	body, err := c.get(ctx, op, "timeline", c.Region(c.hintFor(matchID, platform)), "/lol/match/v5/matches/"+url.PathEscape(matchID)+"/timeline", nil)
	if err != nil {
		return nil, err
	}
	if err := ValidateTimelinePayload(body); err != nil {
		return nil, domain.NewError(domain.KindInvalidUpstreamPayload, op, err)
	}
	return json.RawMessage(body), nil
}

// hintFor prefers an explicit hint, then the match ID prefix.
func (c *Client) hintFor(matchID, hint string) string {
	if hint != "" {
		return hint
	}
	return PlatformFromMatchID(matchID)
}

func decodeAccount(op string, body []byte) (*AccountDto, error) {
	var account AccountDto
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, domain.Errorf(domain.KindInvalidUpstreamPayload, op, "decode account: %v", err)
	}
	if account.PUUID == "" {
		return nil, domain.Errorf(domain.KindInvalidUpstreamPayload, op, "account without puuid")
	}
	return &account, nil
}

// get performs a GET with 429 retries and maps failures onto domain error kinds.
func (c *Client) get(ctx context.Context, op, endpoint, region, path string, query url.Values) ([]byte, error) {
	target := c.baseURL(region) + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, domain.Errorf(domain.KindInternal, op, "create request: %v", err)
		}
		req.Header.Set("X-Riot-Token", c.apiKey)
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.client.Do(req)
		if err != nil {
			observability.RecordUpstreamCall(endpoint, "error", time.Since(start))
			return nil, domain.NewError(domain.KindUpstreamUnavailable, op, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		observability.RecordUpstreamCall(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
		if err != nil {
			return nil, domain.Errorf(domain.KindUpstreamUnavailable, op, "read response: %v", err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, domain.Errorf(domain.KindNotFound, op, "%s not found", path)
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = errors.New("rate limited (429)")
			if attempt == c.maxRetries {
				break
			}
			wait := retryAfter(resp.Header.Get("Retry-After"), delay)
			if c.maxDelay > 0 && wait > c.maxDelay {
				wait = c.maxDelay
			}
			select {
			case <-ctx.Done():
				return nil, domain.NewError(domain.KindUpstreamUnavailable, op, ctx.Err())
			case <-time.After(wait):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
		default:
			return nil, domain.Errorf(domain.KindUpstreamUnavailable, op, "unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
		}
	}

	return nil, domain.NewError(domain.KindUpstreamUnavailable, op, lastErr)
}

// retryAfter parses a Retry-After header in seconds, falling back to def.
func retryAfter(header string, def time.Duration) time.Duration {
	if header == "" {
		return def
	}
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

package leaguestat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/jmorneau/rinkstats/internal/domain/rawdata"
	"github.com/jmorneau/rinkstats/internal/platform/logging"
	"github.com/jmorneau/rinkstats/internal/platform/resilience"
	"github.com/jmorneau/rinkstats/internal/usecase"
)

// The modulekit feed serves every view from one URL; the view parameter
// selects the record set and the SiteKit envelope key matches it.
const (
	defaultBaseURL    = "https://lscluster.hockeytech.com/feed/"
	defaultClientCode = "pwhl"
	defaultLeagueID   = "1"
	feedName          = "modulekit"
	maxResponseBytes  = 6 << 20
	defaultRateLimit  = 4
)

var apiKeyParamRegex = regexp.MustCompile(`key=[^&\s"']+`)
var errLeagueStatTransient = crerr.New("leaguestat transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Key            string
	ClientCode     string
	LeagueID       string
	Timeout        time.Duration
	MaxRetries     int
	RateLimit      float64
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	key            string
	clientCode     string
	leagueID       string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	limiter        *rate.Limiter
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = strings.TrimRight(defaultBaseURL, "/")
	}
	clientCode := strings.TrimSpace(cfg.ClientCode)
	if clientCode == "" {
		clientCode = defaultClientCode
	}
	leagueID := strings.TrimSpace(cfg.LeagueID)
	if leagueID == "" {
		leagueID = defaultLeagueID
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = defaultRateLimit
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		key:            strings.TrimSpace(cfg.Key),
		clientCode:     clientCode,
		leagueID:       leagueID,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *Client) Seasons(ctx context.Context) ([]usecase.ExternalSeason, rawdata.Payload, error) {
	rows, raw, err := c.fetchView(ctx, "seasons", nil)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch seasons: %w", err)
	}
	return parseSeasons(rows), c.buildPayload("seasons", nil, raw), nil
}

func (c *Client) Teams(ctx context.Context, seasonID int64) ([]usecase.ExternalTeam, rawdata.Payload, error) {
	if seasonID <= 0 {
		return nil, rawdata.Payload{}, fmt.Errorf("season id must be greater than zero")
	}
	params := map[string]string{"season_id": formatID(seasonID)}
	rows, raw, err := c.fetchView(ctx, "teamsbyseason", params)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch teams season_id=%d: %w", seasonID, err)
	}
	payload := c.buildPayload("teamsbyseason", params, raw)
	payload.SeasonID = &seasonID
	return parseTeams(rows), payload, nil
}

func (c *Client) Roster(ctx context.Context, teamID, seasonID int64) ([]usecase.ExternalRosterPlayer, rawdata.Payload, error) {
	if teamID <= 0 || seasonID <= 0 {
		return nil, rawdata.Payload{}, fmt.Errorf("team id and season id must be greater than zero")
	}
	params := map[string]string{
		"team_id":   formatID(teamID),
		"season_id": formatID(seasonID),
	}
	rows, raw, err := c.fetchView(ctx, "roster", params)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch roster team_id=%d season_id=%d: %w", teamID, seasonID, err)
	}
	payload := c.buildPayload("roster", params, raw)
	payload.SeasonID = &seasonID
	payload.TeamID = &teamID
	return parseRoster(rows), payload, nil
}

func (c *Client) Schedule(ctx context.Context, seasonID int64) ([]usecase.ExternalGame, rawdata.Payload, error) {
	if seasonID <= 0 {
		return nil, rawdata.Payload{}, fmt.Errorf("season id must be greater than zero")
	}
	params := map[string]string{"season_id": formatID(seasonID)}
	rows, raw, err := c.fetchView(ctx, "schedule", params)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch schedule season_id=%d: %w", seasonID, err)
	}
	payload := c.buildPayload("schedule", params, raw)
	payload.SeasonID = &seasonID
	return parseSchedule(rows, seasonID), payload, nil
}

func (c *Client) SkaterStats(ctx context.Context, seasonID int64) ([]usecase.ExternalSkaterLine, rawdata.Payload, error) {
	if seasonID <= 0 {
		return nil, rawdata.Payload{}, fmt.Errorf("season id must be greater than zero")
	}
	params := map[string]string{
		"type":      "skaters",
		"season_id": formatID(seasonID),
		"team_id":   "0",
		"league_id": c.leagueID,
	}
	rows, raw, err := c.fetchView(ctx, "statviewtype", params)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch skater stats season_id=%d: %w", seasonID, err)
	}
	payload := c.buildPayload("statviewtype", params, raw)
	payload.SeasonID = &seasonID
	return parseSkaters(rows), payload, nil
}

func (c *Client) GoalieStats(ctx context.Context, seasonID int64) ([]usecase.ExternalGoalieLine, rawdata.Payload, error) {
	if seasonID <= 0 {
		return nil, rawdata.Payload{}, fmt.Errorf("season id must be greater than zero")
	}
	params := map[string]string{
		"type":      "goalies",
		"season_id": formatID(seasonID),
		"team_id":   "0",
		"league_id": c.leagueID,
	}
	rows, raw, err := c.fetchView(ctx, "statviewtype", params)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch goalie stats season_id=%d: %w", seasonID, err)
	}
	payload := c.buildPayload("statviewtype", params, raw)
	payload.SeasonID = &seasonID
	return parseGoalies(rows), payload, nil
}

func (c *Client) Standings(ctx context.Context, seasonID int64) ([]usecase.ExternalStandingsRow, rawdata.Payload, error) {
	if seasonID <= 0 {
		return nil, rawdata.Payload{}, fmt.Errorf("season id must be greater than zero")
	}
	params := map[string]string{
		"stat":      "conference",
		"type":      "standings",
		"season_id": formatID(seasonID),
		"league_id": c.leagueID,
	}
	rows, raw, err := c.fetchView(ctx, "statviewtype", params)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch standings season_id=%d: %w", seasonID, err)
	}
	payload := c.buildPayload("statviewtype", params, raw)
	payload.SeasonID = &seasonID
	return parseStandings(rows), payload, nil
}

// fetchView requests one modulekit view and unpacks its SiteKit envelope.
// Rows come back as loose maps because field names and value encodings vary
// per view and per season era.
func (c *Client) fetchView(ctx context.Context, view string, params map[string]string) ([]map[string]any, []byte, error) {
	values := url.Values{}
	values.Set("feed", feedName)
	values.Set("view", view)
	values.Set("key", c.key)
	values.Set("client_code", c.clientCode)
	values.Set("fmt", "json")
	for key, value := range params {
		values.Set(key, value)
	}

	raw, err := c.doRequest(ctx, values)
	if err != nil {
		return nil, nil, err
	}

	var envelope struct {
		SiteKit map[string]any `json:"SiteKit"`
	}
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return nil, nil, fmt.Errorf("decode feed payload: %w", err)
	}

	rows := extractRows(envelope.SiteKit[envelopeKey(view)])
	return rows, raw, nil
}

func (c *Client) doRequest(ctx context.Context, values url.Values) ([]byte, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "leaguestat circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: stats feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := c.baseURL + "/?" + values.Encode()

	key := values.Encode()
	out, err, _ := c.flight.Do(key, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isTransient(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errLeagueStatTransient, sanitizeSensitiveText(err.Error(), c.key))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errLeagueStatTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: feed status=%d body=%s", errLeagueStatTransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, fmt.Errorf("feed status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("feed request failed")
	}
	c.logger.WarnContext(ctx, "leaguestat request failed", "url", redactFeedURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func (c *Client) buildPayload(view string, params map[string]string, raw []byte) rawdata.Payload {
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}

	entityKey := view
	if encoded := values.Encode(); encoded != "" {
		entityKey += "?" + encoded
	}
	return rawdata.Payload{
		Source:      "leaguestat",
		EntityType:  view,
		EntityKey:   entityKey,
		PayloadJSON: string(raw),
	}
}

// envelopeKey capitalizes the view name the way the feed does: the SiteKit
// key for view=teamsbyseason is Teamsbyseason.
func envelopeKey(view string) string {
	if view == "" {
		return ""
	}
	return strings.ToUpper(view[:1]) + view[1:]
}

// extractRows tolerates the envelope containing a list, a single object, or
// nothing at all for an empty view.
func extractRows(node any) []map[string]any {
	switch typed := node.(type) {
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			if row, ok := item.(map[string]any); ok {
				out = append(out, row)
			}
		}
		return out
	case map[string]any:
		return []map[string]any{typed}
	default:
		return nil
	}
}

func isTransient(err error) bool {
	return crerr.Is(err, errLeagueStatTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func sanitizeSensitiveText(value, key string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if key != "" {
		value = strings.ReplaceAll(value, key, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "key=REDACTED")
}

func redactFeedURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	if query.Has("key") {
		query.Set("key", "REDACTED")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}

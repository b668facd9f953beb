package pbparchive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	gocsv "github.com/gocarina/gocsv"
	"github.com/sourcegraph/conc/pool"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/jmorneau/rinkstats/internal/domain/rawdata"
	"github.com/jmorneau/rinkstats/internal/platform/logging"
	"github.com/jmorneau/rinkstats/internal/platform/resilience"
	"github.com/jmorneau/rinkstats/internal/usecase"
)

// The archive is a flat set of CSV files served from a GitHub raw endpoint.
// Files are league-wide, not per game, so one refresh pulls at most seven
// resources.
const (
	defaultBaseURL = "https://raw.githubusercontent.com/IsabelleLefebvre97/PWHL-Data-Reference/main/data"

	resourcePlayers      = "players/all_players.csv"
	resourceShots        = "games/play_by_play/shots.csv"
	resourceGoals        = "games/play_by_play/goals.csv"
	resourcePenalties    = "games/play_by_play/penalties.csv"
	resourceFaceoffs     = "games/play_by_play/faceoffs.csv"
	resourceHits         = "games/play_by_play/hits.csv"
	resourceBlockedShots = "games/play_by_play/blocked_shots.csv"

	maxResponseBytes     = 64 << 20
	maxRedirects         = 3
	defaultMaxConcurrent = 3
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}
var errArchiveTransient = crerr.New("archive transient failure")

type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	MaxConcurrent  int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *fasthttp.Client
	baseURL        string
	maxRetries     int
	maxConcurrent  int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient: &fasthttp.Client{
			Name:                "rinkstats-archive",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxResponseBytes,
		},
		baseURL:        baseURL,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		maxConcurrent:  maxConcurrent,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) Players(ctx context.Context) ([]usecase.ArchivePlayer, rawdata.Payload, error) {
	var rows []playerRow
	payload, err := c.fetchResource(ctx, resourcePlayers, &rows)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch archive players: %w", err)
	}
	return mapPlayers(rows), payload, nil
}

func (c *Client) Shots(ctx context.Context) ([]usecase.ArchiveShot, rawdata.Payload, error) {
	var rows []shotRow
	payload, err := c.fetchResource(ctx, resourceShots, &rows)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch archive shots: %w", err)
	}
	return mapShots(rows), payload, nil
}

func (c *Client) Goals(ctx context.Context) ([]usecase.ArchiveGoal, rawdata.Payload, error) {
	var rows []goalRow
	payload, err := c.fetchResource(ctx, resourceGoals, &rows)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch archive goals: %w", err)
	}
	return mapGoals(rows), payload, nil
}

func (c *Client) Penalties(ctx context.Context) ([]usecase.ArchivePenalty, rawdata.Payload, error) {
	var rows []penaltyRow
	payload, err := c.fetchResource(ctx, resourcePenalties, &rows)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch archive penalties: %w", err)
	}
	return mapPenalties(rows), payload, nil
}

func (c *Client) Faceoffs(ctx context.Context) ([]usecase.ArchiveFaceoff, rawdata.Payload, error) {
	var rows []faceoffRow
	payload, err := c.fetchResource(ctx, resourceFaceoffs, &rows)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch archive faceoffs: %w", err)
	}
	return mapFaceoffs(rows), payload, nil
}

func (c *Client) Hits(ctx context.Context) ([]usecase.ArchiveHit, rawdata.Payload, error) {
	var rows []hitRow
	payload, err := c.fetchResource(ctx, resourceHits, &rows)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch archive hits: %w", err)
	}
	return mapHits(rows), payload, nil
}

func (c *Client) BlockedShots(ctx context.Context) ([]usecase.ArchiveBlockedShot, rawdata.Payload, error) {
	var rows []blockedShotRow
	payload, err := c.fetchResource(ctx, resourceBlockedShots, &rows)
	if err != nil {
		return nil, rawdata.Payload{}, fmt.Errorf("fetch archive blocked shots: %w", err)
	}
	return mapBlockedShots(rows), payload, nil
}

// AllEvents pulls the six play-by-play resources with bounded concurrency.
// Each goroutine writes a distinct bundle field, so no locking is needed;
// pool.Wait publishes the writes.
func (c *Client) AllEvents(ctx context.Context) (usecase.ArchiveEventBundle, []rawdata.Payload, error) {
	var bundle usecase.ArchiveEventBundle
	payloads := make([]rawdata.Payload, 6)

	grp := pool.New().WithContext(ctx).WithMaxGoroutines(c.maxConcurrent)
	grp.Go(func(ctx context.Context) error {
		rows, payload, err := c.Shots(ctx)
		if err != nil {
			return err
		}
		bundle.Shots, payloads[0] = rows, payload
		return nil
	})
	grp.Go(func(ctx context.Context) error {
		rows, payload, err := c.Goals(ctx)
		if err != nil {
			return err
		}
		bundle.Goals, payloads[1] = rows, payload
		return nil
	})
	grp.Go(func(ctx context.Context) error {
		rows, payload, err := c.Penalties(ctx)
		if err != nil {
			return err
		}
		bundle.Penalties, payloads[2] = rows, payload
		return nil
	})
	grp.Go(func(ctx context.Context) error {
		rows, payload, err := c.Faceoffs(ctx)
		if err != nil {
			return err
		}
		bundle.Faceoffs, payloads[3] = rows, payload
		return nil
	})
	grp.Go(func(ctx context.Context) error {
		rows, payload, err := c.Hits(ctx)
		if err != nil {
			return err
		}
		bundle.Hits, payloads[4] = rows, payload
		return nil
	})
	grp.Go(func(ctx context.Context) error {
		rows, payload, err := c.BlockedShots(ctx)
		if err != nil {
			return err
		}
		bundle.BlockedShots, payloads[5] = rows, payload
		return nil
	})

	if err := grp.Wait(); err != nil {
		return usecase.ArchiveEventBundle{}, nil, err
	}
	return bundle, payloads, nil
}

// fetchResource downloads one CSV into a pooled buffer, decodes it, and
// returns a compact provenance manifest instead of the multi-megabyte body.
// The manifest carries the body digest so re-fetches of identical content
// stay detectable.
func (c *Client) fetchResource(ctx context.Context, resource string, out any) (rawdata.Payload, error) {
	fullURL := c.baseURL + "/" + resource

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := c.download(ctx, fullURL, buf); err != nil {
		return rawdata.Payload{}, err
	}

	body := bytes.TrimPrefix(buf.B, utf8BOM)
	if err := decodeResource(body, out); err != nil {
		return rawdata.Payload{}, fmt.Errorf("decode %s: %w", resource, err)
	}

	digest := sha256.Sum256(body)
	manifest, err := sonic.Marshal(resourceManifest{
		Resource:   resource,
		URL:        fullURL,
		Bytes:      len(body),
		BodySHA256: hex.EncodeToString(digest[:]),
	})
	if err != nil {
		return rawdata.Payload{}, fmt.Errorf("marshal %s manifest: %w", resource, err)
	}

	return rawdata.Payload{
		Source:      "pbparchive",
		EntityType:  "csv_resource",
		EntityKey:   resource,
		PayloadJSON: string(manifest),
	}, nil
}

func (c *Client) download(ctx context.Context, fullURL string, buf *bytebufferpool.ByteBuffer) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "archive circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: event archive is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf.Reset()
		err := c.tryDownload(fullURL, buf)
		if err == nil {
			if c.circuitEnabled {
				c.breaker.RecordSuccess()
			}
			return nil
		}
		if !crerr.Is(err, errArchiveTransient) {
			if c.circuitEnabled {
				c.breaker.RecordSuccess()
			}
			return err
		}
		lastErr = err
		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if c.circuitEnabled {
		c.breaker.RecordFailure()
	}
	c.logger.WarnContext(ctx, "archive request failed", "url", fullURL, "error", lastErr)
	return lastErr
}

func (c *Client) tryDownload(fullURL string, buf *bytebufferpool.ByteBuffer) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fullURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("accept", "text/csv")

	if err := c.httpClient.DoRedirects(req, resp, maxRedirects); err != nil {
		return fmt.Errorf("%w: send request: %v", errArchiveTransient, err)
	}

	status := resp.StatusCode()
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		if isRetryableStatus(status) {
			return fmt.Errorf("%w: archive status=%d", errArchiveTransient, status)
		}
		return fmt.Errorf("archive status=%d", status)
	}

	_, _ = buf.Write(resp.Body())
	return nil
}

// decodeResource strips the UTF-8 BOM the archive files carry and decodes
// the remainder through the csv struct tags.
func decodeResource(body []byte, out any) error {
	return gocsv.UnmarshalBytes(bytes.TrimPrefix(body, utf8BOM), out)
}

type resourceManifest struct {
	Resource   string `json:"resource"`
	URL        string `json:"url"`
	Bytes      int    `json:"bytes"`
	BodySHA256 string `json:"body_sha256"`
}

func isRetryableStatus(code int) bool {
	return code == fasthttp.StatusTooManyRequests || code >= fasthttp.StatusInternalServerError
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}

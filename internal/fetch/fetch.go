// Package fetch retrieves single pages over plain HTTP with a layered
// fallback ladder.
//
// Ladder:
//   - attempt 1: default browser user-agent, standard read timeout
//   - attempt 2: alternate user-agent from the rotation pool
//   - attempt 3: next alternate, longer read timeout
//
// 2xx ends the ladder. 403/429 advance to the next rung (the reason
// the rotation exists). Other 4xx and all 5xx retry within the attempt
// budget. DNS and connection failures return immediately: no rung
// recovers from a dead host.
package fetch

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/socialcap/profile-api/internal/domain"
)

// Rotation pool of realistic browser user-agents; rung i uses pool[i % len]
// so consecutive attempts always differ.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
}

// maxBodyBytes caps how much of a page is read into memory.
const maxBodyBytes = 2 << 20

// Policy holds the tuning values of the retry ladder. Zero values are
// filled in by New from DefaultPolicy.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first.
	MaxAttempts int
	// ConnectTimeout bounds dialing; kept shorter than the read
	// timeouts so unreachable hosts fail fast.
	ConnectTimeout time.Duration
	// ReadTimeout bounds a whole request on the early rungs.
	ReadTimeout time.Duration
	// FinalReadTimeout bounds the last rung, allowing extra time for
	// slow-but-alive servers.
	FinalReadTimeout time.Duration
	// InitialBackoff is the delay before the second attempt; it
	// doubles per attempt, capped at MaxBackoff. A Retry-After header
	// (seconds) overrides it when present.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// UserAgents is the rotation pool.
	UserAgents []string
}

// DefaultPolicy returns the ladder defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:      3,
		ConnectTimeout:   5 * time.Second,
		ReadTimeout:      10 * time.Second,
		FinalReadTimeout: 20 * time.Second,
		InitialBackoff:   300 * time.Millisecond,
		MaxBackoff:       30 * time.Second,
		UserAgents:       defaultUserAgents,
	}
}

// Client fetches pages. It is a pure I/O primitive: it never writes to
// the cache and never lets an error escape past the PageResult boundary.
type Client struct {
	policy    Policy
	transport http.RoundTripper
	log       *zap.Logger
}

// New creates a fetch Client with the given policy. Zero policy fields
// fall back to DefaultPolicy values.
func New(policy Policy, log *zap.Logger) *Client {
	def := DefaultPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.ConnectTimeout <= 0 {
		policy.ConnectTimeout = def.ConnectTimeout
	}
	if policy.ReadTimeout <= 0 {
		policy.ReadTimeout = def.ReadTimeout
	}
	if policy.FinalReadTimeout <= 0 {
		policy.FinalReadTimeout = def.FinalReadTimeout
	}
	if policy.InitialBackoff <= 0 {
		policy.InitialBackoff = def.InitialBackoff
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = def.MaxBackoff
	}
	if len(policy.UserAgents) == 0 {
		policy.UserAgents = def.UserAgents
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		policy: policy,
		transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: policy.ConnectTimeout,
			}).DialContext,
			TLSHandshakeTimeout:   policy.ConnectTimeout,
			ResponseHeaderTimeout: 0, // bounded by the per-rung client timeout
			MaxIdleConnsPerHost:   4,
		},
		log: log,
	}
}

// Fetch runs the ladder for one URL and returns exactly one terminal
// PageResult. It never panics and never returns an error.
func (c *Client) Fetch(ctx context.Context, url string) domain.PageResult {
	delay := c.policy.InitialBackoff
	last := domain.PageResult{URL: url, Status: domain.StatusConnError, FetchedAt: time.Now()}

	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return last
			case <-time.After(delay):
			}
			delay = capDelay(delay*2, c.policy.MaxBackoff)
		}

		res, retry, retryAfter := c.attempt(ctx, url, attempt)
		c.log.Debug("fetch attempt",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.String("status", string(res.Status)),
			zap.Int("http_status", res.HTTPStatus))

		if res.Status == domain.StatusOK || !retry {
			return res
		}
		if retryAfter > 0 {
			delay = capDelay(retryAfter, c.policy.MaxBackoff)
		}
		last = res
	}
	return last
}

// attempt performs one rung. retry reports whether the ladder may
// continue; retryAfter carries a server-requested delay, if any.
func (c *Client) attempt(ctx context.Context, url string, attempt int) (res domain.PageResult, retry bool, retryAfter time.Duration) {
	res = domain.PageResult{URL: url, FetchedAt: time.Now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.Status = domain.StatusConnError
		return res, false, 0
	}
	req.Header.Set("User-Agent", c.policy.UserAgents[attempt%len(c.policy.UserAgents)])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Cache-Control", "max-age=0")

	client := &http.Client{
		Transport: c.transport,
		Timeout:   c.readTimeout(attempt),
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			res.Status = domain.StatusConnError
			return res, false, 0
		}
		var nerr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
			// Slow-but-alive host: the next rung gets more time.
			res.Status = domain.StatusTimeout
			return res, true, 0
		}
		// DNS or connection failure: terminal, no rung recovers.
		res.Status = domain.StatusConnError
		return res, false, 0
	}
	defer resp.Body.Close()

	res.HTTPStatus = resp.StatusCode

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if rerr != nil || len(body) == 0 {
			res.Status = domain.StatusHTTPError
			return res, true, 0
		}
		res.Status = domain.StatusOK
		res.Body = string(body)
		return res, false, 0

	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		res.Status = domain.StatusBlocked
		return res, true, parseRetryAfter(resp.Header.Get("Retry-After"))

	default:
		// Other 4xx and 5xx are potentially transient.
		res.Status = domain.StatusHTTPError
		return res, true, 0
	}
}

func (c *Client) readTimeout(attempt int) time.Duration {
	if attempt == c.policy.MaxAttempts-1 {
		return c.policy.FinalReadTimeout
	}
	return c.policy.ReadTimeout
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func capDelay(d, limit time.Duration) time.Duration {
	if d > limit {
		return limit
	}
	return d
}

package httpclient

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/aleister1102/releasewatcher/internal/models"
	"github.com/rs/zerolog"
)

// RateLimitConfig names the quota headers of an upstream API and how long a
// request may wait for the quota to reset.
type RateLimitConfig struct {
	RemainingHeader string
	ResetHeader     string // Unix epoch seconds
	LimitHeader     string
	MaxWait         time.Duration
}

// GitHubRateLimit returns the quota headers used by the GitHub REST API
func GitHubRateLimit(maxWait time.Duration) RateLimitConfig {
	return RateLimitConfig{
		RemainingHeader: "X-RateLimit-Remaining",
		ResetHeader:     "X-RateLimit-Reset",
		LimitHeader:     "X-RateLimit-Limit",
		MaxWait:         maxWait,
	}
}

// GitLabRateLimit returns the quota headers used by the GitLab REST API
func GitLabRateLimit(maxWait time.Duration) RateLimitConfig {
	return RateLimitConfig{
		RemainingHeader: "RateLimit-Remaining",
		ResetHeader:     "RateLimit-Reset",
		LimitHeader:     "RateLimit-Limit",
		MaxWait:         maxWait,
	}
}

// RateLimitHandler waits for an exhausted quota to reset and retries the request once.
type RateLimitHandler struct {
	config RateLimitConfig
	logger zerolog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRateLimitHandler creates a new rate limit handler
func NewRateLimitHandler(config RateLimitConfig, logger zerolog.Logger) *RateLimitHandler {
	return &RateLimitHandler{
		config: config,
		logger: logger.With().Str("component", "RateLimitHandler").Logger(),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// IsRateLimited reports a failed response whose remaining quota header is zero
func (rh *RateLimitHandler) IsRateLimited(resp *HTTPResponse) bool {
	if resp == nil || resp.IsSuccess() {
		return false
	}
	return strings.TrimSpace(resp.Headers.Get(rh.config.RemainingHeader)) == "0"
}

// DoWithRateLimit executes the request. When the response signals an exhausted quota whose reset
// is within MaxWait, it sleeps until the reset and retries exactly once; otherwise it fails with
// a *models.RateLimitExceededError.
func (rh *RateLimitHandler) DoWithRateLimit(ctx context.Context, doFunc func(*HTTPRequest) (*HTTPResponse, error), req *HTTPRequest) (*HTTPResponse, error) {
	resp, err := doFunc(req)
	if err != nil || !rh.IsRateLimited(resp) {
		return resp, err
	}

	wait, err := rh.waitDuration(resp, req.URL)
	if err != nil {
		return nil, err
	}

	rh.logger.Info().
		Str("url", req.URL).
		Str("limit", resp.Headers.Get(rh.config.LimitHeader)).
		Dur("wait", wait).
		Msg("Rate limit exceeded, waiting for reset before retrying")

	if err := rh.sleep(ctx, wait); err != nil {
		return nil, err
	}

	resp, err = doFunc(req)
	if err != nil {
		return nil, err
	}
	if rh.IsRateLimited(resp) {
		reset, hasReset := rh.resetTime(resp)
		return nil, &models.RateLimitExceededError{
			URL:      req.URL,
			Limit:    resp.Headers.Get(rh.config.LimitHeader),
			HasReset: hasReset,
			ResetIn:  reset.Sub(rh.now()),
			MaxWait:  rh.config.MaxWait,
		}
	}
	return resp, nil
}

// waitDuration returns how long to wait for the quota reset, or the error to fail with.
func (rh *RateLimitHandler) waitDuration(resp *HTTPResponse, url string) (time.Duration, error) {
	limit := resp.Headers.Get(rh.config.LimitHeader)

	reset, ok := rh.resetTime(resp)
	if !ok {
		return 0, &models.RateLimitExceededError{URL: url, Limit: limit, MaxWait: rh.config.MaxWait}
	}

	wait := reset.Sub(rh.now())
	if wait > rh.config.MaxWait {
		return 0, &models.RateLimitExceededError{
			URL:      url,
			Limit:    limit,
			HasReset: true,
			ResetIn:  wait,
			MaxWait:  rh.config.MaxWait,
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait, nil
}

func (rh *RateLimitHandler) resetTime(resp *HTTPResponse) (time.Time, bool) {
	raw := strings.TrimSpace(resp.Headers.Get(rh.config.ResetHeader))
	if raw == "" {
		return time.Time{}, false
	}
	epoch, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || epoch <= 0 {
		return time.Time{}, false
	}
	return time.Unix(epoch, 0).UTC(), true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

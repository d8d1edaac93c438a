// Package fetcher downloads documents over HTTP and reads tabular files (CSV,
// XLSX and ZIP bundles of either).
package fetcher

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/hospital-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond is the starting per-host rate. 0 disables limiting.
	RequestsPerSecond float64
	Burst             int
	// MaxBytes caps a response body read by Fetch. 0 means 64 MiB.
	MaxBytes int64
	Retry    resilience.RetryConfig
	// Breakers guards hosts that keep failing. Nil disables the breaker.
	Breakers *resilience.HostBreakers
}

// AdaptiveLimiter wraps a rate.Limiter that speeds up on success (up to 2x the
// initial rate) and halves on 429 (down to a quarter of it).
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	initial rate.Limit
	current rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter.
func NewAdaptiveLimiter(initial rate.Limit, burst int) *AdaptiveLimiter {
	if burst < 1 {
		burst = 1
	}
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(initial, burst),
		initial: initial,
		current: initial,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 20%.
func (a *AdaptiveLimiter) OnSuccess() {
	a.set(min(a.Limit()*1.2, a.initial*2))
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	next := max(a.Limit()*0.5, a.initial/4)
	a.set(next)
	zap.L().Warn("fetcher: rate limited, slowing down", zap.Float64("rate", float64(next)))
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *AdaptiveLimiter) set(l rate.Limit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = l
	a.limiter.SetLimit(l)
}

// HTTPFetcher implements Fetcher with per-host rate limiting, retries on
// transient failures and an optional per-host breaker.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "hospital-cli/1.0"
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 64 << 20
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

func (f *HTTPFetcher) limiterFor(host string) *AdaptiveLimiter {
	if f.opts.RequestsPerSecond <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = NewAdaptiveLimiter(rate.Limit(f.opts.RequestsPerSecond), f.opts.Burst)
		f.limiters[host] = lim
	}
	return lim
}

// get performs a GET with retries. The caller owns the returned body.
func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	lim := f.limiterFor(u.Host)

	var breaker *resilience.Breaker
	if f.opts.Breakers != nil {
		breaker = f.opts.Breakers.Get(u.Host)
	}

	retry := f.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(u.Host, "get")
	}

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*http.Response, error) {
		if breaker != nil {
			if err := breaker.Allow(); err != nil {
				return nil, err
			}
		}
		resp, err := f.attempt(ctx, lim, rawURL)
		if breaker != nil {
			breaker.Record(err)
		}
		return resp, err
	})
}

func (f *HTTPFetcher) attempt(ctx context.Context, lim *AdaptiveLimiter, rawURL string) (*http.Response, error) {
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		if lim != nil {
			lim.OnSuccess()
		}
		return resp, nil
	case resp.StatusCode == http.StatusTooManyRequests && lim != nil:
		lim.OnRateLimit()
	}
	_ = resp.Body.Close()

	statusErr := eris.Errorf("fetcher: unexpected status %d from %s", resp.StatusCode, rawURL)
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
	}
	return nil, statusErr
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Fetch fetches the URL and returns the whole body, up to MaxBytes.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "fetcher: read body of %s", rawURL), 0)
	}
	if n > f.opts.MaxBytes {
		return nil, eris.Errorf("fetcher: body of %s exceeds %d bytes", rawURL, f.opts.MaxBytes)
	}
	return buf.Bytes(), nil
}

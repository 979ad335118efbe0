package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apetrei/meteotab/internal/cache"
	"github.com/apetrei/meteotab/internal/circuitbreaker"
	"github.com/apetrei/meteotab/internal/observability"
)

var (
	ErrBadRequest      = errors.New("bad request rejected by API")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstreamFailure = errors.New("upstream failure")
)

// Query describes one hourly archive request. Hourly lists the requested
// variables in the order their arrays are addressed downstream.
type Query struct {
	Latitude  float64
	Longitude float64
	Hourly    []string
	StartDate string // YYYY-MM-DD, inclusive
	EndDate   string // YYYY-MM-DD, inclusive
	Extra     url.Values
}

// params builds the canonical query string. timeformat=unixtime keeps the
// hourly time axis in epoch seconds; timezone=UTC pins the axis.
func (q Query) params() url.Values {
	v := url.Values{}
	v.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	v.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	if len(q.Hourly) > 0 {
		v.Set("hourly", strings.Join(q.Hourly, ","))
	}
	if q.StartDate != "" {
		v.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("end_date", q.EndDate)
	}
	v.Set("timeformat", "unixtime")
	v.Set("timezone", "UTC")
	for k, vals := range q.Extra {
		for _, val := range vals {
			v.Add(k, val)
		}
	}
	return v
}

// Client fetches hourly data from the Open-Meteo API with retries,
// exponential backoff, an optional circuit breaker, and an optional
// response-payload cache.
type Client struct {
	baseURL        string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration

	breaker   *circuitbreaker.CircuitBreaker
	respCache cache.Cache
	cacheTTL  time.Duration
	cacheType string

	// runID is sent as X-Correlation-ID so one pipeline run is traceable
	// across upstream request logs.
	runID string
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	return NewClientWithRetry(baseURL, timeout, 3, 100*time.Millisecond, 2*time.Second)
}

// NewClientWithRetry creates a Client with explicit retry parameters.
func NewClientWithRetry(baseURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if retryAttempts <= 0 {
		retryAttempts = 1
	}
	return &Client{
		baseURL:        baseURL,
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		client: &http.Client{
			Timeout: timeout,
		},
		runID: uuid.New().String(),
	}, nil
}

// SetCircuitBreaker wires a breaker around upstream calls.
func (c *Client) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// SetCache wires a response-payload cache. cacheType labels hit metrics.
func (c *Client) SetCache(respCache cache.Cache, ttl time.Duration, cacheType string) {
	c.respCache = respCache
	c.cacheTTL = ttl
	c.cacheType = cacheType
}

// FetchHourly performs the request (or serves it from cache) and decodes the
// payload into an HourlyResponse ready for materialization.
func (c *Client) FetchHourly(ctx context.Context, q Query) (*HourlyResponse, error) {
	requestURL := c.baseURL + "?" + q.params().Encode()

	if c.respCache != nil {
		payload, ok, err := c.respCache.Get(ctx, requestURL)
		if err == nil && ok {
			observability.CacheHitsTotal.WithLabelValues(c.cacheType).Inc()
			return parseHourlyPayload(payload, q.Hourly)
		}
	}

	body, err := c.fetchWithRetry(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	if c.respCache != nil {
		// Best effort; a cache write failure never fails the fetch.
		_ = c.respCache.Set(ctx, requestURL, body, c.cacheTTL)
	}

	return parseHourlyPayload(body, q.Hourly)
}

func (c *Client) fetchWithRetry(ctx context.Context, requestURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.MeteoAPIRetriesTotal.Inc()
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		var body []byte
		call := func() error {
			var err error
			body, err = c.callAPI(ctx, requestURL)
			return err
		}

		var err error
		if c.breaker != nil {
			err = c.breaker.Call(call)
		} else {
			err = call()
		}
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("exhausted retries: %w", lastErr)
}

func (c *Client) callAPI(ctx context.Context, requestURL string) ([]byte, error) {
	start := time.Now()

	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		observability.MeteoAPICallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Correlation-ID", c.runID)

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.MeteoAPICallsTotal.WithLabelValues("error").Inc()
		observability.MeteoAPIDuration.WithLabelValues("error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.MeteoAPICallsTotal.WithLabelValues(status).Inc()
	observability.MeteoAPIDuration.WithLabelValues(status).Observe(duration)

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP 429", ErrRateLimited)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: HTTP %d", ErrBadRequest, resp.StatusCode)
	default:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "context deadline exceeded") || strings.Contains(errStr, "connection refused") {
		return true
	}
	return false
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}
	// Full jitter keeps concurrent retries from synchronizing.
	return time.Duration(rand.Float64() * delay)
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// Package soda provides an HTTP client for Socrata Open Data API (SODA 2.0)
// resources, with query construction, optional response caching, and error
// classification.
package soda

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/opencivic/crimefetch/pkg/cache"
)

// Prometheus metrics for SODA client operations.
var (
	sodaRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soda_requests_total",
		Help: "Total SODA requests by operation and status",
	}, []string{"operation", "status"})

	sodaRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "soda_request_duration_seconds",
		Help:    "SODA request duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"operation"})

	sodaErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soda_errors_total",
		Help: "Total SODA errors by class",
	}, []string{"class"})
)

// Client is the SODA resource client.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the dataset resource URL,
	// e.g. "https://data.lacity.org/resource/y8y3-fqfu.json".
	BaseURL string

	// AppToken is the optional X-App-Token credential for elevated
	// rate limits. Empty means anonymous access.
	AppToken string

	// Redis enables response caching when non-nil. The CLI runs without
	// Redis by default; caching is opt-in infrastructure.
	Redis *redis.Client

	// CacheTTL bounds how long a cached response stays fresh. SODA sends
	// ETags but no Expires header, so freshness is a local policy.
	CacheTTL time.Duration

	// UserAgent identifies this client to the remote service.
	UserAgent string
}

// DefaultConfig returns a safe default configuration for a resource URL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:  baseURL,
		CacheTTL: 5 * time.Minute,
	}
}

// New creates a new SODA client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	logger := log.With().Str("component", "soda-client").Logger()

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: &http.Client{
			// Backstop only; per-request deadlines come from the caller's
			// context.
			Timeout: 90 * time.Second,
		},
		cache:  cacheManager,
		config: cfg,
		logger: logger,
	}, nil
}

// Get issues a single GET request for the given query and returns the raw
// response body. The operation name is used for logging and metrics only.
//
// There is no retry layer: a failure is classified, counted, and returned
// to the caller exactly once.
func (c *Client) Get(ctx context.Context, operation string, q Query) ([]byte, error) {
	params := q.Values()

	startTime := time.Now()
	defer func() {
		sodaRequestDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.AppToken != "" {
		req.Header.Set("X-App-Token", c.config.AppToken)
	}

	// Revalidate a cached response instead of transferring it again.
	var cachedEntry *cache.Entry
	cacheKey := cache.Key{Resource: req.URL.Path, Params: params}
	if c.cache != nil {
		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("operation", operation).Msg("Cache get error")
		}
		if cache.CanRevalidate(cachedEntry) {
			cache.AddConditionalHeaders(req, cachedEntry)
			cache.ConditionalRequestsSent.Inc()
			c.logger.Debug().
				Str("operation", operation).
				Str("etag", cachedEntry.ETag).
				Msg("Making conditional request")
		}
	}

	c.logger.Debug().
		Str("operation", operation).
		Str("query", params.Encode()).
		Msg("Executing SODA request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("operation", operation).Msg("HTTP request failed")
		sodaErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		sodaRequestsTotal.WithLabelValues(operation, "network_error").Inc()
		return nil, &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	sodaRequestsTotal.WithLabelValues(operation, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		cache.NotModifiedResponses.Inc()
		c.logger.Debug().Str("operation", operation).Msg("304 Not Modified - using cache")
		if err := c.cache.Refresh(ctx, cacheKey, cachedEntry, c.config.CacheTTL); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		return cachedEntry.Data, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errClass := classifyStatus(resp.StatusCode)
		sodaErrorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Warn().
			Str("operation", operation).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("SODA request error")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		sodaErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	if c.cache != nil {
		entry := cache.NewEntry(body, resp.Header, c.config.CacheTTL)
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("operation", operation).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return body, nil
}

// classifyStatus categorizes a non-success HTTP status for observability.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

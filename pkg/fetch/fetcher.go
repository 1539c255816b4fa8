// Package fetch implements record retrieval from a SODA resource: a count
// query, a single high-limit bulk fetch, offset-based pagination, and the
// two-tier orchestration between them.
//
// Every operation follows a best-effort policy: failures are logged and
// converted into an empty or partial record set, never surfaced as errors.
// A run always produces whatever data could be retrieved.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/opencivic/crimefetch/pkg/ratelimit"
	"github.com/opencivic/crimefetch/pkg/soda"
)

// Prometheus metrics for fetch operations.
var (
	fetchPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetch_pages_total",
		Help: "Total pages fetched during paginated retrieval",
	})

	fetchRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetch_records_total",
		Help: "Total records retrieved across all operations",
	})

	fetchFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetch_fallbacks_total",
		Help: "Times bulk fetch was discarded in favor of pagination",
	})
)

// Config holds fetcher configuration.
type Config struct {
	// PageSize is the number of records per paginated request.
	PageSize int

	// BulkLimit is the single-request limit for the bulk fast path.
	// SODA 2.0 serves at most 50000 rows per request.
	BulkLimit int

	// PageTimeout bounds each count/page request.
	PageTimeout time.Duration

	// BulkTimeout bounds the bulk request, which moves more data.
	BulkTimeout time.Duration

	// PageInterval is the minimum delay between consecutive page
	// requests. A tunable courtesy toward the remote service, not a
	// correctness requirement.
	PageInterval time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:     1000,
		BulkLimit:    50000,
		PageTimeout:  30 * time.Second,
		BulkTimeout:  60 * time.Second,
		PageInterval: ratelimit.DefaultInterval,
	}
}

// Fetcher retrieves record sets from a SODA resource.
type Fetcher struct {
	client *soda.Client
	pacer  *ratelimit.Pacer
	config Config
	logger zerolog.Logger
}

// New creates a fetcher around an existing client. Zero config fields are
// replaced with defaults.
func New(client *soda.Client, cfg Config) *Fetcher {
	def := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.BulkLimit <= 0 {
		cfg.BulkLimit = def.BulkLimit
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = def.PageTimeout
	}
	if cfg.BulkTimeout <= 0 {
		cfg.BulkTimeout = def.BulkTimeout
	}
	if cfg.PageInterval <= 0 {
		cfg.PageInterval = def.PageInterval
	}

	return &Fetcher{
		client: client,
		pacer:  ratelimit.NewPacer(cfg.PageInterval),
		config: cfg,
		logger: log.With().Str("component", "fetcher").Logger(),
	}
}

// Count asks the service how many records match the filter.
//
// Returns 0 on any failure. A zero result is therefore ambiguous: it can
// mean "no matches" or "count query failed"; callers treat both the same.
func (f *Fetcher) Count(ctx context.Context, filter soda.Filter) int {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.PageTimeout)
	defer cancel()

	body, err := f.client.Get(reqCtx, "count", soda.Query{
		Select: "count(*)",
		Where:  filter.Where(),
	})
	if err != nil {
		f.logger.Warn().Err(err).Msg("Count query failed")
		return 0
	}

	total, err := parseCount(body)
	if err != nil {
		f.logger.Warn().Err(err).Msg("Count response malformed")
		return 0
	}

	return total
}

// Bulk requests up to limit records in a single request, newest first.
// Returns an empty set on failure.
//
// A result of exactly limit records may be truncated; callers must treat
// it as "possibly incomplete", not as an exact match.
func (f *Fetcher) Bulk(ctx context.Context, filter soda.Filter, limit int) soda.RecordSet {
	f.logger.Info().Int("limit", limit).Msg("Querying with high limit")

	reqCtx, cancel := context.WithTimeout(ctx, f.config.BulkTimeout)
	defer cancel()

	body, err := f.client.Get(reqCtx, "bulk", soda.Query{
		Where: filter.Where(),
		Order: soda.OrderNewestFirst,
		Limit: limit,
	})
	if err != nil {
		f.logger.Warn().Err(err).Msg("Bulk query failed")
		return nil
	}

	records, err := decodeRecords(body)
	if err != nil {
		f.logger.Warn().Err(err).Msg("Bulk response malformed")
		return nil
	}

	fetchRecordsTotal.Add(float64(len(records)))
	f.logger.Info().Int("records", len(records)).Msg("Bulk fetch complete")
	return records
}

// Paginated retrieves all matching records in pages of PageSize, pausing
// between requests.
//
// The loop stops when the accumulated count reaches the total reported by
// Count, when a page comes back empty (count/data mismatch), or when a
// page request fails. Partial results are returned, never discarded.
func (f *Fetcher) Paginated(ctx context.Context, filter soda.Filter) soda.RecordSet {
	start := time.Now()

	total := f.Count(ctx, filter)
	f.logger.Info().Int("total", total).Msg("Total records found")

	if total == 0 {
		return nil
	}

	var all soda.RecordSet
	offset := 0
	page := 1

	for offset < total {
		if err := f.pacer.Wait(ctx); err != nil {
			f.logger.Warn().Err(err).Int("page", page).Msg("Pacer wait cancelled")
			break
		}

		f.logger.Debug().
			Int("page", page).
			Int("offset", offset).
			Msg("Fetching page")

		reqCtx, cancel := context.WithTimeout(ctx, f.config.PageTimeout)
		body, err := f.client.Get(reqCtx, "page", soda.Query{
			Where:  filter.Where(),
			Order:  soda.OrderNewestFirst,
			Limit:  f.config.PageSize,
			Offset: offset,
		})
		cancel()

		if err != nil {
			f.logger.Warn().
				Err(err).
				Int("page", page).
				Int("records_so_far", len(all)).
				Msg("Page fetch failed - returning partial results")
			break
		}

		records, err := decodeRecords(body)
		if err != nil {
			f.logger.Warn().
				Err(err).
				Int("page", page).
				Msg("Page response malformed - returning partial results")
			break
		}

		if len(records) == 0 {
			f.logger.Info().Int("page", page).Msg("No more data returned, stopping pagination")
			break
		}

		all = append(all, records...)
		fetchPagesTotal.Inc()
		fetchRecordsTotal.Add(float64(len(records)))

		f.logger.Debug().
			Int("page", page).
			Int("records", len(records)).
			Msg("Retrieved page")

		offset += f.config.PageSize
		page++
	}

	f.logger.Info().
		Int("records", len(all)).
		Int("total", total).
		Dur("duration", time.Since(start)).
		Msg("Paginated fetch complete")

	return all
}

// Retrieve runs the two-tier strategy: bulk fetch first, pagination when
// the bulk result is empty or possibly truncated.
//
// A bulk result of exactly BulkLimit records triggers the fallback even
// when the true count happens to equal the limit; the false positive costs
// one extra pass but never loses data.
func (f *Fetcher) Retrieve(ctx context.Context, filter soda.Filter) soda.RecordSet {
	records := f.Bulk(ctx, filter, f.config.BulkLimit)

	if len(records) == 0 || len(records) == f.config.BulkLimit {
		fetchFallbacksTotal.Inc()
		f.logger.Info().
			Int("bulk_records", len(records)).
			Msg("Bulk result unusable, falling back to pagination")
		return f.Paginated(ctx, filter)
	}

	return records
}

// decodeRecords parses a JSON array of rows. Numbers stay json.Number so
// numeric fields round-trip to CSV exactly as the API sent them.
func decodeRecords(body []byte) (soda.RecordSet, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var records soda.RecordSet
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

// parseCount extracts the total from a count(*) response, a single-element
// array like [{"count":"2815"}]. Socrata serves the count as a string, but
// a bare number is accepted too.
func parseCount(body []byte) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("empty count response")
	}

	raw, ok := rows[0]["count"]
	if !ok {
		return 0, fmt.Errorf("count field missing")
	}

	switch v := raw.(type) {
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("parse count %q: %w", v, err)
		}
		return n, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("parse count %q: %w", v, err)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", raw)
	}
}

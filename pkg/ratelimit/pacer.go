// Package ratelimit bounds the request rate against the SODA service.
//
// Socrata publishes no per-client error budget, so pacing is a local
// courtesy policy: consecutive page requests are spaced by a minimum
// interval rather than gated by server-reported limits.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between consecutive requests.
const DefaultInterval = 100 * time.Millisecond

var pacerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "soda_pacer_wait_seconds",
	Help:    "Time spent waiting for the inter-request pacer",
	Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1},
})

// Pacer enforces a minimum interval between requests.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer with the given minimum interval between
// requests. Non-positive intervals fall back to DefaultInterval.
func NewPacer(minInterval time.Duration) *Pacer {
	if minInterval <= 0 {
		minInterval = DefaultInterval
	}
	// Burst of 1: the first request passes immediately, every later one
	// waits out the interval.
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Wait blocks until the next request may be issued or the context is
// cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	start := time.Now()
	err := p.limiter.Wait(ctx)
	pacerWaitSeconds.Observe(time.Since(start).Seconds())
	return err
}

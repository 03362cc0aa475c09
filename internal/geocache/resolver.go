package geocache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/incident-map-etl/internal/domain"
	"github.com/couchcryptid/incident-map-etl/internal/observability"
)

// Resolver fills cache misses through an external geocoder, one call at a
// time, honoring a minimum delay between consecutive calls. The delay is a
// policy constraint of the lookup service, which is why resolution is
// strictly sequential rather than parallel.
type Resolver struct {
	geocoder domain.Geocoder
	delay    time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewResolver constructs a Resolver. A nil geocoder is a setup error, the
// only condition that fails a resolution pass outright.
func NewResolver(geocoder domain.Geocoder, delay time.Duration, logger *slog.Logger, metrics *observability.Metrics) (*Resolver, error) {
	if geocoder == nil {
		return nil, errors.New("geocache: geocoder is required")
	}
	if delay < 0 {
		return nil, errors.New("geocache: delay must not be negative")
	}
	return &Resolver{
		geocoder: geocoder,
		delay:    delay,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Resolve looks up every requested code absent from the cache, in sorted
// order, and appends the successes. Per-code failures (lookup error or
// no-match response) are logged and skipped; one bad postal code never
// aborts the rest of the pass. The inter-call delay applies between
// consecutive external calls only, never before the first or after the
// last. Returns the number of entries added.
//
// Resolving the same requested set twice against the same cache is
// idempotent: the second pass finds no misses and issues zero external
// calls.
func (r *Resolver) Resolve(ctx context.Context, requested []string, cache *Cache) int {
	misses := cache.Missing(requested)
	hits := len(requested) - len(misses)
	r.metrics.GeocodeCache.WithLabelValues("hit").Add(float64(hits))
	r.metrics.GeocodeCache.WithLabelValues("miss").Add(float64(len(misses)))

	if len(misses) == 0 {
		r.logger.Info("all postal codes cached", "requested", len(requested))
		return 0
	}
	r.logger.Info("resolving postal codes",
		"requested", len(requested),
		"hits", hits,
		"misses", len(misses),
		"delay", r.delay,
	)

	added := 0
	for i, code := range misses {
		if ctx.Err() != nil {
			r.logger.Warn("resolution pass interrupted", "resolved", added, "remaining", len(misses)-i)
			break
		}
		if i > 0 {
			clock.Sleep(r.delay)
		}

		start := clock.Now()
		coord, ok, err := r.geocoder.Geocode(ctx, code)
		r.metrics.GeocodeAPIDuration.Observe(clock.Since(start).Seconds())

		if err != nil {
			r.logger.Warn("geocode failed, skipping postal code", "postal_code", code, "error", err)
			r.metrics.GeocodeRequests.WithLabelValues("error").Inc()
			continue
		}
		if !ok {
			r.logger.Warn("no match for postal code", "postal_code", code)
			r.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
			continue
		}

		cache.put(code, coord)
		added++
		r.metrics.GeocodeRequests.WithLabelValues("success").Inc()
		r.logger.Debug("postal code resolved", "postal_code", code, "lat", coord.Lat, "lon", coord.Lon)
	}

	r.logger.Info("resolution pass complete",
		"resolved", added,
		"unresolved", len(misses)-added,
		"cache_entries", cache.Len(),
	)
	return added
}

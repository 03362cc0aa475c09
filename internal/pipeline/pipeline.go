// Package pipeline orchestrates one map-generation run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/incident-map-etl/internal/domain"
	"github.com/couchcryptid/incident-map-etl/internal/geocache"
	"github.com/couchcryptid/incident-map-etl/internal/observability"
)

// RowSource provides the raw incident rows.
type RowSource interface {
	ReadRows(ctx context.Context) ([]domain.IncidentRow, error)
}

// CoordinateResolver fills geocode cache misses for the requested codes.
type CoordinateResolver interface {
	Resolve(ctx context.Context, requested []string, cache *geocache.Cache) int
}

// Renderer consumes the aggregated summaries and produces the map artifact.
type Renderer interface {
	Render(ctx context.Context, summaries []domain.LocationSummary) error
}

// Publisher forwards summaries to downstream consumers.
type Publisher interface {
	PublishSummaries(ctx context.Context, summaries []domain.LocationSummary) error
}

// Pipeline runs extract → filter → geocode → aggregate → render as a single
// sequential batch. The geocode cache value is scoped to the run: loaded at
// the start of the pass, handed through resolution, persisted at the end.
type Pipeline struct {
	source     RowSource
	resolver   CoordinateResolver
	renderer   Renderer
	publisher  Publisher // nil disables publishing
	cachePath  string
	targetYear int
	logger     *slog.Logger
	metrics    *observability.Metrics
	done       atomic.Bool
}

// New creates a Pipeline. publisher may be nil.
func New(source RowSource, resolver CoordinateResolver, renderer Renderer, publisher Publisher, cachePath string, targetYear int, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:     source,
		resolver:   resolver,
		renderer:   renderer,
		publisher:  publisher,
		cachePath:  cachePath,
		targetYear: targetYear,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once the map artifact has been written.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.done.Load() {
		return errors.New("map artifact not generated yet")
	}
	return nil
}

// Run executes one complete pass. Hard failures are reading the source and
// rendering the artifact; geocoding and persistence failures degrade to a
// best-effort map, and a publish failure never invalidates the artifact.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()

	rows, err := p.source.ReadRows(ctx)
	if err != nil {
		return fmt.Errorf("read incident rows: %w", err)
	}
	p.metrics.RowsRead.Add(float64(len(rows)))

	filtered := domain.FilterPropertyIncidents(rows, p.targetYear)
	p.metrics.RowsMatched.Add(float64(len(filtered)))
	p.logger.Info("rows filtered",
		"total", len(rows),
		"matched", len(filtered),
		"year", p.targetYear,
	)

	requested := domain.DistinctPostalCodes(filtered)

	cache := geocache.Load(p.cachePath, p.logger)
	p.resolver.Resolve(ctx, requested, cache)
	p.metrics.CacheEntries.Set(float64(cache.Len()))

	if err := cache.Persist(p.cachePath); err != nil {
		p.logger.Warn("geocode cache not persisted, coordinates remain usable for this run", "path", p.cachePath, "error", err)
	}
	if unresolved := cache.Missing(requested); len(unresolved) > 0 {
		p.logger.Warn("postal codes left unresolved, their incidents will not appear on the map",
			"count", len(unresolved),
			"postal_codes", unresolved,
		)
	}

	summaries := domain.Aggregate(filtered, cache.Lookup)
	if err := p.renderer.Render(ctx, summaries); err != nil {
		return fmt.Errorf("render map artifact: %w", err)
	}
	p.metrics.MarkersRendered.Set(float64(len(summaries)))
	p.done.Store(true)

	if p.publisher != nil {
		if err := p.publisher.PublishSummaries(ctx, summaries); err != nil {
			p.logger.Warn("publish failed, map artifact is unaffected", "error", err)
		}
	}

	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("run complete",
		"markers", len(summaries),
		"cache_entries", cache.Len(),
		"duration", time.Since(start),
	)
	return nil
}

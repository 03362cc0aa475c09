package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/incident-map-etl/internal/domain"
	"github.com/couchcryptid/incident-map-etl/internal/geocache"
	"github.com/couchcryptid/incident-map-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeSource struct {
	rows []domain.IncidentRow
	err  error
}

func (f *fakeSource) ReadRows(_ context.Context) ([]domain.IncidentRow, error) {
	return f.rows, f.err
}

type fakeRenderer struct {
	rendered []domain.LocationSummary
	err      error
}

func (f *fakeRenderer) Render(_ context.Context, summaries []domain.LocationSummary) error {
	f.rendered = summaries
	return f.err
}

type fakePublisher struct {
	published []domain.LocationSummary
	err       error
}

func (f *fakePublisher) PublishSummaries(_ context.Context, summaries []domain.LocationSummary) error {
	f.published = summaries
	return f.err
}

type stubGeocoder struct {
	coords map[string]domain.Coordinate
	calls  int
}

func (s *stubGeocoder) Geocode(_ context.Context, code string) (domain.Coordinate, bool, error) {
	s.calls++
	c, ok := s.coords[code]
	return c, ok, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResolver(t *testing.T, geo domain.Geocoder) CoordinateResolver {
	t.Helper()
	r, err := geocache.NewResolver(geo, 0, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	return r
}

func sampleRows() []domain.IncidentRow {
	return []domain.IncidentRow{
		{Count: 3, Year: 2024, IncidentType: "BURGLARY OF MOTOR VEHICLE", PostalCode: "75201"},
		{Count: 2, Year: 2024, IncidentType: "THEFT OF SERVICE", PostalCode: "75201"},
		{Count: 4, Year: 2024, IncidentType: "ROBBERY", PostalCode: "75202"},
		{Count: 9, Year: 2023, IncidentType: "ROBBERY", PostalCode: "75202"},
		{Count: 5, Year: 2024, IncidentType: "ASSAULT", PostalCode: "75203"},
	}
}

// --- tests ---

func TestRun_EndToEnd(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	geo := &stubGeocoder{coords: map[string]domain.Coordinate{
		"75201": {Lat: 32.7812, Lon: -96.7969},
		"75202": {Lat: 32.7762, Lon: -96.8016},
	}}
	renderer := &fakeRenderer{}
	publisher := &fakePublisher{}

	p := New(&fakeSource{rows: sampleRows()}, testResolver(t, geo), renderer, publisher,
		cachePath, 2024, discardLogger(), observability.NewMetricsForTesting())

	require.Error(t, p.CheckReadiness(context.Background()), "not ready before the run")
	require.NoError(t, p.Run(context.Background()))
	require.NoError(t, p.CheckReadiness(context.Background()))

	// 2024 property rows only: assault and 2023 robbery are filtered out.
	require.Len(t, renderer.rendered, 2)
	assert.Equal(t, "75201", renderer.rendered[0].PostalCode)
	assert.Equal(t, 5, renderer.rendered[0].Total)
	assert.Equal(t, "75202", renderer.rendered[1].PostalCode)
	assert.Equal(t, 4, renderer.rendered[1].Total)

	assert.Equal(t, renderer.rendered, publisher.published)

	// The resolution pass persisted the cache for the next run.
	reloaded := geocache.Load(cachePath, discardLogger())
	assert.Equal(t, 2, reloaded.Len())
}

func TestRun_SecondRunUsesPersistedCache(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	geo := &stubGeocoder{coords: map[string]domain.Coordinate{
		"75201": {Lat: 32.7812, Lon: -96.7969},
		"75202": {Lat: 32.7762, Lon: -96.8016},
	}}

	run := func() {
		p := New(&fakeSource{rows: sampleRows()}, testResolver(t, geo), &fakeRenderer{}, nil,
			cachePath, 2024, discardLogger(), observability.NewMetricsForTesting())
		require.NoError(t, p.Run(context.Background()))
	}

	run()
	assert.Equal(t, 2, geo.calls)
	run()
	assert.Equal(t, 2, geo.calls, "second run must hit the persisted cache only")
}

func TestRun_SourceError(t *testing.T) {
	p := New(&fakeSource{err: errors.New("disk gone")}, testResolver(t, &stubGeocoder{}), &fakeRenderer{}, nil,
		filepath.Join(t.TempDir(), "cache.json"), 2024, discardLogger(), observability.NewMetricsForTesting())

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read incident rows")
}

func TestRun_RenderError(t *testing.T) {
	geo := &stubGeocoder{coords: map[string]domain.Coordinate{
		"75201": {Lat: 32.7812, Lon: -96.7969},
		"75202": {Lat: 32.7762, Lon: -96.8016},
	}}
	p := New(&fakeSource{rows: sampleRows()}, testResolver(t, geo), &fakeRenderer{err: errors.New("template broken")}, nil,
		filepath.Join(t.TempDir(), "cache.json"), 2024, discardLogger(), observability.NewMetricsForTesting())

	err := p.Run(context.Background())
	require.Error(t, err)
	require.Error(t, p.CheckReadiness(context.Background()))
}

func TestRun_PublishFailureIsNonFatal(t *testing.T) {
	geo := &stubGeocoder{coords: map[string]domain.Coordinate{
		"75201": {Lat: 32.7812, Lon: -96.7969},
		"75202": {Lat: 32.7762, Lon: -96.8016},
	}}
	p := New(&fakeSource{rows: sampleRows()}, testResolver(t, geo), &fakeRenderer{}, &fakePublisher{err: errors.New("broker down")},
		filepath.Join(t.TempDir(), "cache.json"), 2024, discardLogger(), observability.NewMetricsForTesting())

	require.NoError(t, p.Run(context.Background()))
	require.NoError(t, p.CheckReadiness(context.Background()))
}

func TestRun_UnresolvedCodesStillProduceBestEffortMap(t *testing.T) {
	// Only one of the two zips resolves; the map still renders with one marker.
	geo := &stubGeocoder{coords: map[string]domain.Coordinate{
		"75201": {Lat: 32.7812, Lon: -96.7969},
	}}
	renderer := &fakeRenderer{}
	p := New(&fakeSource{rows: sampleRows()}, testResolver(t, geo), renderer, nil,
		filepath.Join(t.TempDir(), "cache.json"), 2024, discardLogger(), observability.NewMetricsForTesting())

	require.NoError(t, p.Run(context.Background()))
	require.Len(t, renderer.rendered, 1)
	assert.Equal(t, "75201", renderer.rendered[0].PostalCode)
}

func TestRun_CorruptCacheDegradesToEmpty(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(cachePath, []byte("{corrupt"), 0o644))

	geo := &stubGeocoder{coords: map[string]domain.Coordinate{
		"75201": {Lat: 32.7812, Lon: -96.7969},
		"75202": {Lat: 32.7762, Lon: -96.8016},
	}}
	renderer := &fakeRenderer{}
	p := New(&fakeSource{rows: sampleRows()}, testResolver(t, geo), renderer, nil,
		cachePath, 2024, discardLogger(), observability.NewMetricsForTesting())

	require.NoError(t, p.Run(context.Background()))
	assert.Len(t, renderer.rendered, 2, "all codes treated as misses and resolved")
	assert.Equal(t, 2, geo.calls)
}

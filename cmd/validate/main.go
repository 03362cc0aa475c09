// Command validate performs integrity checks across the pipeline's inputs:
// the incident CSV export and the geocode cache file. It verifies the CSV
// parses with the expected columns, measures zip normalization coverage,
// checks the cache file round-trips, and cross-checks that the codes the
// target year needs are either cached or will be requested from the
// geocoding service.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv data/external/police_incidents.csv \
//	  -cache data/external/zip_coordinates.json \
//	  -year 2024
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/incident-map-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/incident-map-etl/internal/domain"
	"github.com/couchcryptid/incident-map-etl/internal/geocache"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the incident CSV export")
	cachePath := flag.String("cache", "", "path to the geocode cache file")
	year := flag.Int("year", 2024, "target year")
	flag.Parse()

	if *csvPath == "" || *cachePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*csvPath, *cachePath, *year))
}

func run(csvPath, cachePath string, year int) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	phases := []*phase{}

	csvPhase := &phase{name: "incident CSV"}
	phases = append(phases, csvPhase)
	rows := validateCSV(csvPhase, csvPath, logger)

	zipPhase := &phase{name: "zip coverage"}
	phases = append(phases, zipPhase)
	requested := validateZips(zipPhase, rows, year)

	cachePhase := &phase{name: "geocode cache"}
	phases = append(phases, cachePhase)
	cache := validateCache(cachePhase, cachePath, logger)

	crossPhase := &phase{name: "cross-check"}
	phases = append(phases, crossPhase)
	if cache != nil {
		crossCheck(crossPhase, requested, cache)
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed > 0 {
		fmt.Printf("%d/%d phases failed\n", failed, len(phases))
		return 1
	}
	fmt.Printf("all %d phases passed\n", len(phases))
	return 0
}

func validateCSV(p *phase, path string, logger *slog.Logger) []domain.IncidentRow {
	rows, err := csvfile.NewReader(path, logger).ReadRows(context.Background())
	if err != nil {
		p.errorf("read failed: %v", err)
		return nil
	}
	if len(rows) == 0 {
		p.errorf("no rows parsed")
		return nil
	}
	fmt.Printf("parsed %d rows from %s\n", len(rows), path)
	return rows
}

func validateZips(p *phase, rows []domain.IncidentRow, year int) []string {
	if rows == nil {
		p.errorf("skipped: CSV phase failed")
		return nil
	}

	filtered := domain.FilterPropertyIncidents(rows, year)
	if len(filtered) == 0 {
		p.errorf("no property-crime rows for year %d", year)
		return nil
	}

	withZip := 0
	for _, r := range filtered {
		if r.PostalCode != "" {
			withZip++
		}
	}
	coverage := float64(withZip) / float64(len(filtered))
	fmt.Printf("%d/%d filtered rows carry a normalizable zip (%.1f%%)\n", withZip, len(filtered), coverage*100)
	if coverage < 0.5 {
		p.errorf("zip coverage %.1f%% below 50%%: check the export's Zip Code column", coverage*100)
	}

	return domain.DistinctPostalCodes(filtered)
}

func validateCache(p *phase, path string, logger *slog.Logger) *geocache.Cache {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("no cache file at %s (first run: every zip will be geocoded)\n", path)
		return geocache.New()
	}

	cache := geocache.Load(path, logger)
	if cache.Len() == 0 {
		p.errorf("cache file exists but loaded zero entries: malformed content?")
		return cache
	}

	// Entries must survive a round-trip through a scratch location.
	tmp, err := os.CreateTemp("", "geocache-validate-*.json")
	if err != nil {
		p.errorf("create scratch file: %v", err)
		return cache
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := cache.Persist(tmpPath); err != nil {
		p.errorf("persist round-trip: %v", err)
		return cache
	}
	reloaded := geocache.Load(tmpPath, logger)
	if reloaded.Len() != cache.Len() {
		p.errorf("round-trip lost entries: %d != %d", reloaded.Len(), cache.Len())
	}

	fmt.Printf("cache holds %d entries\n", cache.Len())
	return cache
}

func crossCheck(p *phase, requested []string, cache *geocache.Cache) {
	if requested == nil {
		p.errorf("skipped: zip phase failed")
		return
	}
	missing := cache.Missing(requested)
	fmt.Printf("%d/%d requested zips already cached\n", len(requested)-len(missing), len(requested))
	if len(missing) > 0 {
		fmt.Printf("next run will geocode %d zips: %v\n", len(missing), missing)
	}
}

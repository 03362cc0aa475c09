// Command genmock generates a synthetic police incident CSV and a matching
// geocode cache fixture. It uses the actual domain package so the fixtures
// stay consistent with real pipeline behavior, and a seeded RNG so reruns
// are reproducible.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv-out data/mock/police_incidents.csv \
//	  -cache-out data/mock/zip_coordinates.json \
//	  -year 2024 -rows 500
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/incident-map-etl/internal/domain"
)

// dallasZips holds real Dallas zip codes with their approximate centroids,
// so the fixture map renders in the right place.
var dallasZips = map[string][2]float64{
	"75201": {32.7812, -96.7969},
	"75202": {32.7762, -96.8016},
	"75203": {32.7459, -96.8060},
	"75204": {32.8021, -96.7893},
	"75205": {32.8365, -96.7954},
	"75206": {32.8312, -96.7697},
	"75208": {32.7507, -96.8380},
	"75214": {32.8284, -96.7417},
	"75215": {32.7548, -96.7556},
	"75223": {32.7916, -96.7469},
}

var incidentTypes = []string{
	"BURGLARY OF HABITATION - FORCED ENTRY",
	"BURGLARY OF MOTOR VEHICLE",
	"THEFT OF SERVICE",
	"ROBBERY OF INDIVIDUAL",
	"SHOPLIFTING",
	"CRIMINAL MISCHIEF / VANDALISM",
	// Non-property types so filter behavior shows up in fixtures.
	"AGGRAVATED ASSAULT",
	"CRIMINAL TRESPASS",
	"FRAUD - CREDIT CARD",
}

var divisions = []string{"CENTRAL", "NORTHEAST", "SOUTHEAST", "SOUTHWEST", "NORTHWEST", "NORTH CENTRAL", "SOUTH CENTRAL"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvOut := flag.String("csv-out", "", "output path for the incident CSV fixture")
	cacheOut := flag.String("cache-out", "", "output path for the geocode cache fixture")
	year := flag.Int("year", 2024, "target year for most rows")
	rows := flag.Int("rows", 500, "number of CSV rows to generate")
	seed := flag.Int64("seed", 1, "RNG seed")
	flag.Parse()

	if *csvOut == "" || *cacheOut == "" {
		flag.Usage()
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))

	zips := make([]string, 0, len(dallasZips))
	for z := range dallasZips {
		zips = append(zips, z)
	}

	matched := 0
	records := make([][]string, 0, *rows)
	for i := 0; i < *rows; i++ {
		rowYear := *year
		if rng.Intn(5) == 0 {
			rowYear = *year - 1 // some rows outside the target year
		}
		incType := incidentTypes[rng.Intn(len(incidentTypes))]
		zip := zips[rng.Intn(len(zips))]
		count := 1 + rng.Intn(20)

		if rowYear == *year && domain.IsPropertyIncident(incType) {
			matched++
		}

		records = append(records, []string{
			strconv.Itoa(count),
			fmt.Sprintf("%d.0", rowYear), // mimic the export's float rendering
			incType,
			divisions[rng.Intn(len(divisions))],
			zip + ".0",
		})
	}

	if err := writeCSV(*csvOut, records); err != nil {
		return err
	}
	if err := writeCache(*cacheOut); err != nil {
		return err
	}

	fmt.Printf("wrote %d rows to %s (%d match the %d property-crime filter)\n", *rows, *csvOut, matched, *year)
	fmt.Printf("wrote %d cache entries to %s\n", len(dallasZips), *cacheOut)
	return nil
}

func writeCSV(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create CSV fixture: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"Counts", "Year of Incident", "Type of Incident", "Division", "Zip Code"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeCache(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(dallasZips, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

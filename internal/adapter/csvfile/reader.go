// Package csvfile reads the municipal incident CSV export.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/incident-map-etl/internal/domain"
)

// Column headers in the city's export. The count column is positional: the
// export's first column carries the pre-aggregated incident count.
const (
	colYear     = "Year of Incident"
	colType     = "Type of Incident"
	colDivision = "Division"
	colZip      = "Zip Code"
)

// Reader loads incident rows from a CSV file. Malformed rows are skipped
// with a warning rather than failing the whole file; a single bad export row
// should not block the run.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a Reader for the CSV file at path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// ReadRows parses the whole file. Postal codes are normalized at ingest;
// rows whose zip does not normalize keep an empty PostalCode and fall out
// during aggregation.
func (r *Reader) ReadRows(ctx context.Context) ([]domain.IncidentRow, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open incident CSV: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1 // the export occasionally pads trailing columns

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var rows []domain.IncidentRow
	skipped := 0
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.logger.Warn("unreadable CSV row, skipping", "line", line, "error", err)
			skipped++
			continue
		}

		row, err := cols.parse(record)
		if err != nil {
			r.logger.Warn("malformed CSV row, skipping", "line", line, "error", err)
			skipped++
			continue
		}
		rows = append(rows, row)
	}

	r.logger.Info("incident CSV loaded", "path", r.path, "rows", len(rows), "skipped", skipped)
	return rows, nil
}

// columns maps header names to field indexes.
type columns struct {
	count    int
	year     int
	incType  int
	division int
	zip      int
}

func mapColumns(header []string) (columns, error) {
	cols := columns{count: 0, year: -1, incType: -1, division: -1, zip: -1}
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case colYear:
			cols.year = i
		case colType:
			cols.incType = i
		case colDivision:
			cols.division = i
		case colZip:
			cols.zip = i
		}
	}
	if cols.year < 0 || cols.incType < 0 || cols.zip < 0 {
		return columns{}, fmt.Errorf("incident CSV missing required columns (%q, %q, %q): got %v",
			colYear, colType, colZip, header)
	}
	return cols, nil
}

func (c columns) parse(record []string) (domain.IncidentRow, error) {
	get := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	count, err := parseIntField(get(c.count))
	if err != nil {
		return domain.IncidentRow{}, fmt.Errorf("count column: %w", err)
	}
	year, err := parseIntField(get(c.year))
	if err != nil {
		return domain.IncidentRow{}, fmt.Errorf("year column: %w", err)
	}

	zip, _ := domain.NormalizePostalCode(get(c.zip))

	return domain.IncidentRow{
		Count:        count,
		Year:         year,
		IncidentType: get(c.incType),
		Division:     get(c.division),
		PostalCode:   zip,
	}, nil
}

// parseIntField accepts both "2024" and the "2024.0" float rendering the
// export uses for nullable numeric columns.
func parseIntField(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	n := int(f)
	if float64(n) != f {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return n, nil
}

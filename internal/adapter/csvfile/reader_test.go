package csvfile

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/incident-map-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "incidents.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleCSV = `Counts,Year of Incident,Type of Incident,Division,Zip Code
3,2024,BURGLARY OF MOTOR VEHICLE,CENTRAL,75201.0
1,2024.0,THEFT OF SERVICE,NORTHEAST,75202
2,2023,ROBBERY,CENTRAL,75201.0
4,2024,ASSAULT,SOUTHWEST,
`

func TestReadRows(t *testing.T) {
	r := NewReader(writeCSV(t, sampleCSV), discardLogger())

	rows, err := r.ReadRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, domain.IncidentRow{
		Count: 3, Year: 2024, IncidentType: "BURGLARY OF MOTOR VEHICLE",
		Division: "CENTRAL", PostalCode: "75201",
	}, rows[0])
	assert.Equal(t, 2024, rows[1].Year, "float-rendered year must parse")
	assert.Equal(t, "75202", rows[1].PostalCode)
	assert.Empty(t, rows[3].PostalCode, "blank zip stays empty and is dropped later")
}

func TestReadRows_SkipsMalformedRows(t *testing.T) {
	csv := `Counts,Year of Incident,Type of Incident,Division,Zip Code
not-a-number,2024,THEFT,CENTRAL,75201.0
2,twenty,THEFT,CENTRAL,75201.0
5,2024,SHOPLIFTING,CENTRAL,75201.0
`
	r := NewReader(writeCSV(t, csv), discardLogger())

	rows, err := r.ReadRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Count)
}

func TestReadRows_MissingColumns(t *testing.T) {
	r := NewReader(writeCSV(t, "Counts,Division\n1,CENTRAL\n"), discardLogger())

	_, err := r.ReadRows(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
}

func TestReadRows_MissingFile(t *testing.T) {
	r := NewReader(filepath.Join(t.TempDir(), "nope.csv"), discardLogger())

	_, err := r.ReadRows(context.Background())
	require.Error(t, err)
}

func TestReadRows_CancelledContext(t *testing.T) {
	r := NewReader(writeCSV(t, sampleCSV), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.ReadRows(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseIntField(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"2024", 2024, false},
		{"2024.0", 2024, false},
		{"3", 3, false},
		{"", 0, true},
		{"2024.5", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseIntField(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

package domain

// IncidentRow is one record from the municipal incident export, reduced to
// the columns the pipeline consumes.
type IncidentRow struct {
	Count        int    `json:"count"`
	Year         int    `json:"year"`
	IncidentType string `json:"incident_type"`
	Division     string `json:"division,omitempty"`
	PostalCode   string `json:"postal_code"`
}

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocationSummary is the aggregated, geocoded record handed to the rendering
// sink: one marker on the map.
type LocationSummary struct {
	PostalCode   string         `json:"postal_code"`
	Coordinate   Coordinate     `json:"coordinate"`
	Category     string         `json:"category"`
	Total        int            `json:"total"`
	CountsByType map[string]int `json:"counts_by_type"`
}

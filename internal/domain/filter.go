package domain

import "strings"

// PropertyCrimeCategory is the collapsed category every matched row is
// presented under on the map.
const PropertyCrimeCategory = "Property Crime"

// propertyKeywords match burglary and property-related incident types.
// TRESPASS, FRAUD, and FORGERY are intentionally excluded.
var propertyKeywords = []string{
	"BURGLARY",
	"THEFT",
	"ROBBERY",
	"STOLEN",
	"BREAKING",
	"ENTERING",
	"LARCENY",
	"EMBEZZLEMENT",
	"AUTO THEFT",
	"CRIMINAL MISCHIEF",
	"VANDALISM",
	"SHOPLIFTING",
}

// IsPropertyIncident reports whether an incident type description matches the
// property-crime keyword list. Matching is case-insensitive substring search.
func IsPropertyIncident(incidentType string) bool {
	upper := strings.ToUpper(incidentType)
	for _, kw := range propertyKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// FilterPropertyIncidents keeps rows from the target year whose incident type
// matches the property-crime keyword list. Pure function: the input slice is
// not modified.
func FilterPropertyIncidents(rows []IncidentRow, year int) []IncidentRow {
	out := make([]IncidentRow, 0, len(rows))
	for _, row := range rows {
		if row.Year != year {
			continue
		}
		if !IsPropertyIncident(row.IncidentType) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// DistinctPostalCodes returns the sorted set of postal codes present in rows.
func DistinctPostalCodes(rows []IncidentRow) []string {
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.PostalCode == "" {
			continue
		}
		seen[row.PostalCode] = struct{}{}
	}
	return sortedKeys(seen)
}

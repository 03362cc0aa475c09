package domain

import "sort"

// CoordinateLookup resolves a postal code to coordinates. The second return
// is false when no coordinate is known for the code.
type CoordinateLookup func(postalCode string) (Coordinate, bool)

// Aggregate groups filtered rows by postal code, summing incident counts per
// subtype and in total, and attaches coordinates via lookup. Rows whose
// postal code has no resolved coordinate are dropped: the map is best-effort
// and renders every location that could be resolved. Output is sorted by
// postal code for deterministic rendering and publishing.
func Aggregate(rows []IncidentRow, lookup CoordinateLookup) []LocationSummary {
	byZip := make(map[string]*LocationSummary)
	for _, row := range rows {
		coord, ok := lookup(row.PostalCode)
		if !ok {
			continue
		}
		s := byZip[row.PostalCode]
		if s == nil {
			s = &LocationSummary{
				PostalCode:   row.PostalCode,
				Coordinate:   coord,
				Category:     PropertyCrimeCategory,
				CountsByType: make(map[string]int),
			}
			byZip[row.PostalCode] = s
		}
		s.Total += row.Count
		s.CountsByType[row.IncidentType] += row.Count
	}

	out := make([]LocationSummary, 0, len(byZip))
	for _, s := range byZip {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostalCode < out[j].PostalCode })
	return out
}

// TypesByCount returns the subtype names of a summary ordered by descending
// count, ties broken alphabetically. Used for popup breakdowns.
func TypesByCount(counts map[string]int) []string {
	names := sortedKeysInt(counts)
	sort.SliceStable(names, func(i, j int) bool { return counts[names[i]] > counts[names[j]] })
	return names
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysInt(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

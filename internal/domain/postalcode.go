package domain

import "strings"

// NormalizePostalCode canonicalizes a raw zip code value from the CSV export.
// It trims whitespace, strips the ".0" float suffix the export produces,
// rejects anything that is not all digits, and left-pads to five characters.
// Normalization happens once at ingest; the geocode cache compares keys as
// opaque strings, so a stable canonical form is what keeps cache hits working
// across runs.
func NormalizePostalCode(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		for _, r := range s[i+1:] {
			if r != '0' {
				return "", false
			}
		}
		s = s[:i]
	}
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	if len(s) > 5 {
		return "", false
	}
	for len(s) < 5 {
		s = "0" + s
	}
	return s, true
}

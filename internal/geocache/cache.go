// Package geocache owns the persistent postal code → coordinate mapping and
// the resolution pass that fills it through an external geocoder.
//
// The cache is append-only: every stored entry is a successfully resolved
// coordinate, failed lookups are never recorded, and nothing is ever evicted.
// The universe of postal codes in one municipality is small and static, so
// the file simply accumulates across runs. One resolution pass is
// load → resolve misses → persist, with the cache value scoped to the pass.
package geocache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/incident-map-etl/internal/domain"
)

// Cache maps normalized postal codes to resolved coordinates. Keys are
// compared as opaque strings; callers normalize at ingest.
type Cache struct {
	entries map[string]domain.Coordinate
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]domain.Coordinate)}
}

// Load reads the cache file at path. A missing, unreadable, or malformed
// file degrades to an empty cache with a logged warning so a broken cache
// never blocks the pipeline; every requested code simply becomes a miss.
func Load(path string, logger *slog.Logger) *Cache {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no geocode cache file, starting empty", "path", path)
		} else {
			logger.Warn("geocode cache unreadable, starting empty", "path", path, "error", err)
		}
		return New()
	}

	var raw map[string][2]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Warn("geocode cache malformed, starting empty", "path", path, "error", err)
		return New()
	}

	c := New()
	for code, pair := range raw {
		c.entries[code] = domain.Coordinate{Lat: pair[0], Lon: pair[1]}
	}
	logger.Info("geocode cache loaded", "path", path, "entries", len(c.entries))
	return c
}

// Lookup returns the coordinate for a postal code, if cached.
func (c *Cache) Lookup(postalCode string) (domain.Coordinate, bool) {
	coord, ok := c.entries[postalCode]
	return coord, ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the mapping.
func (c *Cache) Entries() map[string]domain.Coordinate {
	out := make(map[string]domain.Coordinate, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// Missing returns the sorted set of requested codes absent from the cache.
// The order is what makes a resolution pass deterministic, and the set
// difference is how callers detect codes that stayed unresolved after one.
func (c *Cache) Missing(requested []string) []string {
	seen := make(map[string]struct{}, len(requested))
	var out []string
	for _, code := range requested {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		if _, ok := c.entries[code]; !ok {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Cache) put(postalCode string, coord domain.Coordinate) {
	c.entries[postalCode] = coord
}

// Persist writes the full mapping to path as an indented JSON object,
// `{"75201": [32.7812, -96.7969], ...}`. The write goes to a temp file in
// the same directory followed by a rename, so a reader of path never
// observes a half-written file. A Persist failure costs durability only:
// the in-memory cache the caller holds stays valid for the rest of the run.
func (c *Cache) Persist(path string) error {
	raw := make(map[string][2]float64, len(c.entries))
	for code, coord := range c.entries {
		raw[code] = [2]float64{coord.Lat, coord.Lon}
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal geocode cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

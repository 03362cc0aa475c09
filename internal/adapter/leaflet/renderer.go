// Package leaflet renders aggregated incident locations as a static,
// self-contained Leaflet HTML map.
package leaflet

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/incident-map-etl/internal/domain"
)

//go:embed map.html.tmpl
var templateFS embed.FS

var mapTemplate = template.Must(template.ParseFS(templateFS, "map.html.tmpl"))

const (
	minRadius = 5.0
	maxRadius = 30.0

	// Categories beyond the first maxDistinctColors share a gray marker.
	maxDistinctColors = 50

	// Only the largest categories get their own toggleable layer; the rest
	// render in the always-on base layer.
	maxToggleableLayers = 10
)

// Options control the map artifact.
type Options struct {
	Title       string
	Subtitle    string
	Attribution string
	CenterLat   float64
	CenterLon   float64
	Zoom        int
}

// Renderer writes the map artifact to a fixed output path.
type Renderer struct {
	path   string
	opts   Options
	logger *slog.Logger
}

// NewRenderer creates a Renderer writing to path.
func NewRenderer(path string, opts Options, logger *slog.Logger) *Renderer {
	return &Renderer{path: path, opts: opts, logger: logger}
}

// marker is the per-circle payload embedded in the page as JSON.
type marker struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Radius  float64 `json:"radius"`
	Color   string  `json:"color"`
	Tooltip string  `json:"tooltip"`
	Popup   string  `json:"popup"` // pre-escaped HTML
}

// layer is a named, toggleable group of markers.
type layer struct {
	Name    string   `json:"name"`
	Markers []marker `json:"markers"`
}

type templateData struct {
	Title       string
	Subtitle    string
	Attribution string
	CenterLat   float64
	CenterLon   float64
	Zoom        int
	LayersJSON  template.JS
	BaseJSON    template.JS
}

// Render writes the HTML artifact for the given summaries. An empty input is
// an error: an all-failed geocoding pass should be visible, not a blank map.
func (r *Renderer) Render(_ context.Context, summaries []domain.LocationSummary) error {
	if len(summaries) == 0 {
		return fmt.Errorf("render map: no mappable locations")
	}

	layers, base := buildLayers(summaries)

	layersJSON, err := json.Marshal(layers)
	if err != nil {
		return fmt.Errorf("marshal layers: %w", err)
	}
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return fmt.Errorf("marshal base markers: %w", err)
	}

	data := templateData{
		Title:       r.opts.Title,
		Subtitle:    r.opts.Subtitle,
		Attribution: r.opts.Attribution,
		CenterLat:   r.opts.CenterLat,
		CenterLon:   r.opts.CenterLon,
		Zoom:        r.opts.Zoom,
		LayersJSON:  template.JS(layersJSON),
		BaseJSON:    template.JS(baseJSON),
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("create map artifact: %w", err)
	}
	if err := mapTemplate.Execute(f, data); err != nil {
		f.Close()
		return fmt.Errorf("render map template: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close map artifact: %w", err)
	}

	r.logger.Info("map artifact written", "path", r.path, "markers", len(summaries), "layers", len(layers))
	return nil
}

// buildLayers groups summaries by category. The top categories by total
// count become toggleable layers; everything else lands in the base layer.
func buildLayers(summaries []domain.LocationSummary) ([]layer, []marker) {
	minCount, maxCount := countRange(summaries)

	totals := make(map[string]int)
	for _, s := range summaries {
		totals[s.Category] += s.Total
	}
	categories := make([]string, 0, len(totals))
	for c := range totals {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if totals[categories[i]] != totals[categories[j]] {
			return totals[categories[i]] > totals[categories[j]]
		}
		return categories[i] < categories[j]
	})

	colors := categoryColors(categories)
	layered := make(map[string]bool, len(categories))
	for i, c := range categories {
		layered[c] = i < maxToggleableLayers
	}

	markersByCategory := make(map[string][]marker)
	var base []marker
	for _, s := range summaries {
		m := marker{
			Lat:     s.Coordinate.Lat,
			Lon:     s.Coordinate.Lon,
			Radius:  scaleRadius(s.Total, minCount, maxCount),
			Color:   colors[s.Category],
			Tooltip: fmt.Sprintf("%s: %s incidents", s.Category, formatCount(s.Total)),
			Popup:   popupHTML(s),
		}
		if layered[s.Category] {
			markersByCategory[s.Category] = append(markersByCategory[s.Category], m)
		} else {
			base = append(base, m)
		}
	}

	var layers []layer
	for _, c := range categories {
		if !layered[c] {
			continue
		}
		layers = append(layers, layer{Name: truncate(c, 50), Markers: markersByCategory[c]})
	}
	return layers, base
}

// popupHTML builds the per-marker popup: total plus the subtype breakdown in
// descending count order. Subtype names are escaped; counts are formatted
// with thousands separators.
func popupHTML(s domain.LocationSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Zip Code:</b> %s<br>", html.EscapeString(s.PostalCode))
	fmt.Fprintf(&b, "<b>Total %s:</b> %s<br>", html.EscapeString(s.Category), formatCount(s.Total))
	b.WriteString("<br><b>Incident Types (by frequency):</b><br>")
	for _, name := range domain.TypesByCount(s.CountsByType) {
		fmt.Fprintf(&b, "&bull; %s: %s<br>", html.EscapeString(name), formatCount(s.CountsByType[name]))
	}
	return b.String()
}

func countRange(summaries []domain.LocationSummary) (minCount, maxCount int) {
	minCount, maxCount = summaries[0].Total, summaries[0].Total
	for _, s := range summaries[1:] {
		if s.Total < minCount {
			minCount = s.Total
		}
		if s.Total > maxCount {
			maxCount = s.Total
		}
	}
	return minCount, maxCount
}

// scaleRadius maps a count linearly into [minRadius, maxRadius]. A flat
// distribution gets the midpoint.
func scaleRadius(count, minCount, maxCount int) float64 {
	if maxCount == minCount {
		return (minRadius + maxRadius) / 2
	}
	normalized := float64(count-minCount) / float64(maxCount-minCount)
	return minRadius + normalized*(maxRadius-minRadius)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCount(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

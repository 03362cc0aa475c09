package leaflet

import (
	"fmt"
	"math"
)

// categoryColors assigns a distinct hex color per category. Hues advance by
// the golden ratio for even distribution around the wheel, with saturation
// cycling 0.7/0.8/0.9 and value cycling 0.8/0.9 so neighboring hues still
// separate visually. Categories past maxDistinctColors share gray.
func categoryColors(categories []string) map[string]string {
	const goldenRatio = 0.618033988749895

	colors := make(map[string]string, len(categories))
	for i, category := range categories {
		if i >= maxDistinctColors {
			colors[category] = "#808080"
			continue
		}
		hue := math.Mod(float64(i)*goldenRatio, 1.0)
		saturation := 0.7 + float64(i%3)*0.1
		value := 0.8 + float64(i%2)*0.1
		colors[category] = hsvToHex(hue, saturation, value)
	}
	return colors
}

// hsvToHex converts HSV (all components in [0,1]) to a #rrggbb string.
func hsvToHex(h, s, v float64) string {
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}

	return fmt.Sprintf("#%02x%02x%02x", int(r*255), int(g*255), int(b*255))
}

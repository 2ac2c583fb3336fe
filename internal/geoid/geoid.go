// Package geoid normalizes census-tract GEOID keys. GEOIDs are opaque
// fixed-width strings, never numeric: leading zeros are significant.
package geoid

import (
	"strconv"
	"strings"
)

// Width is the tract GEOID width in the reference domain.
const Width = 11

// Pad trims and zero-pads a raw GEOID cell to the given width. Survey
// exports often render GEOIDs as floats ("6083000100.0") or mark
// missing values with "."; both are handled, with missing mapping to "".
func Pad(raw string, width int) string {
	g := strings.TrimSpace(raw)
	if g == "" || g == "." {
		return ""
	}
	if dot := strings.IndexByte(g, '.'); dot >= 0 {
		if _, err := strconv.ParseFloat(g, 64); err == nil {
			g = g[:dot]
		}
	}
	for len(g) < width {
		g = "0" + g
	}
	return g
}

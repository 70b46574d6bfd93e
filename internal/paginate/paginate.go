// Package paginate derives page counts from measured content geometry.
// It never lays content out itself: the rendering surface reflows text into
// columns and this package only measures the result.
package paginate

import (
	"math"

	"github.com/pagekeep/pagekeep-server/internal/domain"
)

// Geometry is a single measurement of the rendering surface.
type Geometry struct {
	ViewportWidth float64 `json:"viewport_width"`
	ContentWidth  float64 `json:"content_width"`
}

// Sampler reads current layout metrics from the rendering surface.
// Sample is a single synchronous read with no side effects; ok is false
// while the surface is not yet attached.
type Sampler interface {
	Sample() (geo Geometry, ok bool)
}

// overshootTolerance absorbs sub-pixel and column-gap rounding noise.
// Renderers routinely overshoot the logical page boundary by a few pixels,
// and a naive ceil would manufacture a trailing near-empty page. Only an
// overshoot under 10% of one page is discarded, so genuinely multi-page
// content is never truncated.
const overshootTolerance = 0.10

// TotalPages derives the page count from a geometry sample.
// Continuous mode, an unattached surface, and a zero-width viewport all
// collapse to a single page. The result is always >= 1.
func TotalPages(geo Geometry, ok bool, mode domain.DisplayMode) int {
	if mode.Continuous() || !ok || geo.ViewportWidth <= 0 {
		return 1
	}

	raw := geo.ContentWidth / geo.ViewportWidth

	var pages int
	if raw-math.Floor(raw) < overshootTolerance {
		pages = int(math.Floor(raw))
	} else {
		pages = int(math.Ceil(raw))
	}

	if pages < 1 {
		return 1
	}
	return pages
}

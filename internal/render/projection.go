package render

import (
	"image"
	"math"

	"material-router/internal/config"

	"github.com/paulmach/orb"
)

// Projection maps domain coordinates onto map-image pixels:
//
//	px = (x + OffsetX) * Scale
//	py = (ReferenceHeight - y) * Scale
type Projection struct {
	OffsetX         float64
	ReferenceHeight float64
	Scale           float64
}

// ProjectionFromConfig returns the projection configured in cfg.
func ProjectionFromConfig(cfg *config.Config) Projection {
	return Projection{
		OffsetX:         cfg.OffsetX,
		ReferenceHeight: cfg.ReferenceHeight,
		Scale:           cfg.Scale,
	}
}

// ToPixel projects one point.
func (p Projection) ToPixel(pt orb.Point) orb.Point {
	return orb.Point{
		(pt.X() + p.OffsetX) * p.Scale,
		(p.ReferenceHeight - pt.Y()) * p.Scale,
	}
}

// Project projects every point, keeping order.
func (p Projection) Project(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, pt := range pts {
		out[i] = p.ToPixel(pt)
	}
	return out
}

// ZoomBounds returns the bounding box of pixels grown by margin on every side.
// ok is false when pixels is empty.
func ZoomBounds(pixels []orb.Point, margin float64) (orb.Bound, bool) {
	if len(pixels) == 0 {
		return orb.Bound{}, false
	}
	return orb.MultiPoint(pixels).Bound().Pad(margin), true
}

// cropRect converts a zoom box to an integer rectangle inside limit.
// An empty intersection falls back to limit.
func cropRect(b orb.Bound, limit image.Rectangle) image.Rectangle {
	r := image.Rect(
		int(math.Floor(b.Min.X())), int(math.Floor(b.Min.Y())),
		int(math.Ceil(b.Max.X())), int(math.Ceil(b.Max.Y())),
	).Intersect(limit)
	if r.Empty() {
		return limit
	}
	return r
}

package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"material-router/internal/catalog"
	"material-router/internal/config"
	"material-router/internal/route"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
)

const (
	arrowHeadLength = 8
	arrowHeadAngle  = math.Pi / 7
	legendRows      = 4
	legendPadding   = 6
	legendRowHeight = 16
)

// Options controls what Render draws.
type Options struct {
	Projection      Projection
	ShowArrows      bool
	Zoom            bool
	ZoomMargin      float64
	MarkerSize      float64
	StartMarkerSize float64

	// Start is the input index of the stop to highlight, if any.
	Start *int

	// Palette assigns colors and markers; nil builds one from the route's names.
	Palette *Palette
}

// OptionsFromConfig fills Options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Projection:      ProjectionFromConfig(cfg),
		ShowArrows:      cfg.ShowArrows,
		Zoom:            cfg.Zoom,
		ZoomMargin:      cfg.ZoomMargin,
		MarkerSize:      cfg.MarkerSize,
		StartMarkerSize: cfg.StartMarkerSize,
	}
}

// LoadImage reads the background map.
func LoadImage(path string) (image.Image, error) {
	img, err := gg.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("load map image: %w", err)
	}
	return img, nil
}

// Draw plots r over base and returns the (optionally cropped) result.
func Draw(base image.Image, r route.Route[catalog.Material], opts Options) (image.Image, error) {
	palette := opts.Palette
	if palette == nil {
		var err error
		palette, err = NewPalette(catalog.UniqueNames(r.Items()))
		if err != nil {
			return nil, err
		}
	}

	dc := gg.NewContextForImage(base)
	pixels := opts.Projection.Project(r.Points())

	view := dc.Image().Bounds()
	if opts.Zoom {
		if b, ok := ZoomBounds(pixels, opts.ZoomMargin); ok {
			view = cropRect(b, view)
		}
	}

	if opts.ShowArrows && len(pixels) > 1 {
		dc.SetColor(color.Black)
		dc.SetLineWidth(1)
		for i := range pixels {
			drawArrow(dc, pixels[i], pixels[(i+1)%len(pixels)])
		}
	}

	for i, s := range r.Stops {
		size := opts.MarkerSize
		if opts.Start != nil && *opts.Start == s.Index {
			size = opts.StartMarkerSize
		}
		drawMarker(dc, palette.Style(s.Item.Name), pixels[i], size)
	}

	drawLegend(dc, palette, legendNames(r), view)

	img := dc.Image()
	if view != img.Bounds() {
		if sub, ok := img.(interface {
			SubImage(image.Rectangle) image.Image
		}); ok {
			return sub.SubImage(view), nil
		}
	}
	return img, nil
}

// Render draws r over base and writes a PNG to w.
func Render(w io.Writer, base image.Image, r route.Route[catalog.Material], opts Options) error {
	img, err := Draw(base, r, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// legendNames lists names in first-visited order, once each.
func legendNames(r route.Route[catalog.Material]) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range r.Items() {
		if !seen[m.Name] {
			seen[m.Name] = true
			out = append(out, m.Name)
		}
	}
	return out
}

func drawArrow(dc *gg.Context, from, to orb.Point) {
	dx, dy := to.X()-from.X(), to.Y()-from.Y()
	if dx == 0 && dy == 0 {
		return
	}
	dc.DrawLine(from.X(), from.Y(), to.X(), to.Y())
	angle := math.Atan2(dy, dx)
	for _, side := range []float64{-1, 1} {
		a := angle + math.Pi + side*arrowHeadAngle
		dc.DrawLine(to.X(), to.Y(), to.X()+arrowHeadLength*math.Cos(a), to.Y()+arrowHeadLength*math.Sin(a))
	}
	dc.Stroke()
}

func drawMarker(dc *gg.Context, s Style, at orb.Point, size float64) {
	x, y, r := at.X(), at.Y(), size/2
	dc.SetColor(s.Color)
	switch s.Marker {
	case MarkerX:
		dc.SetLineWidth(math.Max(1, size/4))
		dc.DrawLine(x-r, y-r, x+r, y+r)
		dc.DrawLine(x-r, y+r, x+r, y-r)
		dc.Stroke()
		return
	case MarkerCircle:
		dc.DrawCircle(x, y, r)
	case MarkerSquare:
		dc.DrawRectangle(x-r, y-r, 2*r, 2*r)
	case MarkerTriangleUp:
		dc.DrawRegularPolygon(3, x, y, r, 0)
	case MarkerTriangleDown:
		dc.DrawRegularPolygon(3, x, y, r, math.Pi)
	case MarkerTriangleLeft:
		dc.DrawRegularPolygon(3, x, y, r, -math.Pi/2)
	case MarkerTriangleRight:
		dc.DrawRegularPolygon(3, x, y, r, math.Pi/2)
	case MarkerDiamond:
		dc.DrawRegularPolygon(4, x, y, r, math.Pi/4)
	case MarkerPlus:
		w := r / 2.5
		dc.DrawRectangle(x-r, y-w, 2*r, 2*w)
		dc.DrawRectangle(x-w, y-r, 2*w, 2*r)
	case MarkerStar:
		for i := 0; i < 10; i++ {
			rr := r
			if i%2 == 1 {
				rr = r * 0.45
			}
			a := -math.Pi/2 + float64(i)*math.Pi/5
			dc.LineTo(x+rr*math.Cos(a), y+rr*math.Sin(a))
		}
		dc.ClosePath()
	}
	dc.Fill()
}

// drawLegend places one row per name in the top-right corner of view,
// wrapping into extra columns after legendRows rows.
func drawLegend(dc *gg.Context, p *Palette, names []string, view image.Rectangle) {
	if len(names) == 0 {
		return
	}
	rows := min(len(names), legendRows)
	cols := (len(names) + legendRows - 1) / legendRows

	colWidth := 0.0
	for _, n := range names {
		w, _ := dc.MeasureString(n)
		colWidth = math.Max(colWidth, w)
	}
	colWidth += legendRowHeight + legendPadding

	width := float64(cols)*colWidth + legendPadding
	height := float64(rows)*legendRowHeight + legendPadding
	left := float64(view.Max.X) - width - legendPadding
	top := float64(view.Min.Y) + legendPadding

	dc.SetRGBA(1, 1, 1, 0.85)
	dc.DrawRectangle(left, top, width, height)
	dc.Fill()
	dc.SetColor(color.Gray{Y: 96})
	dc.SetLineWidth(1)
	dc.DrawRectangle(left, top, width, height)
	dc.Stroke()

	for i, n := range names {
		col, row := i/legendRows, i%legendRows
		x := left + legendPadding + float64(col)*colWidth
		y := top + legendPadding/2 + float64(row)*legendRowHeight + legendRowHeight/2
		drawMarker(dc, p.Style(n), orb.Point{x + 4, y}, 8)
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(n, x+legendRowHeight, y, 0, 0.5)
	}
}

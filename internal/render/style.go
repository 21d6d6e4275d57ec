package render

import (
	"fmt"
	"image/color"
	"slices"
	"sort"

	"github.com/mazznoer/colorgrad"
)

// Marker is the glyph drawn at a stop.
type Marker int

const (
	MarkerX Marker = iota
	MarkerCircle
	MarkerSquare
	MarkerTriangleUp
	MarkerTriangleDown
	MarkerPlus
	MarkerStar
	MarkerDiamond
	MarkerTriangleLeft
	MarkerTriangleRight
)

var markerCycle = []Marker{
	MarkerX, MarkerCircle, MarkerSquare, MarkerTriangleUp, MarkerTriangleDown,
	MarkerPlus, MarkerStar, MarkerDiamond, MarkerTriangleLeft, MarkerTriangleRight,
}

var baseColors = []string{"red", "blue", "green", "orange", "purple", "brown", "cyan", "magenta"}

// Style is how one material name is drawn.
type Style struct {
	Color  color.Color
	Marker Marker
}

// Palette assigns a Style to every material name.
type Palette struct {
	names  []string
	styles map[string]Style
}

// NewPalette builds a deterministic palette: names are sorted, markers cycle
// through markerCycle and colors are sampled evenly from a gradient over
// baseColors, so every name gets its own color.
func NewPalette(names []string) (*Palette, error) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	sorted = slices.Compact(sorted)

	p := &Palette{names: sorted, styles: make(map[string]Style, len(sorted))}
	if len(sorted) == 0 {
		return p, nil
	}

	grad, err := colorgrad.NewGradient().HtmlColors(baseColors...).Build()
	if err != nil {
		return nil, fmt.Errorf("build palette: %w", err)
	}
	count := max(len(sorted), 2)
	colors := grad.Colors(uint(count))
	for i, name := range sorted {
		p.styles[name] = Style{
			Color:  colors[i],
			Marker: markerCycle[i%len(markerCycle)],
		}
	}
	return p, nil
}

// Style returns the style for name; unknown names are drawn as black circles.
func (p *Palette) Style(name string) Style {
	if s, ok := p.styles[name]; ok {
		return s
	}
	return Style{Color: color.Black, Marker: MarkerCircle}
}

// Names returns the palette's names, sorted.
func (p *Palette) Names() []string {
	return p.names
}

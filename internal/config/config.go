package config

// Config holds application settings (in-memory representation).
// Persistence is handled by internal/db package.
type Config struct {
	CatalogPath  string `json:"catalog_path"`
	Category     string `json:"category"`
	MapImagePath string `json:"map_image_path"`

	// Route size bounds offered to the user. The builder itself only clamps
	// to [0, number of candidates].
	RouteLength    int `json:"route_length"`
	MinRouteLength int `json:"min_route_length"`
	MaxRouteLength int `json:"max_route_length"`

	// Domain -> image pixel projection:
	//   px = (x + OffsetX) * Scale
	//   py = (ReferenceHeight - y) * Scale
	OffsetX         float64 `json:"offset_x"`
	ReferenceHeight float64 `json:"reference_height"`
	Scale           float64 `json:"scale"`

	ZoomMargin      float64 `json:"zoom_margin"` // pixels around the route bounding box
	Zoom            bool    `json:"zoom"`
	ShowArrows      bool    `json:"show_arrows"`
	MarkerSize      float64 `json:"marker_size"`
	StartMarkerSize float64 `json:"start_marker_size"`

	Port int `json:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		CatalogPath:     "support_files/materials.json",
		Category:        "Materiais",
		MapImagePath:    "support_files/map.jpg",
		RouteLength:     20,
		MinRouteLength:  2,
		MaxRouteLength:  50,
		OffsetX:         9.6,
		ReferenceHeight: 1113.2,
		Scale:           10,
		ZoomMargin:      100,
		Zoom:            true,
		ShowArrows:      true,
		MarkerSize:      8,
		StartMarkerSize: 12,
		Port:            13380,
	}
}

// ClampRouteLength bounds a requested route length to the configured range.
// A non-positive request falls back to RouteLength.
func (c *Config) ClampRouteLength(n int) int {
	if n <= 0 {
		n = c.RouteLength
	}
	if c.MinRouteLength > 0 && n < c.MinRouteLength {
		n = c.MinRouteLength
	}
	if c.MaxRouteLength > 0 && n > c.MaxRouteLength {
		n = c.MaxRouteLength
	}
	return n
}

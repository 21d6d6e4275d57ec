package export

import (
	"fmt"
	"io"
	"strings"

	"material-router/internal/catalog"
	"material-router/internal/route"

	"github.com/twpayne/go-kml"
)

// WriteKML writes r as a KML document: a folder of numbered stop placemarks
// followed by one LineString for the path. Domain x is written as longitude
// and y as latitude, unprojected.
func WriteKML(w io.Writer, name string, r route.Route[catalog.Material]) error {
	var stops []kml.Element
	coords := make([]kml.Coordinate, 0, r.Len())
	for i, s := range r.Stops {
		c := kml.Coordinate{Lon: s.Point.X(), Lat: s.Point.Y()}
		coords = append(coords, c)
		stops = append(stops, kml.Placemark(
			kml.Name(fmt.Sprintf("%d. %s", i+1, s.Item.Name)),
			kml.Description(stopDescription(s.Item)),
			kml.Point(kml.Coordinates(c)),
		))
	}

	docElements := []kml.Element{kml.Name(name)}
	if len(stops) > 0 {
		folder := []kml.Element{kml.Name("Stops")}
		docElements = append(docElements, kml.Folder(append(folder, stops...)...))
	}
	if len(coords) > 1 {
		docElements = append(docElements, kml.Placemark(
			kml.Name("Path"),
			kml.LineString(kml.Coordinates(coords...)),
		))
	}

	doc := kml.KML(kml.Document(docElements...))
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("write KML: %w", err)
	}
	return nil
}

func stopDescription(m catalog.Material) string {
	var parts []string
	if m.Tier != "" {
		parts = append(parts, "Tier: "+m.Tier)
	}
	if m.Description != "" {
		parts = append(parts, m.Description)
	}
	parts = append(parts, "ID: "+m.ID)
	return strings.Join(parts, "\n")
}

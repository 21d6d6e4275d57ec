package export

import (
	"fmt"

	"material-router/internal/catalog"
	"material-router/internal/route"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSON returns r as a FeatureCollection: one Point feature per stop,
// in visiting order, then a LineString feature for the path when the route
// has at least two stops.
func GeoJSON(r route.Route[catalog.Material]) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, s := range r.Stops {
		f := geojson.NewFeature(s.Point)
		f.Properties["order"] = i + 1
		f.Properties["index"] = s.Index
		f.Properties["name"] = s.Item.Name
		f.Properties["id"] = s.Item.ID
		if s.Item.Tier != "" {
			f.Properties["tier"] = s.Item.Tier
		}
		if s.Item.Description != "" {
			f.Properties["description"] = s.Item.Description
		}
		fc.Append(f)
	}
	if r.Len() > 1 {
		path := geojson.NewFeature(orb.LineString(r.Points()))
		path.Properties["kind"] = "path"
		path.Properties["distance"] = r.Distance(false)
		fc.Append(path)
	}
	return fc
}

// MarshalGeoJSON encodes GeoJSON(r).
func MarshalGeoJSON(r route.Route[catalog.Material]) ([]byte, error) {
	b, err := GeoJSON(r).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal geojson: %w", err)
	}
	return b, nil
}

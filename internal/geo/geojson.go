package geo

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/spinplate/internal/model"
)

// SRID is the spatial reference of every point we emit (WGS84).
const SRID = 4326

// Point builds a WGS84 point. go-geom stores XY, so longitude comes first.
func Point(lat, lon float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(SRID)
}

// Feature converts a candidate into a GeoJSON point feature.
func Feature(c model.Candidate) *geojson.Feature {
	props := map[string]any{
		"name":        c.Name,
		"cuisine":     c.CuisineLabel,
		"dining_type": string(c.DiningType),
		"price_tier":  int(c.PriceTier),
		"image_ref":   c.ImageRef,
		"rating":      c.Rating,
	}
	if c.Address != "" {
		props["address"] = c.Address
	}
	if c.DistanceMiles != nil {
		props["distance_miles"] = *c.DistanceMiles
	}
	return &geojson.Feature{
		ID:         c.ID,
		Geometry:   Point(c.Latitude, c.Longitude),
		Properties: props,
	}
}

// FeatureCollection encodes candidates as a GeoJSON FeatureCollection.
func FeatureCollection(cands []model.Candidate) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(cands))}
	for _, c := range cands {
		fc.Features = append(fc.Features, Feature(c))
	}
	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "geo: marshal feature collection")
	}
	return data, nil
}

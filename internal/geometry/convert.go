package geometry

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-polyline"
)

// RingFromGeoJSON parses a GeoJSON Polygon (or a Feature wrapping one) and
// returns its outer ring. Polygons with holes are rejected.
func RingFromGeoJSON(raw []byte) (orb.Ring, error) {
	g, err := decodeGeoJSON(raw)
	if err != nil {
		return nil, err
	}
	poly, ok := g.(orb.Polygon)
	if !ok {
		return nil, invalidf("expected Polygon, got %s", g.GeoJSONType())
	}
	if len(poly) == 0 {
		return nil, invalidf("polygon has no rings")
	}
	if len(poly) > 1 {
		return nil, invalidf("polygon holes are not supported")
	}
	if err := ValidateRing(poly[0]); err != nil {
		return nil, err
	}
	return poly[0], nil
}

// LineStringFromGeoJSON parses a GeoJSON LineString (or a Feature wrapping one).
func LineStringFromGeoJSON(raw []byte) (orb.LineString, error) {
	g, err := decodeGeoJSON(raw)
	if err != nil {
		return nil, err
	}
	ls, ok := g.(orb.LineString)
	if !ok {
		return nil, invalidf("expected LineString, got %s", g.GeoJSONType())
	}
	if err := ValidateLineString(ls); err != nil {
		return nil, err
	}
	return ls, nil
}

// LineStringFromPolyline decodes a Google encoded polyline. Encoded pairs are
// (lat, lng) and are swapped into (lng, lat) points.
func LineStringFromPolyline(encoded string) (orb.LineString, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, invalidf("decode polyline: %v", err)
	}
	if len(rest) != 0 {
		return nil, invalidf("polyline has %d trailing bytes", len(rest))
	}
	ls := make(orb.LineString, 0, len(coords))
	for _, c := range coords {
		ls = append(ls, orb.Point{c[1], c[0]})
	}
	if err := ValidateLineString(ls); err != nil {
		return nil, err
	}
	return ls, nil
}

// EncodePolyline is the inverse of LineStringFromPolyline.
func EncodePolyline(ls orb.LineString) string {
	coords := make([][]float64, 0, len(ls))
	for _, p := range ls {
		coords = append(coords, []float64{p[1], p[0]})
	}
	return string(polyline.EncodeCoords(coords))
}

// MarshalRing encodes r as a GeoJSON Polygon geometry.
func MarshalRing(r orb.Ring) ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(orb.Polygon{r}))
}

// MarshalLineString encodes ls as a GeoJSON LineString geometry.
func MarshalLineString(ls orb.LineString) ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(ls))
}

func decodeGeoJSON(raw []byte) (orb.Geometry, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, invalidf("decode geojson: %v", err)
	}

	switch envelope.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, invalidf("decode feature: %v", err)
		}
		if f.Geometry == nil {
			return nil, invalidf("feature has no geometry")
		}
		return f.Geometry, nil
	case "":
		return nil, invalidf("geojson object has no type")
	default:
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, invalidf("decode geometry: %v", err)
		}
		if g.Geometry() == nil {
			return nil, invalidf("geometry %q is empty", envelope.Type)
		}
		return g.Geometry(), nil
	}
}

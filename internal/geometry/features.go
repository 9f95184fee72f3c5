package geometry

import (
	"github.com/paulmach/orb"
	"github.com/peterstace/simplefeatures/geom"
)

// polygonFromRing validates r and converts it to a single-ring polygon.
func polygonFromRing(r orb.Ring) (geom.Polygon, error) {
	clean, err := normalizeRing(r)
	if err != nil {
		return geom.Polygon{}, err
	}
	poly := geom.NewPolygon([]geom.LineString{geom.NewLineString(toSequence(clean))})
	if err := poly.Validate(); err != nil {
		return geom.Polygon{}, invalidf("ring is not simple: %v", err)
	}
	return poly, nil
}

// pathGeometry converts path to a LineString, or to a Point when every
// vertex is the same.
func pathGeometry(path orb.LineString) (geom.Geometry, error) {
	if err := ValidateLineString(path); err != nil {
		return geom.Geometry{}, err
	}
	clean := dedupe(path)
	if len(clean) == 1 {
		return geom.NewPointXY(clean[0][0], clean[0][1]).AsGeometry(), nil
	}
	return geom.NewLineString(toSequence(clean)).AsGeometry(), nil
}

// dedupe drops consecutive repeated points.
func dedupe(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

func toSequence(pts []orb.Point) geom.Sequence {
	coords := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		coords = append(coords, p[0], p[1])
	}
	return geom.NewSequence(coords, geom.DimXY)
}

func fromSequence(seq geom.Sequence) []orb.Point {
	n := seq.Length()
	pts := make([]orb.Point, n)
	for i := range n {
		xy := seq.GetXY(i)
		pts[i] = orb.Point{xy.X, xy.Y}
	}
	return pts
}

// collect flattens g into its linear and point parts. Polygonal parts cannot
// come out of a line overlay and are ignored.
func collect(g geom.Geometry, lines orb.MultiLineString, points orb.MultiPoint) (orb.MultiLineString, orb.MultiPoint) {
	switch g.Type() {
	case geom.TypePoint:
		if xy, ok := g.MustAsPoint().XY(); ok {
			points = appendUnique(points, orb.Point{xy.X, xy.Y})
		}
	case geom.TypeMultiPoint:
		mp := g.MustAsMultiPoint()
		for i := range mp.NumPoints() {
			lines, points = collect(mp.PointN(i).AsGeometry(), lines, points)
		}
	case geom.TypeLineString:
		if ls := fromSequence(g.MustAsLineString().Coordinates()); len(ls) >= 2 {
			lines = append(lines, orb.LineString(ls))
		}
	case geom.TypeMultiLineString:
		mls := g.MustAsMultiLineString()
		for i := range mls.NumLineStrings() {
			lines, points = collect(mls.LineStringN(i).AsGeometry(), lines, points)
		}
	case geom.TypeGeometryCollection:
		gc := g.MustAsGeometryCollection()
		for i := range gc.NumGeometries() {
			lines, points = collect(gc.GeometryN(i), lines, points)
		}
	}
	return lines, points
}

func appendUnique(mp orb.MultiPoint, p orb.Point) orb.MultiPoint {
	for _, q := range mp {
		if q == p {
			return mp
		}
	}
	return append(mp, p)
}

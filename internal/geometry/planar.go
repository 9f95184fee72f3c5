package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/peterstace/simplefeatures/geom"
)

// DefaultQuadSegments is the number of segments used to approximate a quarter
// circle when buffering.
const DefaultQuadSegments = 16

// Planar implements Kernel on a flat plane. Predicates and overlays are
// delegated to simplefeatures; orb types stay at the boundary.
type Planar struct {
	quadSegments int
}

var _ Kernel = (*Planar)(nil)

// NewPlanar returns a planar kernel with the default circle resolution.
func NewPlanar() *Planar {
	return &Planar{quadSegments: DefaultQuadSegments}
}

// Contains reports whether every point of path is inside or on container.
func (k *Planar) Contains(container orb.Ring, path orb.LineString) (bool, error) {
	poly, err := polygonFromRing(container)
	if err != nil {
		return false, err
	}
	g, err := pathGeometry(path)
	if err != nil {
		return false, err
	}

	ok, err := geom.Covers(poly.AsGeometry(), g)
	if err != nil {
		return false, invalidf("covers: %v", err)
	}
	return ok, nil
}

// Intersects reports whether path touches ring anywhere, interior or boundary.
func (k *Planar) Intersects(path orb.LineString, ring orb.Ring) (bool, error) {
	poly, err := polygonFromRing(ring)
	if err != nil {
		return false, err
	}
	g, err := pathGeometry(path)
	if err != nil {
		return false, err
	}
	return geom.Intersects(poly.AsGeometry(), g), nil
}

// Intersection clips path against ring. Covered stretches are returned as a
// MultiLineString; if the path only touches the ring, the touching points are
// returned instead; an empty Collection means no contact.
func (k *Planar) Intersection(path orb.LineString, ring orb.Ring) (orb.Geometry, error) {
	poly, err := polygonFromRing(ring)
	if err != nil {
		return nil, err
	}
	g, err := pathGeometry(path)
	if err != nil {
		return nil, err
	}

	clipped, err := geom.Intersection(poly.AsGeometry(), g)
	if err != nil {
		return nil, invalidf("intersection: %v", err)
	}

	lines, points := collect(clipped, nil, nil)
	switch {
	case len(lines) > 0:
		return lines, nil
	case len(points) == 1:
		return points[0], nil
	case len(points) > 1:
		return points, nil
	default:
		return orb.Collection{}, nil
	}
}

// Length returns the planar length of g.
func (k *Planar) Length(g orb.Geometry) float64 {
	if g == nil {
		return 0
	}
	return planar.Length(g)
}

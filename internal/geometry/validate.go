package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ValidateRing checks that r is a closed, simple ring enclosing a non-zero area.
func ValidateRing(r orb.Ring) error {
	_, err := polygonFromRing(r)
	return err
}

// ValidateLineString checks that ls has at least two finite points.
// Zero-length paths are accepted.
func ValidateLineString(ls orb.LineString) error {
	if len(ls) < 2 {
		return invalidf("linestring has %d points, need at least 2", len(ls))
	}
	for i, p := range ls {
		if !finite(p) {
			return invalidf("linestring point %d is not finite", i)
		}
	}
	return nil
}

// normalizeRing runs the cheap structural checks and returns a copy without
// consecutive duplicate vertices. Simplicity is checked on the polygon.
func normalizeRing(r orb.Ring) (orb.Ring, error) {
	if len(r) < 4 {
		return nil, invalidf("ring has %d points, need at least 4", len(r))
	}
	for i, p := range r {
		if !finite(p) {
			return nil, invalidf("ring point %d is not finite", i)
		}
	}
	if r[0] != r[len(r)-1] {
		return nil, invalidf("ring is not closed")
	}

	clean := orb.Ring(dedupe(r))
	if len(clean) < 4 {
		return nil, invalidf("ring has fewer than 3 distinct vertices")
	}
	if planar.Area(clean) == 0 {
		return nil, invalidf("ring encloses no area")
	}
	return clean, nil
}

func finite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}

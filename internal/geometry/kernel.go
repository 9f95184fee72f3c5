// Package geometry provides the planar primitives used to compare routes with
// restricted zones.
//
// Coordinates are (longitude, latitude) pairs in degrees treated as a flat
// plane. No geodesic correction is applied anywhere in this package; callers
// that need meters convert them to degrees before calling in.
package geometry

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// ErrInvalidGeometry is returned for malformed shapes: too few points,
// non-finite coordinates, open or self-intersecting rings, zero-area rings.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Kernel is the set of primitives the conflict classifier relies on.
// Implementations must be pure: identical inputs always give identical outputs.
type Kernel interface {
	// Buffer dilates ring outward by distance (same units as the ring).
	// The result contains ring for distance >= 0 and equals it for 0.
	Buffer(ring orb.Ring, distance float64) (orb.Ring, error)

	// Contains reports whether every point of path lies inside or on the
	// boundary of container.
	Contains(container orb.Ring, path orb.LineString) (bool, error)

	// Intersects reports whether path and ring share at least one point.
	Intersects(path orb.LineString, ring orb.Ring) (bool, error)

	// Intersection returns the part of path covered by ring: an empty
	// collection, a point, a multipoint or a multilinestring.
	Intersection(path orb.LineString, ring orb.Ring) (orb.Geometry, error)

	// Length is the planar length of g, 0 for empty and point geometries.
	Length(g orb.Geometry) float64
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidGeometry, fmt.Sprintf(format, args...))
}

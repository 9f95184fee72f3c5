package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/peterstace/simplefeatures/geom"
)

// Buffer dilates ring by distance with round joins. A zero distance returns
// a copy of the ring.
//
// The result is the outer ring of the dilation, wound counter-clockwise.
// Concave notches narrower than twice the distance close up; wider ones
// keep their shape offset by distance.
func (k *Planar) Buffer(ring orb.Ring, distance float64) (orb.Ring, error) {
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		return nil, invalidf("buffer distance is not finite")
	}
	if distance < 0 {
		return nil, invalidf("buffer distance %v is negative", distance)
	}
	poly, err := polygonFromRing(ring)
	if err != nil {
		return nil, err
	}
	if distance == 0 {
		return ring.Clone(), nil
	}

	g, err := geom.Buffer(poly.AsGeometry(), distance,
		geom.BufferQuadSegments(k.quadSegments),
		geom.BufferJoinStyleRound(),
	)
	if err != nil {
		return nil, invalidf("buffer: %v", err)
	}
	out, ok := g.AsPolygon()
	if !ok || out.IsEmpty() {
		return nil, invalidf("buffer produced %s", g.Type())
	}

	r := orb.Ring(fromSequence(out.ExteriorRing().Coordinates()))
	if r.Orientation() != orb.CCW {
		r.Reverse()
	}
	return r, nil
}

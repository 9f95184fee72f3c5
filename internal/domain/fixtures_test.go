package domain

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
)

var (
	madridBoundary = orb.Ring{{-3.72, 40.43}, {-3.68, 40.43}, {-3.68, 40.46}, {-3.72, 40.46}, {-3.72, 40.43}}

	routeInside   = orb.LineString{{-3.70, 40.45}, {-3.69, 40.44}}
	routeCrossing = orb.LineString{{-3.80, 40.50}, {-3.70, 40.45}, {-3.60, 40.40}}
	routeFarAway  = orb.LineString{{-4.50, 41.00}, {-4.40, 41.10}}
	routeNearMiss = orb.LineString{{-3.7210, 40.445}, {-3.80, 40.445}}
	routeFurtherW = orb.LineString{{-3.7230, 40.445}, {-3.80, 40.445}}
	routeSinglePt = orb.LineString{{-3.70, 40.45}, {-3.70, 40.45}}
	routeRemotePt = orb.LineString{{-4.00, 41.00}, {-4.00, 41.00}}

	seasonStart     = time.Date(2025, 10, 1, 6, 0, 0, 0, time.UTC)
	seasonEnd       = time.Date(2025, 10, 31, 18, 0, 0, 0, time.UTC)
	testAssociation = "Club de Caza Norte"
)

// madridZone returns the reference zone buffered by meters.
func madridZone(t *testing.T, meters int) Zone {
	t.Helper()
	z := Zone{
		ID:              "zone-1",
		Name:            "Monte Norte",
		AssociationName: testAssociation,
		CreatedBy:       "assoc-1",
		Boundary:        madridBoundary,
		BufferMeters:    meters,
		Start:           seasonStart,
		End:             seasonEnd,
	}
	require.NoError(t, NewBufferBuilder(geometry.NewPlanar()).Apply(&z))
	return z
}

func routeWith(id string, path orb.LineString) Route {
	return Route{ID: id, Name: "Route " + id, OwnerID: "user-u", Path: path}
}

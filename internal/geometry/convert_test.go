package geometry_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
)

func TestRingFromGeoJSON(t *testing.T) {
	polygon := `{"type":"Polygon","coordinates":[[[0,0],[4,0],[4,4],[0,4],[0,0]]]}`

	t.Run("bare geometry", func(t *testing.T) {
		ring, err := geometry.RingFromGeoJSON([]byte(polygon))
		require.NoError(t, err)
		assert.Equal(t, square, ring)
	})

	t.Run("feature", func(t *testing.T) {
		raw := `{"type":"Feature","properties":{"name":"x"},"geometry":` + polygon + `}`
		ring, err := geometry.RingFromGeoJSON([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, square, ring)
	})

	invalid := map[string]string{
		"holes":       `{"type":"Polygon","coordinates":[[[0,0],[4,0],[4,4],[0,4],[0,0]],[[1,1],[2,1],[2,2],[1,1]]]}`,
		"wrong type":  `{"type":"LineString","coordinates":[[0,0],[1,1]]}`,
		"self-cross":  `{"type":"Polygon","coordinates":[[[0,0],[4,4],[4,0],[0,4],[0,0]]]}`,
		"no type":     `{"coordinates":[]}`,
		"not json":    `{`,
		"no geometry": `{"type":"Feature","properties":{}}`,
	}
	for name, raw := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := geometry.RingFromGeoJSON([]byte(raw))
			require.ErrorIs(t, err, geometry.ErrInvalidGeometry)
		})
	}
}

func TestLineStringFromGeoJSON(t *testing.T) {
	ls, err := geometry.LineStringFromGeoJSON([]byte(`{"type":"LineString","coordinates":[[-3.7,40.45],[-3.69,40.44]]}`))
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{-3.7, 40.45}, {-3.69, 40.44}}, ls)

	_, err = geometry.LineStringFromGeoJSON([]byte(`{"type":"LineString","coordinates":[[-3.7,40.45]]}`))
	require.ErrorIs(t, err, geometry.ErrInvalidGeometry)

	_, err = geometry.LineStringFromGeoJSON([]byte(`{"type":"Point","coordinates":[-3.7,40.45]}`))
	require.ErrorIs(t, err, geometry.ErrInvalidGeometry)
}

func TestMarshalRoundTrip(t *testing.T) {
	raw, err := geometry.MarshalRing(square)
	require.NoError(t, err)
	ring, err := geometry.RingFromGeoJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, square, ring)

	path := orb.LineString{{1, 2}, {3, 4}, {5, 6}}
	raw, err = geometry.MarshalLineString(path)
	require.NoError(t, err)
	got, err := geometry.LineStringFromGeoJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestLineStringFromPolyline(t *testing.T) {
	// Reference polyline from the Google encoding documentation.
	ls, err := geometry.LineStringFromPolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	require.NoError(t, err)
	require.Len(t, ls, 3)

	assert.InDelta(t, -120.2, ls[0][0], 1e-5)
	assert.InDelta(t, 38.5, ls[0][1], 1e-5)
	assert.InDelta(t, -126.453, ls[2][0], 1e-5)
	assert.InDelta(t, 43.252, ls[2][1], 1e-5)

	again, err := geometry.LineStringFromPolyline(geometry.EncodePolyline(ls))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{ls[1][0], ls[1][1]}, []float64{again[1][0], again[1][1]}, 1e-5)
}

func TestLineStringFromPolyline_Invalid(t *testing.T) {
	_, err := geometry.LineStringFromPolyline("_p~iF~ps|U")
	require.ErrorIs(t, err, geometry.ErrInvalidGeometry, "single point")

	_, err = geometry.LineStringFromPolyline("_p~iF~ps|U_ulL")
	require.ErrorIs(t, err, geometry.ErrInvalidGeometry, "truncated pair")
}

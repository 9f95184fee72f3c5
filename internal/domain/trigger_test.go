package domain

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
)

const madridPolygonJSON = `{"type":"Polygon","coordinates":[[[-3.72,40.43],[-3.68,40.43],[-3.68,40.46],[-3.72,40.46],[-3.72,40.43]]]}`

func TestParseTriggerEvent_ZoneCreated(t *testing.T) {
	raw := `{"type":"zone.created","zone":{"id":"zone-1","name":"Monte Norte","association_name":"Club de Caza Norte",` +
		`"created_by":"assoc-1","geometry":` + madridPolygonJSON + `,` +
		`"start_time":"2025-10-01T08:00:00+02:00","end_time":"2025-10-31T20:00:00+02:00"}}`

	ev, err := ParseTriggerEvent([]byte(raw), 200)
	require.NoError(t, err)
	require.NotNil(t, ev.Zone)

	assert.Equal(t, TriggerZoneCreated, ev.Type)
	assert.Equal(t, "zone-1", ev.ZoneID)
	assert.Equal(t, "Monte Norte", ev.Zone.Name)
	assert.Equal(t, "Club de Caza Norte", ev.Zone.AssociationName)
	assert.Equal(t, madridBoundary, ev.Zone.Boundary)
	assert.Equal(t, 200, ev.Zone.BufferMeters, "default buffer applied")
	assert.Equal(t, time.Date(2025, 10, 1, 6, 0, 0, 0, time.UTC), ev.Zone.Start)
	assert.Equal(t, time.Date(2025, 10, 31, 18, 0, 0, 0, time.UTC), ev.Zone.End)
	assert.Nil(t, ev.Zone.Buffered, "buffering happens when the event is applied")
}

func TestParseTriggerEvent_ZoneCreatedExplicitZeroBuffer(t *testing.T) {
	raw := `{"type":"zone.created","zone":{"id":"z","name":"n","geometry":` + madridPolygonJSON + `,` +
		`"buffer_meters":0,"start_time":"2025-10-01T00:00:00Z","end_time":"2025-10-02T00:00:00Z"}}`

	ev, err := ParseTriggerEvent([]byte(raw), 200)
	require.NoError(t, err)
	assert.Equal(t, 0, ev.Zone.BufferMeters)
}

func TestParseTriggerEvent_Invalid(t *testing.T) {
	zone := func(fields string) string {
		return `{"type":"zone.created","zone":{` + fields + `}}`
	}
	valid := `"id":"z","name":"n","geometry":` + madridPolygonJSON + `,"start_time":"2025-10-01T00:00:00Z","end_time":"2025-10-02T00:00:00Z"`

	tests := map[string]string{
		"not json":          `{"type":`,
		"missing type":      `{"zone":{}}`,
		"missing zone":      `{"type":"zone.created"}`,
		"missing name":      zone(`"id":"z","geometry":` + madridPolygonJSON + `,"start_time":"2025-10-01T00:00:00Z","end_time":"2025-10-02T00:00:00Z"`),
		"bad time":          zone(`"id":"z","name":"n","geometry":` + madridPolygonJSON + `,"start_time":"yesterday","end_time":"2025-10-02T00:00:00Z"`),
		"ends before start": zone(`"id":"z","name":"n","geometry":` + madridPolygonJSON + `,"start_time":"2025-10-03T00:00:00Z","end_time":"2025-10-02T00:00:00Z"`),
		"negative buffer":   zone(valid + `,"buffer_meters":-1`),
		"bowtie":            zone(`"id":"z","name":"n","geometry":{"type":"Polygon","coordinates":[[[0,0],[4,4],[4,0],[0,4],[0,0]]]},"start_time":"2025-10-01T00:00:00Z","end_time":"2025-10-02T00:00:00Z"`),
		"route one point":   `{"type":"route.uploaded","route":{"id":"r","name":"n","geometry":{"type":"LineString","coordinates":[[0,0]]}}}`,
		"route no name":     `{"type":"route.uploaded","route":{"id":"r","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}}}`,
		"delete without id": `{"type":"zone.deleted"}`,
		"favorite no user":  `{"type":"favorite.added","route_id":"r"}`,
		"route no id":       `{"type":"route.deleted"}`,
		"update without id": `{"type":"zone.updated","zone":{"name":"x"}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTriggerEvent([]byte(raw), 200)
			require.ErrorIs(t, err, ErrInvalidTrigger)
		})
	}

	t.Run("geometry error is kept in the chain", func(t *testing.T) {
		_, err := ParseTriggerEvent([]byte(tests["bowtie"]), 200)
		require.ErrorIs(t, err, geometry.ErrInvalidGeometry)
	})
}

func TestParseTriggerEvent_Unknown(t *testing.T) {
	_, err := ParseTriggerEvent([]byte(`{"type":"zone.archived","zone_id":"z"}`), 200)
	require.ErrorIs(t, err, ErrUnknownTrigger)
}

func TestParseTriggerEvent_RouteUploaded(t *testing.T) {
	raw := `{"type":"route.uploaded","route":{"id":"r1","name":"Sierra Loop","user_id":"user-u","is_public":true,` +
		`"file_name":"loop.gpx","created_at":"2025-09-30T10:00:00Z",` +
		`"geometry":{"type":"LineString","coordinates":[[-3.70,40.45],[-3.69,40.44]]}}}`

	ev, err := ParseTriggerEvent([]byte(raw), 200)
	require.NoError(t, err)
	require.NotNil(t, ev.Route)

	assert.Equal(t, "r1", ev.RouteID)
	assert.Equal(t, Route{
		ID:        "r1",
		Name:      "Sierra Loop",
		OwnerID:   "user-u",
		Public:    true,
		FileName:  "loop.gpx",
		Path:      orb.LineString{{-3.70, 40.45}, {-3.69, 40.44}},
		CreatedAt: time.Date(2025, 9, 30, 10, 0, 0, 0, time.UTC),
	}, *ev.Route)
	assert.False(t, ev.Route.Anonymous())
}

func TestParseTriggerEvent_AnonymousRoute(t *testing.T) {
	raw := `{"type":"route.uploaded","route":{"id":"r9","name":"Guest",` +
		`"geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}}}`

	ev, err := ParseTriggerEvent([]byte(raw), 200)
	require.NoError(t, err)
	assert.Equal(t, AnonymousOwner, ev.Route.OwnerID)
	assert.True(t, ev.Route.Anonymous())
}

func TestParseTriggerEvent_SimpleTypes(t *testing.T) {
	tests := []struct {
		raw  string
		want TriggerEvent
	}{
		{`{"type":"zone.deleted","zone_id":"z1"}`, TriggerEvent{Type: TriggerZoneDeleted, ZoneID: "z1"}},
		{`{"type":"route.deleted","route_id":"r1"}`, TriggerEvent{Type: TriggerRouteDeleted, RouteID: "r1"}},
		{`{"type":"favorite.added","user_id":"v","route_id":"r1"}`, TriggerEvent{Type: TriggerFavoriteAdded, UserID: "v", RouteID: "r1"}},
		{`{"type":"favorite.removed","user_id":"v","route_id":"r1"}`, TriggerEvent{Type: TriggerFavoriteRemoved, UserID: "v", RouteID: "r1"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.want.Type), func(t *testing.T) {
			ev, err := ParseTriggerEvent([]byte(tt.raw), 200)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestParseTriggerEvent_ZoneUpdated(t *testing.T) {
	raw := `{"type":"zone.updated","zone":{"id":"zone-1","name":"Monte Sur","buffer_meters":500,"end_time":"2025-11-30T18:00:00Z"}}`

	ev, err := ParseTriggerEvent([]byte(raw), 200)
	require.NoError(t, err)
	require.NotNil(t, ev.ZonePatch)
	assert.Equal(t, "zone-1", ev.ZoneID)
	assert.Nil(t, ev.ZonePatch.Boundary)
	assert.Nil(t, ev.ZonePatch.Start)

	updated, rebuffer, err := ev.ZonePatch.ApplyTo(madridZone(t, 200))
	require.NoError(t, err)
	assert.True(t, rebuffer)
	assert.Equal(t, "Monte Sur", updated.Name)
	assert.Equal(t, 500, updated.BufferMeters)
	assert.Equal(t, time.Date(2025, 11, 30, 18, 0, 0, 0, time.UTC), updated.End)
	assert.Equal(t, seasonStart, updated.Start)
}

func TestZonePatch_ApplyTo(t *testing.T) {
	base := madridZone(t, 200)

	name := "Renamed"
	_, rebuffer, err := ZonePatch{Name: &name}.ApplyTo(base)
	require.NoError(t, err)
	assert.False(t, rebuffer, "renaming keeps the buffer")

	_, rebuffer, err = ZonePatch{Boundary: madridBoundary}.ApplyTo(base)
	require.NoError(t, err)
	assert.True(t, rebuffer)

	early := seasonStart.Add(-time.Hour)
	_, _, err = ZonePatch{End: &early}.ApplyTo(base)
	require.ErrorIs(t, err, ErrInvalidTrigger)
}

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"

	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
)

var (
	// ErrUnknownTrigger is returned for events with an unrecognized type.
	ErrUnknownTrigger = errors.New("unknown trigger type")
	// ErrInvalidTrigger is returned for events that fail validation.
	ErrInvalidTrigger = errors.New("invalid trigger event")
)

// TriggerType names a change in the upstream application.
type TriggerType string

const (
	TriggerZoneCreated     TriggerType = "zone.created"
	TriggerZoneUpdated     TriggerType = "zone.updated"
	TriggerZoneDeleted     TriggerType = "zone.deleted"
	TriggerRouteUploaded   TriggerType = "route.uploaded"
	TriggerRouteDeleted    TriggerType = "route.deleted"
	TriggerFavoriteAdded   TriggerType = "favorite.added"
	TriggerFavoriteRemoved TriggerType = "favorite.removed"
)

// TriggerEvent is a validated trigger. Which fields are set depends on Type.
type TriggerEvent struct {
	Type TriggerType

	Zone      *Zone      // zone.created
	ZonePatch *ZonePatch // zone.updated
	Route     *Route     // route.uploaded

	ZoneID  string // zone.updated, zone.deleted
	RouteID string // route.deleted, favorite.*
	UserID  string // favorite.*
}

// ZonePatch holds the fields of a zone update. Nil fields are unchanged.
type ZonePatch struct {
	Name         *string
	Description  *string
	Boundary     orb.Ring
	BufferMeters *int
	Start        *time.Time
	End          *time.Time
}

// ApplyTo returns z with the patch applied. rebuffer reports whether the
// buffered polygon must be rebuilt.
func (p ZonePatch) ApplyTo(z Zone) (updated Zone, rebuffer bool, err error) {
	if p.Name != nil {
		z.Name = *p.Name
	}
	if p.Description != nil {
		z.Description = *p.Description
	}
	if p.Boundary != nil {
		z.Boundary = p.Boundary
		rebuffer = true
	}
	if p.BufferMeters != nil {
		z.BufferMeters = *p.BufferMeters
		rebuffer = true
	}
	if p.Start != nil {
		z.Start = *p.Start
	}
	if p.End != nil {
		z.End = *p.End
	}
	if z.End.Before(z.Start) {
		return Zone{}, false, fmt.Errorf("%w: zone %s ends before it starts", ErrInvalidTrigger, z.ID)
	}
	return z, rebuffer, nil
}

var validate = validator.New()

type triggerEnvelope struct {
	Type    string          `json:"type" validate:"required"`
	Zone    json.RawMessage `json:"zone"`
	Route   json.RawMessage `json:"route"`
	ZoneID  string          `json:"zone_id"`
	RouteID string          `json:"route_id"`
	UserID  string          `json:"user_id"`
}

type zoneCreatePayload struct {
	ID              string          `json:"id" validate:"required"`
	Name            string          `json:"name" validate:"required,max=200"`
	Description     string          `json:"description" validate:"max=2000"`
	AssociationName string          `json:"association_name"`
	CreatedBy       string          `json:"created_by"`
	Geometry        json.RawMessage `json:"geometry" validate:"required"`
	BufferMeters    *int            `json:"buffer_meters" validate:"omitempty,gte=0,lte=100000"`
	StartTime       string          `json:"start_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime         string          `json:"end_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	CreatedAt       string          `json:"created_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type zoneUpdatePayload struct {
	ID           string          `json:"id" validate:"required"`
	Name         *string         `json:"name" validate:"omitempty,min=1,max=200"`
	Description  *string         `json:"description" validate:"omitempty,max=2000"`
	Geometry     json.RawMessage `json:"geometry"`
	BufferMeters *int            `json:"buffer_meters" validate:"omitempty,gte=0,lte=100000"`
	StartTime    *string         `json:"start_time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime      *string         `json:"end_time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type routePayload struct {
	ID        string          `json:"id" validate:"required"`
	Name      string          `json:"name" validate:"required,max=200"`
	UserID    string          `json:"user_id"`
	IsPublic  bool            `json:"is_public"`
	FileName  string          `json:"file_name"`
	Geometry  json.RawMessage `json:"geometry" validate:"required"`
	CreatedAt string          `json:"created_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// ParseTriggerEvent decodes and validates a trigger event. Zones that omit a
// buffer distance get defaultBufferMeters.
func ParseTriggerEvent(raw []byte, defaultBufferMeters int) (TriggerEvent, error) {
	var env triggerEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return TriggerEvent{}, fmt.Errorf("%w: %w", ErrInvalidTrigger, err)
	}
	if err := validate.Struct(env); err != nil {
		return TriggerEvent{}, invalidTrigger(err)
	}

	ev := TriggerEvent{Type: TriggerType(env.Type)}
	switch ev.Type {
	case TriggerZoneCreated:
		z, err := parseZoneCreate(env.Zone, defaultBufferMeters)
		if err != nil {
			return TriggerEvent{}, err
		}
		ev.Zone = &z
		ev.ZoneID = z.ID

	case TriggerZoneUpdated:
		id, patch, err := parseZoneUpdate(env.Zone)
		if err != nil {
			return TriggerEvent{}, err
		}
		ev.ZoneID = id
		ev.ZonePatch = &patch

	case TriggerZoneDeleted:
		if err := validate.Var(env.ZoneID, "required"); err != nil {
			return TriggerEvent{}, fmt.Errorf("%w: zone_id is required", ErrInvalidTrigger)
		}
		ev.ZoneID = env.ZoneID

	case TriggerRouteUploaded:
		r, err := parseRoute(env.Route)
		if err != nil {
			return TriggerEvent{}, err
		}
		ev.Route = &r
		ev.RouteID = r.ID

	case TriggerRouteDeleted:
		if err := validate.Var(env.RouteID, "required"); err != nil {
			return TriggerEvent{}, fmt.Errorf("%w: route_id is required", ErrInvalidTrigger)
		}
		ev.RouteID = env.RouteID

	case TriggerFavoriteAdded, TriggerFavoriteRemoved:
		if env.UserID == "" || env.RouteID == "" {
			return TriggerEvent{}, fmt.Errorf("%w: user_id and route_id are required", ErrInvalidTrigger)
		}
		ev.UserID = env.UserID
		ev.RouteID = env.RouteID

	default:
		return TriggerEvent{}, fmt.Errorf("%w: %q", ErrUnknownTrigger, env.Type)
	}
	return ev, nil
}

func parseZoneCreate(raw json.RawMessage, defaultBufferMeters int) (Zone, error) {
	if len(raw) == 0 {
		return Zone{}, fmt.Errorf("%w: zone payload is missing", ErrInvalidTrigger)
	}
	var p zoneCreatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Zone{}, fmt.Errorf("%w: zone: %w", ErrInvalidTrigger, err)
	}
	if err := validate.Struct(p); err != nil {
		return Zone{}, invalidTrigger(err)
	}

	boundary, err := geometry.RingFromGeoJSON(p.Geometry)
	if err != nil {
		return Zone{}, fmt.Errorf("%w: zone %s geometry: %w", ErrInvalidTrigger, p.ID, err)
	}
	start, _ := time.Parse(time.RFC3339, p.StartTime)
	end, _ := time.Parse(time.RFC3339, p.EndTime)
	if end.Before(start) {
		return Zone{}, fmt.Errorf("%w: zone %s ends before it starts", ErrInvalidTrigger, p.ID)
	}

	buffer := defaultBufferMeters
	if p.BufferMeters != nil {
		buffer = *p.BufferMeters
	}
	createdAt := Now()
	if p.CreatedAt != "" {
		createdAt, _ = time.Parse(time.RFC3339, p.CreatedAt)
	}

	return Zone{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		AssociationName: p.AssociationName,
		CreatedBy:       p.CreatedBy,
		Boundary:        boundary,
		BufferMeters:    buffer,
		Start:           start.UTC(),
		End:             end.UTC(),
		CreatedAt:       createdAt.UTC(),
	}, nil
}

func parseZoneUpdate(raw json.RawMessage) (string, ZonePatch, error) {
	if len(raw) == 0 {
		return "", ZonePatch{}, fmt.Errorf("%w: zone payload is missing", ErrInvalidTrigger)
	}
	var p zoneUpdatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", ZonePatch{}, fmt.Errorf("%w: zone: %w", ErrInvalidTrigger, err)
	}
	if err := validate.Struct(p); err != nil {
		return "", ZonePatch{}, invalidTrigger(err)
	}

	patch := ZonePatch{
		Name:         p.Name,
		Description:  p.Description,
		BufferMeters: p.BufferMeters,
	}
	if len(p.Geometry) > 0 && string(p.Geometry) != "null" {
		boundary, err := geometry.RingFromGeoJSON(p.Geometry)
		if err != nil {
			return "", ZonePatch{}, fmt.Errorf("%w: zone %s geometry: %w", ErrInvalidTrigger, p.ID, err)
		}
		patch.Boundary = boundary
	}
	if p.StartTime != nil {
		t, _ := time.Parse(time.RFC3339, *p.StartTime)
		t = t.UTC()
		patch.Start = &t
	}
	if p.EndTime != nil {
		t, _ := time.Parse(time.RFC3339, *p.EndTime)
		t = t.UTC()
		patch.End = &t
	}
	return p.ID, patch, nil
}

func parseRoute(raw json.RawMessage) (Route, error) {
	if len(raw) == 0 {
		return Route{}, fmt.Errorf("%w: route payload is missing", ErrInvalidTrigger)
	}
	var p routePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Route{}, fmt.Errorf("%w: route: %w", ErrInvalidTrigger, err)
	}
	if err := validate.Struct(p); err != nil {
		return Route{}, invalidTrigger(err)
	}

	path, err := geometry.LineStringFromGeoJSON(p.Geometry)
	if err != nil {
		return Route{}, fmt.Errorf("%w: route %s geometry: %w", ErrInvalidTrigger, p.ID, err)
	}
	owner := p.UserID
	if owner == "" {
		owner = AnonymousOwner
	}
	createdAt := Now()
	if p.CreatedAt != "" {
		createdAt, _ = time.Parse(time.RFC3339, p.CreatedAt)
	}

	return Route{
		ID:        p.ID,
		Name:      p.Name,
		OwnerID:   owner,
		Public:    p.IsPublic,
		FileName:  p.FileName,
		Path:      path,
		CreatedAt: createdAt.UTC(),
	}, nil
}

// invalidTrigger flattens validator errors into one ErrInvalidTrigger.
func invalidTrigger(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %w", ErrInvalidTrigger, err)
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			fields = append(fields, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		fields = append(fields, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidTrigger, strings.Join(fields, "; "))
}

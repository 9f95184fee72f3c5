package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"github.com/rangeguard/zone-conflict-notifier/internal/domain"
	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
	"github.com/rangeguard/zone-conflict-notifier/internal/observability"
)

// Task kinds, used as the dispatcher metric label.
const (
	KindZoneCreated   = "zone_created"
	KindRouteUploaded = "route_uploaded"
)

// ZoneRepository reads zones from the projection.
type ZoneRepository interface {
	AllZones(ctx context.Context) ([]domain.Zone, error)
	ActiveAt(ctx context.Context, at time.Time) ([]domain.Zone, error)
	ActiveOrUpcoming(ctx context.Context, at time.Time) ([]domain.Zone, error)
}

// RouteRepository reads routes from the projection.
type RouteRepository interface {
	AllRoutes(ctx context.Context) ([]domain.Route, error)
	Route(ctx context.Context, id string) (domain.Route, error)
}

// Store is the projection of zones, routes and favorites that trigger events
// keep up to date.
type Store interface {
	ZoneRepository
	RouteRepository
	FavoritesRepository

	Zone(ctx context.Context, id string) (domain.Zone, error)
	SaveZone(ctx context.Context, z domain.Zone) error
	DeleteZone(ctx context.Context, id string) error
	SaveRoute(ctx context.Context, r domain.Route) error
	DeleteRoute(ctx context.Context, id string) error
	AddFavorite(ctx context.Context, userID, routeID string) error
	RemoveFavorite(ctx context.Context, userID, routeID string) error
}

// NotificationSink stores or forwards one draft. Each call stands alone.
type NotificationSink interface {
	Append(ctx context.Context, d domain.NotificationDraft) error
}

// Service applies trigger events and answers synchronous checks.
type Service struct {
	store        Store
	sink         NotificationSink
	dispatcher   *Dispatcher
	orchestrator *Orchestrator
	buffers      *domain.BufferBuilder
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewService wires a Service. Fan-out runs on dispatcher.
func NewService(store Store, sink NotificationSink, dispatcher *Dispatcher, kernel geometry.Kernel, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:        store,
		sink:         sink,
		dispatcher:   dispatcher,
		orchestrator: NewOrchestrator(domain.NewClassifier(kernel), logger, metrics),
		buffers:      domain.NewBufferBuilder(kernel),
		logger:       logger,
		metrics:      metrics,
	}
}

// LoadBatch applies events in order. Events rejected for their content are
// logged and skipped; the first storage failure aborts the batch so it can be
// retried.
func (s *Service) LoadBatch(ctx context.Context, events []domain.TriggerEvent) error {
	for _, ev := range events {
		err := s.Apply(ctx, ev)
		if err == nil {
			continue
		}
		if !permanent(err) {
			return fmt.Errorf("apply %s: %w", ev.Type, err)
		}
		s.logger.Warn("trigger rejected, skipping",
			"error", err,
			"type", ev.Type,
			"zone_id", ev.ZoneID,
			"route_id", ev.RouteID,
		)
		s.metrics.EventsInvalid.Inc()
	}
	return nil
}

// Apply updates the projection for ev and, for zone creations and route
// uploads, submits fan-out. It returns once the projection is updated; the
// outcome of fan-out is never reported here.
func (s *Service) Apply(ctx context.Context, ev domain.TriggerEvent) error {
	switch ev.Type {
	case domain.TriggerZoneCreated:
		if ev.Zone == nil {
			return fmt.Errorf("%w: zone payload is missing", domain.ErrInvalidTrigger)
		}
		z := *ev.Zone
		s.buffer(&z)
		if err := s.store.SaveZone(ctx, z); err != nil {
			return err
		}
		s.dispatch(KindZoneCreated, func(ctx context.Context) error {
			return s.zoneCreated(ctx, z)
		})

	case domain.TriggerZoneUpdated:
		if ev.ZonePatch == nil {
			return fmt.Errorf("%w: zone payload is missing", domain.ErrInvalidTrigger)
		}
		existing, err := s.store.Zone(ctx, ev.ZoneID)
		if err != nil {
			return err
		}
		updated, rebuffer, err := ev.ZonePatch.ApplyTo(existing)
		if err != nil {
			return err
		}
		if rebuffer {
			s.buffer(&updated)
		}
		return s.store.SaveZone(ctx, updated)

	case domain.TriggerZoneDeleted:
		return s.store.DeleteZone(ctx, ev.ZoneID)

	case domain.TriggerRouteUploaded:
		if ev.Route == nil {
			return fmt.Errorf("%w: route payload is missing", domain.ErrInvalidTrigger)
		}
		r := *ev.Route
		if err := s.store.SaveRoute(ctx, r); err != nil {
			return err
		}
		s.dispatch(KindRouteUploaded, func(ctx context.Context) error {
			return s.routeUploaded(ctx, r)
		})

	case domain.TriggerRouteDeleted:
		return s.store.DeleteRoute(ctx, ev.RouteID)

	case domain.TriggerFavoriteAdded:
		return s.store.AddFavorite(ctx, ev.UserID, ev.RouteID)

	case domain.TriggerFavoriteRemoved:
		return s.store.RemoveFavorite(ctx, ev.UserID, ev.RouteID)

	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownTrigger, ev.Type)
	}
	return nil
}

func (s *Service) buffer(z *domain.Zone) {
	if err := s.buffers.Apply(z); err != nil {
		s.logger.Warn("buffer failed, using raw boundary", "error", err, "zone_id", z.ID)
		s.metrics.GeometryErrors.Inc()
	}
}

func (s *Service) dispatch(kind string, task Task) {
	if _, err := s.dispatcher.Submit(kind, task); err != nil {
		s.logger.Error("fan-out not scheduled", "kind", kind, "error", err)
	}
}

func (s *Service) zoneCreated(ctx context.Context, z domain.Zone) error {
	routes, err := s.store.AllRoutes(ctx)
	if err != nil {
		return fmt.Errorf("list routes for zone %s: %w", z.ID, err)
	}
	drafts, err := s.orchestrator.OnZoneCreated(ctx, z, routes, s.store)
	s.deliver(ctx, drafts)
	return err
}

func (s *Service) routeUploaded(ctx context.Context, r domain.Route) error {
	zones, err := s.store.ActiveOrUpcoming(ctx, domain.Now())
	if err != nil {
		return fmt.Errorf("list zones for route %s: %w", r.ID, err)
	}
	drafts, err := s.orchestrator.OnRouteUploaded(ctx, r, zones, r.OwnerID)
	s.deliver(ctx, drafts)
	return err
}

// deliver hands each draft to the sink. A failed draft does not stop the rest.
func (s *Service) deliver(ctx context.Context, drafts []domain.NotificationDraft) {
	for _, d := range drafts {
		if err := s.sink.Append(ctx, d); err != nil {
			s.logger.Warn("notification not delivered",
				"error", err,
				"user_id", d.RecipientID,
				"route_id", d.Payload.RouteID,
				"zone_id", d.Payload.ZoneID,
			)
			s.metrics.SinkFailures.Inc()
			continue
		}
		s.metrics.Drafts.WithLabelValues(string(d.Category)).Inc()
	}
}

// ZoneConflict describes one active zone a checked route runs into.
type ZoneConflict struct {
	ZoneID            string                `json:"zone_id"`
	ZoneName          string                `json:"zone_name"`
	Association       string                `json:"association"`
	StartTime         time.Time             `json:"start_time"`
	EndTime           time.Time             `json:"end_time"`
	OverlapPercentage float64               `json:"overlap_percentage"`
	ConflictType      domain.Classification `json:"conflict_type"`
	BufferMeters      int                   `json:"buffer_meters"`
	Geometry          json.RawMessage       `json:"geometry,omitempty"`
	BufferedGeometry  json.RawMessage       `json:"buffered_geometry,omitempty"`
}

// CheckResult is the answer to a synchronous check.
type CheckResult struct {
	Intersects  bool           `json:"intersects"`
	Zones       []ZoneConflict `json:"zones"`
	SafeMessage string         `json:"safe_message"`
}

// Check classifies path against the zones active at at (now when zero).
// Nothing is stored or sent.
func (s *Service) Check(ctx context.Context, path orb.LineString, at time.Time) (CheckResult, error) {
	if at.IsZero() {
		at = domain.Now()
	}
	zones, err := s.store.ActiveAt(ctx, at)
	if err != nil {
		return CheckResult{}, fmt.Errorf("list active zones: %w", err)
	}
	if len(zones) == 0 {
		return CheckResult{Zones: []ZoneConflict{}, SafeMessage: domain.SummaryNoActiveZones}, nil
	}
	if err := geometry.ValidateLineString(path); err != nil {
		return CheckResult{}, err
	}

	route := domain.Route{Path: path}
	conflicts := []ZoneConflict{}
	var verdicts []domain.Verdict
	for _, z := range zones {
		v, ok := s.orchestrator.classify(route, z)
		if !ok || !v.Conflicting() {
			continue
		}
		verdicts = append(verdicts, v)
		conflicts = append(conflicts, s.conflictFor(z, v))
	}

	return CheckResult{
		Intersects:  len(conflicts) > 0,
		Zones:       conflicts,
		SafeMessage: domain.Summarize(len(zones), verdicts),
	}, nil
}

// CheckRoute runs Check for a stored route.
func (s *Service) CheckRoute(ctx context.Context, routeID string, at time.Time) (CheckResult, error) {
	r, err := s.store.Route(ctx, routeID)
	if err != nil {
		return CheckResult{}, err
	}
	return s.Check(ctx, r.Path, at)
}

func (s *Service) conflictFor(z domain.Zone, v domain.Verdict) ZoneConflict {
	c := ZoneConflict{
		ZoneID:            z.ID,
		ZoneName:          z.Name,
		Association:       z.AssociationName,
		StartTime:         z.Start,
		EndTime:           z.End,
		OverlapPercentage: v.OverlapPercentage,
		ConflictType:      v.Classification,
		BufferMeters:      z.BufferMeters,
	}
	if raw, err := geometry.MarshalRing(z.Boundary); err == nil {
		c.Geometry = raw
	}
	if len(z.Buffered) > 0 {
		if raw, err := geometry.MarshalRing(z.Buffered); err == nil {
			c.BufferedGeometry = raw
		}
	}
	return c
}

// permanent reports whether retrying err can never succeed.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidTrigger) ||
		errors.Is(err, domain.ErrUnknownTrigger) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, geometry.ErrInvalidGeometry)
}

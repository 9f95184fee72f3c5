package fanout

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rangeguard/zone-conflict-notifier/internal/domain"
	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
	"github.com/rangeguard/zone-conflict-notifier/internal/observability"
)

// FavoritesRepository lists the users who favorited a route.
type FavoritesRepository interface {
	FavoritersOf(ctx context.Context, routeID string) ([]string, error)
}

// Orchestrator decides which drafts a zone or route creation produces. It
// never stores or sends them.
type Orchestrator struct {
	classifier *domain.Classifier
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewOrchestrator creates an Orchestrator that classifies with classifier.
func NewOrchestrator(classifier *domain.Classifier, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{classifier: classifier, logger: logger, metrics: metrics}
}

// OnZoneCreated classifies every route against a new zone. Contained and
// crossing routes produce one draft for the owner and one per favoriter.
// Routes that only reach the buffer are not reported.
//
// If ctx is cancelled the drafts built so far are returned with ctx.Err().
func (o *Orchestrator) OnZoneCreated(ctx context.Context, zone domain.Zone, routes []domain.Route, favorites FavoritesRepository) ([]domain.NotificationDraft, error) {
	var drafts []domain.NotificationDraft
	for _, route := range routes {
		if err := ctx.Err(); err != nil {
			return drafts, err
		}

		v, ok := o.classify(route, zone)
		if !ok || !v.Classification.Notifies() {
			continue
		}

		for _, uid := range o.recipients(ctx, route, favorites) {
			drafts = append(drafts, domain.ZoneConflictDraft(uid, uid == route.OwnerID, route, zone, v))
		}
	}
	return drafts, nil
}

// OnRouteUploaded classifies a new route against the given zones, normally
// the active and upcoming ones. Only ownerID is notified; anonymous uploads
// are classified but produce no drafts.
func (o *Orchestrator) OnRouteUploaded(ctx context.Context, route domain.Route, zones []domain.Zone, ownerID string) ([]domain.NotificationDraft, error) {
	anonymous := ownerID == "" || ownerID == domain.AnonymousOwner

	var drafts []domain.NotificationDraft
	for _, zone := range zones {
		if err := ctx.Err(); err != nil {
			return drafts, err
		}

		v, ok := o.classify(route, zone)
		if !ok || !v.Classification.Notifies() || anonymous {
			continue
		}
		drafts = append(drafts, domain.RouteWarningDraft(ownerID, route, zone, v))
	}
	return drafts, nil
}

// classify returns false when the pair had to be skipped.
func (o *Orchestrator) classify(route domain.Route, zone domain.Zone) (domain.Verdict, bool) {
	v, err := o.classifier.Classify(route, zone)
	if err != nil {
		o.logger.Warn("skipping route/zone pair",
			"error", err,
			"route_id", route.ID,
			"zone_id", zone.ID,
		)
		if errors.Is(err, geometry.ErrInvalidGeometry) {
			o.metrics.GeometryErrors.Inc()
		}
		o.metrics.Verdicts.WithLabelValues(string(domain.None)).Inc()
		return v, false
	}
	o.metrics.Verdicts.WithLabelValues(string(v.Classification)).Inc()
	return v, true
}

// recipients is the route owner followed by its favoriters, without
// duplicates or the anonymous owner. A failed favorites lookup is logged and
// only the owner is notified.
func (o *Orchestrator) recipients(ctx context.Context, route domain.Route, favorites FavoritesRepository) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(uid string) {
		if uid == "" || uid == domain.AnonymousOwner || seen[uid] {
			return
		}
		seen[uid] = true
		out = append(out, uid)
	}

	add(route.OwnerID)
	if favorites == nil {
		return out
	}
	users, err := favorites.FavoritersOf(ctx, route.ID)
	if err != nil {
		o.logger.Warn("favorites lookup failed, notifying owner only",
			"error", err,
			"route_id", route.ID,
		)
		return out
	}
	for _, uid := range users {
		add(uid)
	}
	return out
}

package fanout_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"github.com/rangeguard/zone-conflict-notifier/internal/domain"
	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
)

var (
	madridBoundary = orb.Ring{{-3.72, 40.43}, {-3.68, 40.43}, {-3.68, 40.46}, {-3.72, 40.46}, {-3.72, 40.43}}
	remoteBoundary = orb.Ring{{1.00, 1.00}, {1.01, 1.00}, {1.01, 1.01}, {1.00, 1.01}, {1.00, 1.00}}
	bowtie         = orb.Ring{{0, 0}, {1, 1}, {1, 0}, {0, 1}, {0, 0}}

	routeInside   = orb.LineString{{-3.70, 40.45}, {-3.69, 40.44}}
	routeCrossing = orb.LineString{{-3.80, 40.50}, {-3.70, 40.45}, {-3.60, 40.40}}
	routeFarAway  = orb.LineString{{-4.50, 41.00}, {-4.40, 41.10}}
	routeNearMiss = orb.LineString{{-3.7210, 40.445}, {-3.80, 40.445}}

	seasonStart = time.Date(2025, 10, 1, 6, 0, 0, 0, time.UTC)
	seasonEnd   = time.Date(2025, 10, 31, 18, 0, 0, 0, time.UTC)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// zoneAt builds a zone over boundary buffered by meters.
func zoneAt(t *testing.T, id string, boundary orb.Ring, meters int) domain.Zone {
	t.Helper()
	z := domain.Zone{
		ID:              id,
		Name:            "Zone " + id,
		AssociationName: "Club de Caza Norte",
		CreatedBy:       "assoc-1",
		Boundary:        boundary,
		BufferMeters:    meters,
		Start:           seasonStart,
		End:             seasonEnd,
	}
	require.NoError(t, domain.NewBufferBuilder(geometry.NewPlanar()).Apply(&z))
	return z
}

func route(id, owner string, path orb.LineString) domain.Route {
	return domain.Route{ID: id, Name: "Route " + id, OwnerID: owner, Path: path}
}

// favorites maps a route id to its favoriters.
type favorites map[string][]string

func (f favorites) FavoritersOf(_ context.Context, routeID string) ([]string, error) {
	return f[routeID], nil
}

type failingFavorites struct{}

func (failingFavorites) FavoritersOf(context.Context, string) ([]string, error) {
	return nil, errors.New("favorites unavailable")
}

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	zones     map[string]domain.Zone
	routes    map[string]domain.Route
	favorites map[string]map[string]bool // route id -> user ids
	saveErr   error
}

func newMemStore() *memStore {
	return &memStore{
		zones:     make(map[string]domain.Zone),
		routes:    make(map[string]domain.Route),
		favorites: make(map[string]map[string]bool),
	}
}

func (s *memStore) AllZones(context.Context) ([]domain.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Zone, 0, len(s.zones))
	for _, z := range s.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ActiveAt(ctx context.Context, at time.Time) ([]domain.Zone, error) {
	zones, _ := s.AllZones(ctx)
	return domain.ActiveAt(zones, at), nil
}

func (s *memStore) ActiveOrUpcoming(ctx context.Context, at time.Time) ([]domain.Zone, error) {
	zones, _ := s.AllZones(ctx)
	return domain.Upcoming(zones, at), nil
}

func (s *memStore) Zone(_ context.Context, id string) (domain.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[id]
	if !ok {
		return domain.Zone{}, domain.ErrNotFound
	}
	return z, nil
}

func (s *memStore) SaveZone(_ context.Context, z domain.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.zones[z.ID] = z
	return nil
}

func (s *memStore) DeleteZone(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.zones, id)
	return nil
}

func (s *memStore) AllRoutes(context.Context) ([]domain.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Route, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) Route(_ context.Context, id string) (domain.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[id]
	if !ok {
		return domain.Route{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *memStore) SaveRoute(_ context.Context, r domain.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.routes[r.ID] = r
	return nil
}

func (s *memStore) DeleteRoute(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.routes, id)
	delete(s.favorites, id)
	return nil
}

func (s *memStore) FavoritersOf(_ context.Context, routeID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for uid := range s.favorites[routeID] {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) AddFavorite(_ context.Context, userID, routeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.favorites[routeID] == nil {
		s.favorites[routeID] = make(map[string]bool)
	}
	s.favorites[routeID][userID] = true
	return nil
}

func (s *memStore) RemoveFavorite(_ context.Context, userID, routeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.favorites[routeID], userID)
	return nil
}

// memSink records drafts and fails for the recipients in failFor.
type memSink struct {
	mu      sync.Mutex
	drafts  []domain.NotificationDraft
	failFor map[string]bool
}

func (s *memSink) Append(_ context.Context, d domain.NotificationDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[d.RecipientID] {
		return errors.New("sink rejected draft")
	}
	s.drafts = append(s.drafts, d)
	return nil
}

func (s *memSink) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.drafts))
	for _, d := range s.drafts {
		out = append(out, d.RecipientID)
	}
	return out
}

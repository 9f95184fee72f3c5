// Package sqlite keeps the local projection of zones, routes and favorites
// and the notification inbox in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rangeguard/zone-conflict-notifier/internal/domain"
	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
)

const schema = `
CREATE TABLE IF NOT EXISTS zones (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	association_name TEXT NOT NULL DEFAULT '',
	created_by       TEXT NOT NULL DEFAULT '',
	geometry         TEXT NOT NULL,
	buffered         TEXT NOT NULL DEFAULT '',
	buffer_meters    INTEGER NOT NULL,
	start_time       TEXT NOT NULL,
	end_time         TEXT NOT NULL,
	created_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS zones_end ON zones(end_time);

CREATE TABLE IF NOT EXISTS routes (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	is_public  INTEGER NOT NULL DEFAULT 0,
	file_name  TEXT NOT NULL DEFAULT '',
	geometry   TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS favorites (
	user_id    TEXT NOT NULL,
	route_id   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (user_id, route_id)
);
CREATE INDEX IF NOT EXISTS favorites_route ON favorites(route_id);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL,
	message    TEXT NOT NULL,
	data       TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS notifications_inbox ON notifications(user_id, created_at);
`

// Store implements the fan-out repositories and the inbox sink.
type Store struct {
	db     *sql.DB
	routes *RouteCache
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string, routes *RouteCache, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection serializes writers from the pipeline and fan-out workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		logger.Warn("could not enable WAL mode", "error", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		logger.Warn("could not set busy timeout", "error", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, routes: routes, logger: logger}, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- zones ---

const zoneColumns = `id, name, description, association_name, created_by, geometry, buffered, buffer_meters, start_time, end_time, created_at`

// SaveZone inserts or replaces z.
func (s *Store) SaveZone(ctx context.Context, z domain.Zone) error {
	boundary, err := geometry.MarshalRing(z.Boundary)
	if err != nil {
		return fmt.Errorf("encode zone %s: %w", z.ID, err)
	}
	var buffered []byte
	if len(z.Buffered) > 0 {
		if buffered, err = geometry.MarshalRing(z.Buffered); err != nil {
			return fmt.Errorf("encode zone %s buffer: %w", z.ID, err)
		}
	}
	createdAt := z.CreatedAt
	if createdAt.IsZero() {
		createdAt = domain.Now()
	}

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO zones(`+zoneColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		z.ID, z.Name, z.Description, z.AssociationName, z.CreatedBy,
		string(boundary), string(buffered), z.BufferMeters,
		domain.FormatTimestamp(z.Start), domain.FormatTimestamp(z.End), domain.FormatTimestamp(createdAt))
	if err != nil {
		return fmt.Errorf("save zone %s: %w", z.ID, err)
	}
	return nil
}

// Zone returns the zone with id, or domain.ErrNotFound.
func (s *Store) Zone(ctx context.Context, id string) (domain.Zone, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+zoneColumns+` FROM zones WHERE id = ?`, id)
	z, err := scanZone(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Zone{}, fmt.Errorf("zone %s: %w", id, domain.ErrNotFound)
	}
	return z, err
}

// DeleteZone removes the zone with id, or returns domain.ErrNotFound.
func (s *Store) DeleteZone(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM zones WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete zone %s: %w", id, err)
	}
	return affected(res, "zone", id)
}

// AllZones returns every zone ordered by id.
func (s *Store) AllZones(ctx context.Context) ([]domain.Zone, error) {
	return s.queryZones(ctx, `SELECT `+zoneColumns+` FROM zones ORDER BY id`)
}

// ActiveAt returns the zones whose interval covers at, bounds included.
func (s *Store) ActiveAt(ctx context.Context, at time.Time) ([]domain.Zone, error) {
	zones, err := s.notEndedBy(ctx, at)
	if err != nil {
		return nil, err
	}
	return domain.ActiveAt(zones, at), nil
}

// ActiveOrUpcoming returns the zones that have not ended by at.
func (s *Store) ActiveOrUpcoming(ctx context.Context, at time.Time) ([]domain.Zone, error) {
	zones, err := s.notEndedBy(ctx, at)
	if err != nil {
		return nil, err
	}
	return domain.Upcoming(zones, at), nil
}

// notEndedBy prunes expired zones on the end_time index. Bounds are stored in
// domain.TimestampLayout so string order is time order. The interval rules
// themselves live in the domain filters applied by the callers.
func (s *Store) notEndedBy(ctx context.Context, at time.Time) ([]domain.Zone, error) {
	return s.queryZones(ctx, `SELECT `+zoneColumns+` FROM zones WHERE end_time >= ? ORDER BY id`, domain.FormatTimestamp(at))
}

func (s *Store) queryZones(ctx context.Context, query string, args ...any) ([]domain.Zone, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	defer rows.Close()

	var out []domain.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanZone(row scanner) (domain.Zone, error) {
	var (
		z                     domain.Zone
		boundary, buffered    string
		start, end, createdAt string
	)
	if err := row.Scan(&z.ID, &z.Name, &z.Description, &z.AssociationName, &z.CreatedBy,
		&boundary, &buffered, &z.BufferMeters, &start, &end, &createdAt); err != nil {
		return domain.Zone{}, err
	}

	var err error
	if z.Boundary, err = geometry.RingFromGeoJSON([]byte(boundary)); err != nil {
		return domain.Zone{}, fmt.Errorf("zone %s geometry: %w", z.ID, err)
	}
	if buffered != "" {
		if z.Buffered, err = geometry.RingFromGeoJSON([]byte(buffered)); err != nil {
			return domain.Zone{}, fmt.Errorf("zone %s buffer: %w", z.ID, err)
		}
	}
	if z.Start, err = domain.ParseTimestamp(start); err != nil {
		return domain.Zone{}, fmt.Errorf("zone %s start: %w", z.ID, err)
	}
	if z.End, err = domain.ParseTimestamp(end); err != nil {
		return domain.Zone{}, fmt.Errorf("zone %s end: %w", z.ID, err)
	}
	if z.CreatedAt, err = domain.ParseTimestamp(createdAt); err != nil {
		return domain.Zone{}, fmt.Errorf("zone %s created_at: %w", z.ID, err)
	}
	return z, nil
}

// --- routes ---

const routeColumns = `id, name, user_id, is_public, file_name, geometry, created_at`

// SaveRoute inserts or replaces r.
func (s *Store) SaveRoute(ctx context.Context, r domain.Route) error {
	path, err := geometry.MarshalLineString(r.Path)
	if err != nil {
		return fmt.Errorf("encode route %s: %w", r.ID, err)
	}
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = domain.Now()
	}

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO routes(`+routeColumns+`) VALUES(?,?,?,?,?,?,?)`,
		r.ID, r.Name, r.OwnerID, r.Public, r.FileName, string(path), domain.FormatTimestamp(createdAt))
	if err != nil {
		return fmt.Errorf("save route %s: %w", r.ID, err)
	}
	s.routes.Invalidate(r.ID)
	return nil
}

// Route returns the route with id, or domain.ErrNotFound.
func (s *Store) Route(ctx context.Context, id string) (domain.Route, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = ?`, id)
	r, err := s.scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Route{}, fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	return r, err
}

// AllRoutes returns every route ordered by id.
func (s *Store) AllRoutes(ctx context.Context) ([]domain.Route, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+routeColumns+` FROM routes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	var out []domain.Route
	for rows.Next() {
		r, err := s.scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRoute removes the route with id and its favorites, or returns
// domain.ErrNotFound.
func (s *Store) DeleteRoute(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete route %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM routes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete route %s: %w", id, err)
	}
	if err := affected(res, "route", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE route_id = ?`, id); err != nil {
		return fmt.Errorf("delete favorites of route %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete route %s: %w", id, err)
	}
	s.routes.Invalidate(id)
	return nil
}

func (s *Store) scanRoute(row scanner) (domain.Route, error) {
	var (
		r               domain.Route
		path, createdAt string
	)
	if err := row.Scan(&r.ID, &r.Name, &r.OwnerID, &r.Public, &r.FileName, &path, &createdAt); err != nil {
		return domain.Route{}, err
	}

	cached, ok := s.routes.Get(r.ID)
	if ok {
		r.Path = cached
	} else {
		parsed, err := geometry.LineStringFromGeoJSON([]byte(path))
		if err != nil {
			return domain.Route{}, fmt.Errorf("route %s geometry: %w", r.ID, err)
		}
		s.routes.Put(r.ID, parsed)
		r.Path = parsed
	}

	var err error
	if r.CreatedAt, err = domain.ParseTimestamp(createdAt); err != nil {
		return domain.Route{}, fmt.Errorf("route %s created_at: %w", r.ID, err)
	}
	return r, nil
}

// --- favorites ---

// AddFavorite records that userID favorited routeID. Repeats are ignored.
func (s *Store) AddFavorite(ctx context.Context, userID, routeID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO favorites(user_id, route_id, created_at) VALUES(?,?,?)`,
		userID, routeID, domain.FormatTimestamp(domain.Now()))
	if err != nil {
		return fmt.Errorf("add favorite %s/%s: %w", userID, routeID, err)
	}
	return nil
}

// RemoveFavorite deletes the favorite if present.
func (s *Store) RemoveFavorite(ctx context.Context, userID, routeID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND route_id = ?`, userID, routeID)
	if err != nil {
		return fmt.Errorf("remove favorite %s/%s: %w", userID, routeID, err)
	}
	return nil
}

// FavoritersOf lists the users who favorited routeID, oldest first.
func (s *Store) FavoritersOf(ctx context.Context, routeID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM favorites WHERE route_id = ? ORDER BY created_at, user_id`, routeID)
	if err != nil {
		return nil, fmt.Errorf("query favorites of %s: %w", routeID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		out = append(out, uid)
	}
	return out, rows.Err()
}

func affected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}

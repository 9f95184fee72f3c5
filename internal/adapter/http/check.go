package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/paulmach/orb"

	"github.com/rangeguard/zone-conflict-notifier/internal/domain"
	"github.com/rangeguard/zone-conflict-notifier/internal/fanout"
	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
)

const maxCheckBody = 1 << 20

// Checker answers synchronous route checks.
type Checker interface {
	Check(ctx context.Context, path orb.LineString, at time.Time) (fanout.CheckResult, error)
	CheckRoute(ctx context.Context, routeID string, at time.Time) (fanout.CheckResult, error)
}

// checkRequest names the route in exactly one way.
type checkRequest struct {
	RouteID       string          `json:"route_id"`
	RouteGeometry json.RawMessage `json:"route_geometry"`
	RoutePolyline string          `json:"route_polyline"`
	CheckTime     string          `json:"check_time"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCheckBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var at time.Time
	if req.CheckTime != "" {
		t, err := time.Parse(time.RFC3339, req.CheckTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "check_time must be RFC3339")
			return
		}
		at = t.UTC()
	}

	hasGeometry := len(req.RouteGeometry) > 0 && string(req.RouteGeometry) != "null"
	given := 0
	for _, set := range []bool{req.RouteID != "", hasGeometry, req.RoutePolyline != ""} {
		if set {
			given++
		}
	}
	if given != 1 {
		writeError(w, http.StatusBadRequest, "provide exactly one of route_id, route_geometry or route_polyline")
		return
	}

	var (
		res fanout.CheckResult
		err error
	)
	switch {
	case req.RouteID != "":
		res, err = s.checker.CheckRoute(r.Context(), req.RouteID, at)
	case hasGeometry:
		var path orb.LineString
		if path, err = geometry.LineStringFromGeoJSON(req.RouteGeometry); err == nil {
			res, err = s.checker.Check(r.Context(), path, at)
		}
	default:
		var path orb.LineString
		if path, err = geometry.LineStringFromPolyline(req.RoutePolyline); err == nil {
			res, err = s.checker.Check(r.Context(), path, at)
		}
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, geometry.ErrInvalidGeometry):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "route not found")
	default:
		s.logger.Error("check failed", "error", err, "route_id", req.RouteID)
		writeError(w, http.StatusInternalServerError, "check failed")
	}
}

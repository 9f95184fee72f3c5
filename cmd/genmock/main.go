// Command genmock writes a deterministic fixture of trigger events covering
// the contained, crossing, clear and fan-out scenarios. Every event is run
// through the same parser the pipeline uses before it is written, so the
// fixture always matches real consumer behavior.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/trigger_events.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"

	"github.com/rangeguard/zone-conflict-notifier/internal/domain"
	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
)

var generatedAt = time.Date(2025, time.October, 15, 6, 0, 0, 0, time.UTC)

var (
	montePardo = orb.Ring{{-3.72, 40.43}, {-3.68, 40.43}, {-3.68, 40.46}, {-3.72, 40.46}, {-3.72, 40.43}}

	insideTrack   = orb.LineString{{-3.70, 40.45}, {-3.69, 40.44}}
	crossingTrack = orb.LineString{{-3.80, 40.50}, {-3.70, 40.45}, {-3.60, 40.40}}
	farTrack      = orb.LineString{{-4.50, 41.00}, {-4.40, 41.10}}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the trigger event fixture")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	// Set a fixed clock for reproducible timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(generatedAt))
	defer domain.SetClock(nil)

	events, err := buildEvents()
	if err != nil {
		return err
	}

	counts := map[domain.TriggerType]int{}
	for i, ev := range events {
		raw, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event %d: %w", i, err)
		}
		parsed, err := domain.ParseTriggerEvent(raw, 200)
		if err != nil {
			return fmt.Errorf("event %d does not parse: %w", i, err)
		}
		counts[parsed.Type]++
	}

	if err := writeJSON(*out, events); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d events to %s", len(events), *out)

	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		log.Printf("  %-18s %d", t, counts[domain.TriggerType(t)])
	}
	return nil
}

// buildEvents returns the fixture in delivery order. Routes and favorites
// land before the zone so that its creation fans out to them, then one more
// route arrives after the zone to raise a route warning.
func buildEvents() ([]map[string]any, error) {
	now := domain.Now()
	stamp := func(d time.Duration) string { return now.Add(d).Format(time.RFC3339) }

	var events []map[string]any
	route := func(id, name, owner string, path orb.LineString) error {
		geom, err := geometry.MarshalLineString(path)
		if err != nil {
			return fmt.Errorf("route %s: %w", id, err)
		}
		events = append(events, map[string]any{
			"type":  string(domain.TriggerRouteUploaded),
			"route": map[string]any{
				"id":         id,
				"name":       name,
				"user_id":    owner,
				"is_public":  true,
				"file_name":  id + ".gpx",
				"geometry":   json.RawMessage(geom),
				"created_at": stamp(-48 * time.Hour),
			},
		})
		return nil
	}

	if err := route("route-inside", "Senda del Pardo", "user-u", insideTrack); err != nil {
		return nil, err
	}
	if err := route("route-crossing", "Travesia Norte", "user-u", crossingTrack); err != nil {
		return nil, err
	}
	if err := route("route-far", "Sierra de Guadarrama", "user-w", farTrack); err != nil {
		return nil, err
	}
	events = append(events, map[string]any{
		"type":     string(domain.TriggerFavoriteAdded),
		"user_id":  "user-v",
		"route_id": "route-inside",
	})

	boundary, err := geometry.MarshalRing(montePardo)
	if err != nil {
		return nil, fmt.Errorf("zone boundary: %w", err)
	}
	events = append(events, map[string]any{
		"type": string(domain.TriggerZoneCreated),
		"zone": map[string]any{
			"id":               "zone-monte-pardo",
			"name":             "Monte de El Pardo",
			"description":      "Batida de jabali",
			"association_name": "Sociedad de Cazadores del Pardo",
			"created_by":       "user-admin",
			"geometry":         json.RawMessage(boundary),
			"buffer_meters":    200,
			"start_time":       stamp(-24 * time.Hour),
			"end_time":         stamp(30 * 24 * time.Hour),
			"created_at":       stamp(0),
		},
	})

	if err := route("route-late", "Vuelta al Monte", "user-w", insideTrack); err != nil {
		return nil, err
	}
	return events, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// Command validate checks a GeoJSON FeatureCollection of hunting zones
// before it is loaded. Each feature must carry a valid polygon, an ordered
// active interval and a buffer that contains the raw boundary.
//
// Usage:
//
//	go run ./cmd/validate -zones data/mock/zones.geojson
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/rangeguard/zone-conflict-notifier/internal/domain"
	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
)

const defaultBufferMeters = 200

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// zoneFeature is a feature that survived decoding.
type zoneFeature struct {
	id     string
	ring   orb.Ring
	meters int
	start  time.Time
	end    time.Time
}

func main() {
	zonesPath := flag.String("zones", "", "path to a GeoJSON FeatureCollection of zones")
	flag.Parse()

	if *zonesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*zonesPath); code != 0 {
		os.Exit(code)
	}
}

func run(path string) int {
	fmt.Println("=== Zone Integrity Validation ===")
	fmt.Println()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read zones: %v\n", err)
		return 1
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode zones: %v\n", err)
		return 1
	}

	kernel := geometry.NewPlanar()
	geom, zones := validateGeometry(fc)
	phases := []*phase{
		geom,
		validateIntervals(zones),
		validateBuffers(domain.NewBufferBuilder(kernel), kernel, zones),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Features: %d total, %d with valid geometry\n", len(fc.Features), len(zones))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateGeometry decodes every feature. Features that fail are reported
// and left out of later phases.
func validateGeometry(fc *geojson.FeatureCollection) (*phase, []zoneFeature) {
	p := &phase{name: "Phase 1: Geometry validity"}
	zones := make([]zoneFeature, 0, len(fc.Features))

	for i, f := range fc.Features {
		id := f.Properties.MustString("id", fmt.Sprintf("#%d", i))

		poly, ok := f.Geometry.(orb.Polygon)
		if !ok {
			p.errorf("%s: geometry is %T, want Polygon", id, f.Geometry)
			continue
		}
		if len(poly) != 1 {
			p.errorf("%s: polygon has %d rings, want exactly 1", id, len(poly))
			continue
		}
		if err := geometry.ValidateRing(poly[0]); err != nil {
			p.errorf("%s: %v", id, err)
			continue
		}

		meters := f.Properties.MustInt("buffer_meters", defaultBufferMeters)
		if meters < 0 {
			p.errorf("%s: buffer_meters %d is negative", id, meters)
			continue
		}

		zones = append(zones, zoneFeature{
			id:     id,
			ring:   poly[0],
			meters: meters,
			start:  parseTime(f.Properties.MustString("start_time", "")),
			end:    parseTime(f.Properties.MustString("end_time", "")),
		})
	}
	return p, zones
}

func validateIntervals(zones []zoneFeature) *phase {
	p := &phase{name: "Phase 2: Active interval order"}
	for _, z := range zones {
		switch {
		case z.start.IsZero():
			p.errorf("%s: start_time missing or not RFC3339", z.id)
		case z.end.IsZero():
			p.errorf("%s: end_time missing or not RFC3339", z.id)
		case z.end.Before(z.start):
			p.errorf("%s: ends %s before it starts %s", z.id, z.end.Format(time.RFC3339), z.start.Format(time.RFC3339))
		}
	}
	return p
}

func validateBuffers(b *domain.BufferBuilder, k geometry.Kernel, zones []zoneFeature) *phase {
	p := &phase{name: "Phase 3: Buffer contains boundary"}
	for _, z := range zones {
		buffered, err := b.Build(z.ring, z.meters)
		if err != nil {
			p.errorf("%s: %v", z.id, err)
			continue
		}
		ok, err := k.Contains(buffered, orb.LineString(z.ring))
		if err != nil {
			p.errorf("%s: containment check: %v", z.id, err)
			continue
		}
		if !ok {
			p.errorf("%s: %dm buffer does not contain the boundary", z.id, z.meters)
		}
	}
	return p
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

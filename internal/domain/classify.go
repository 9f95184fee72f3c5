package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
)

// Classifier decides how a route relates to a zone. It holds no state besides
// the kernel, so one instance can be shared across goroutines.
type Classifier struct {
	kernel geometry.Kernel
}

// NewClassifier creates a classifier backed by kernel.
func NewClassifier(kernel geometry.Kernel) *Classifier {
	return &Classifier{kernel: kernel}
}

// Classify returns the verdict for route against zone. On a geometry error
// the verdict is None with zero overlap and the error is returned so the
// caller can log and skip the pair.
func (c *Classifier) Classify(route Route, zone Zone) (Verdict, error) {
	v := Verdict{ZoneID: zone.ID, RouteID: route.ID, Classification: None}

	class, overlap, err := c.Evaluate(route.Path, zone)
	if err != nil {
		return v, fmt.Errorf("classify route %s against zone %s: %w", route.ID, zone.ID, err)
	}
	v.Classification = class
	v.OverlapPercentage = overlap
	return v, nil
}

// Evaluate applies the precedence rules to a bare path.
func (c *Classifier) Evaluate(path orb.LineString, zone Zone) (Classification, float64, error) {
	raw := zone.Boundary
	buffered := zone.BufferedOrBoundary()

	inside, err := c.kernel.Contains(raw, path)
	if err != nil {
		return None, 0, err
	}
	if !inside && len(zone.Buffered) > 0 {
		if inside, err = c.kernel.Contains(buffered, path); err != nil {
			return None, 0, err
		}
	}
	if inside {
		return Contained, 100, nil
	}

	hit, err := c.kernel.Intersects(path, raw)
	if err != nil {
		return None, 0, err
	}
	if hit {
		overlap, err := c.overlap(path, raw)
		if err != nil {
			return None, 0, err
		}
		return Intersects, overlap, nil
	}

	hit, err = c.kernel.Intersects(path, buffered)
	if err != nil {
		return None, 0, err
	}
	if hit {
		overlap, err := c.overlap(path, buffered)
		if err != nil {
			return None, 0, err
		}
		return BufferOnly, overlap, nil
	}

	return None, 0, nil
}

func (c *Classifier) overlap(path orb.LineString, ring orb.Ring) (float64, error) {
	clipped, err := c.kernel.Intersection(path, ring)
	if err != nil {
		return 0, err
	}

	total := c.kernel.Length(path)
	if total <= 0 {
		total = 1
	}
	pct := math.Round(c.kernel.Length(clipped)/total*100*10) / 10
	return math.Max(0, math.Min(100, pct)), nil
}

package domain

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
)

// MetersPerDegree converts buffer distances to degrees. It is the length of a
// degree of longitude at the equator and is applied at every latitude.
const MetersPerDegree = 111320.0

// MetersToDegrees converts a planar distance in meters to degrees.
func MetersToDegrees(meters float64) float64 {
	return meters / MetersPerDegree
}

// BufferBuilder derives a zone's buffered polygon.
type BufferBuilder struct {
	kernel geometry.Kernel
}

// NewBufferBuilder creates a builder backed by kernel.
func NewBufferBuilder(kernel geometry.Kernel) *BufferBuilder {
	return &BufferBuilder{kernel: kernel}
}

// Build dilates raw by meters. The returned ring is always usable: when the
// kernel fails, it is a copy of raw and the error explains why.
func (b *BufferBuilder) Build(raw orb.Ring, meters int) (orb.Ring, error) {
	buffered, err := b.kernel.Buffer(raw, MetersToDegrees(float64(meters)))
	if err != nil {
		return raw.Clone(), fmt.Errorf("buffer %dm: %w", meters, err)
	}
	return buffered, nil
}

// Apply sets z.Buffered from z.Boundary and z.BufferMeters.
func (b *BufferBuilder) Apply(z *Zone) error {
	buffered, err := b.Build(z.Boundary, z.BufferMeters)
	z.Buffered = buffered
	return err
}

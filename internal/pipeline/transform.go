package pipeline

import (
	"context"

	"github.com/rangeguard/zone-conflict-notifier/internal/domain"
)

// TriggerTransformer implements Transformer with domain.ParseTriggerEvent.
type TriggerTransformer struct {
	defaultBufferMeters int
}

// NewTransformer creates a TriggerTransformer. Zones created without a
// buffer_meters field get defaultBufferMeters.
func NewTransformer(defaultBufferMeters int) *TriggerTransformer {
	return &TriggerTransformer{defaultBufferMeters: defaultBufferMeters}
}

func (t *TriggerTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.TriggerEvent, error) {
	return domain.ParseTriggerEvent(raw.Value, t.defaultBufferMeters)
}

package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rangeguard/zone-conflict-notifier/internal/domain"
	"github.com/rangeguard/zone-conflict-notifier/internal/observability"
	"github.com/rangeguard/zone-conflict-notifier/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.TriggerEvent
	failures int
	calls    int
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.TriggerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("store unavailable")
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func (m *mockLoader) snapshot() ([]domain.TriggerEvent, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TriggerEvent(nil), m.loaded...), m.calls
}

func raw(value string, committed *atomic.Int32) domain.RawEvent {
	return domain.RawEvent{
		Value: []byte(value),
		Topic: "zone-triggers",
		Commit: func(context.Context) error {
			if committed != nil {
				committed.Add(1)
			}
			return nil
		},
	}
}

func run(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_AppliesTriggers(t *testing.T) {
	var committed atomic.Int32
	ext := &mockExtractor{batches: [][]domain.RawEvent{{
		raw(`{"type":"favorite.added","user_id":"v","route_id":"r1"}`, &committed),
		raw(`{"type":"zone.deleted","zone_id":"z1"}`, &committed),
	}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, pipeline.NewTransformer(200), ldr, slog.Default(), metrics, 50)
	run(t, p, 300*time.Millisecond)

	loaded, _ := ldr.snapshot()
	want := []domain.TriggerEvent{
		{Type: domain.TriggerFavoriteAdded, UserID: "v", RouteID: "r1"},
		{Type: domain.TriggerZoneDeleted, ZoneID: "z1"},
	}
	if diff := cmp.Diff(want, loaded); diff != "" {
		t.Fatalf("loaded events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, int32(2), committed.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EventsConsumed))
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.Zero(t, testutil.ToFloat64(metrics.PipelineRunning), "gauge reset on exit")
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, pipeline.NewTransformer(200), ldr, slog.Default(), observability.NewMetricsForTesting(), 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	loaded, _ := ldr.snapshot()
	assert.Empty(t, loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_InvalidTriggerIsCommittedAndSkipped(t *testing.T) {
	var committed atomic.Int32
	ext := &mockExtractor{batches: [][]domain.RawEvent{{
		raw(`not json`, &committed),
		raw(`{"type":"zone.archived"}`, &committed),
		raw(`{"type":"route.deleted","route_id":"r1"}`, &committed),
	}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, pipeline.NewTransformer(200), ldr, slog.Default(), metrics, 50)
	run(t, p, 300*time.Millisecond)

	loaded, _ := ldr.snapshot()
	require.Len(t, loaded, 1)
	assert.Equal(t, domain.TriggerRouteDeleted, loaded[0].Type)
	assert.Equal(t, int32(3), committed.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EventsInvalid))
}

func TestPipeline_Run_RetriesWithoutCommitting(t *testing.T) {
	var committed atomic.Int32
	batch := []domain.RawEvent{raw(`{"type":"route.deleted","route_id":"r1"}`, &committed)}
	// The same batch comes back after a failed apply, as it would from Kafka.
	ext := &mockExtractor{batches: [][]domain.RawEvent{batch, batch}}
	ldr := &mockLoader{failures: 1}

	p := pipeline.New(ext, pipeline.NewTransformer(200), ldr, slog.Default(), observability.NewMetricsForTesting(), 50)
	run(t, p, time.Second)

	loaded, calls := ldr.snapshot()
	assert.Equal(t, 2, calls)
	assert.Len(t, loaded, 1)
	assert.Equal(t, int32(1), committed.Load(), "only the successful apply commits")
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("broker down")}
	ldr := &mockLoader{}

	p := pipeline.New(ext, pipeline.NewTransformer(200), ldr, slog.Default(), observability.NewMetricsForTesting(), 50)
	run(t, p, 300*time.Millisecond)

	_, calls := ldr.snapshot()
	assert.Zero(t, calls)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_ReadyAfterEmptyBatch(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{{}}}
	p := pipeline.New(ext, pipeline.NewTransformer(200), &mockLoader{}, slog.Default(), observability.NewMetricsForTesting(), 50)
	run(t, p, 100*time.Millisecond)

	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestTriggerTransformer_DefaultBuffer(t *testing.T) {
	tfm := pipeline.NewTransformer(350)
	ev, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(`{"type":"zone.created","zone":{` +
		`"id":"z1","name":"Monte Norte",` +
		`"geometry":{"type":"Polygon","coordinates":[[[-3.72,40.43],[-3.68,40.43],[-3.68,40.46],[-3.72,40.46],[-3.72,40.43]]]},` +
		`"start_time":"2025-10-01T06:00:00Z","end_time":"2025-10-31T18:00:00Z"}}`)})
	require.NoError(t, err)
	require.NotNil(t, ev.Zone)
	assert.Equal(t, 350, ev.Zone.BufferMeters)

	_, err = tfm.Transform(context.Background(), domain.RawEvent{Value: []byte(`{}`)})
	require.ErrorIs(t, err, domain.ErrInvalidTrigger)
}

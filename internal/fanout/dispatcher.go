package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rangeguard/zone-conflict-notifier/internal/observability"
)

var (
	// ErrDispatcherFull is returned by Submit when the queue has no room.
	ErrDispatcherFull = errors.New("dispatcher queue is full")
	// ErrDispatcherClosed is returned by Submit after Shutdown.
	ErrDispatcherClosed = errors.New("dispatcher is shut down")
	// ErrTaskPanicked wraps the value recovered from a panicking task.
	ErrTaskPanicked = errors.New("task panicked")
)

// Task is a unit of background work. ctx belongs to the dispatcher, not to
// whoever submitted the task.
type Task func(ctx context.Context) error

// Handle tracks a submitted task. Callers are free to drop it.
type Handle struct {
	kind string
	done chan struct{}
	err  error
}

// Done is closed once the task has finished, failed or been abandoned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the task's error. Only valid after Done is closed.
func (h *Handle) Err() error { return h.err }

type job struct {
	task   Task
	handle *Handle
}

// Dispatcher is a fixed pool of workers consuming a bounded queue. A task
// that fails or panics is logged and counted; it never affects the submitter
// or other tasks.
type Dispatcher struct {
	queue   chan job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewDispatcher starts workers goroutines sharing a queue of queueSize.
func NewDispatcher(workers, queueSize int, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		queue:   make(chan job, queueSize),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		metrics: metrics,
	}
	d.wg.Add(workers)
	for range workers {
		go d.work()
	}
	return d
}

// Submit enqueues task without waiting for it to start.
func (d *Dispatcher) Submit(kind string, task Task) (*Handle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.FanoutTasks.WithLabelValues(kind, "rejected").Inc()
		return nil, ErrDispatcherClosed
	}

	h := &Handle{kind: kind, done: make(chan struct{})}
	select {
	case d.queue <- job{task: task, handle: h}:
		d.metrics.DispatcherQueueDepth.Set(float64(len(d.queue)))
		return h, nil
	default:
		d.metrics.FanoutTasks.WithLabelValues(kind, "rejected").Inc()
		return nil, ErrDispatcherFull
	}
}

// Shutdown stops intake and lets workers drain the queue. When ctx expires
// first, running tasks are cancelled, queued ones are abandoned, and
// ctx.Err() is returned once every worker has exited.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-drained
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		d.metrics.DispatcherQueueDepth.Set(float64(len(d.queue)))
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	h := j.handle
	start := time.Now()
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			h.err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
			d.logger.Error("fan-out task panicked", "kind", h.kind, "panic", r)
			d.metrics.FanoutTasks.WithLabelValues(h.kind, "panic").Inc()
		}
	}()

	if err := d.ctx.Err(); err != nil {
		h.err = err
		d.metrics.FanoutTasks.WithLabelValues(h.kind, "abandoned").Inc()
		return
	}

	h.err = j.task(d.ctx)
	d.metrics.FanoutDuration.WithLabelValues(h.kind).Observe(time.Since(start).Seconds())
	if h.err != nil {
		d.logger.Warn("fan-out task failed", "kind", h.kind, "error", h.err)
		d.metrics.FanoutTasks.WithLabelValues(h.kind, "error").Inc()
		return
	}
	d.metrics.FanoutTasks.WithLabelValues(h.kind, "success").Inc()
}

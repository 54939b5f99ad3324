package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joshua-takyi/gigboard/internal/metrics"
)

// TaskFunc is a unit of background work. Its context carries the per-task timeout.
type TaskFunc func(ctx context.Context) error

type task struct {
	name string
	run  TaskFunc
}

// Dispatcher runs fire-and-forget work on a fixed pool of workers. Errors
// and panics are logged and never reach the code that submitted the task.
type Dispatcher struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	tasks   chan task
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(logger *slog.Logger, m *metrics.Metrics, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	d := &Dispatcher{
		logger:  logger,
		metrics: m,
		timeout: timeout,
		tasks:   make(chan task, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Submit enqueues fn. It returns false when the dispatcher is shut down or
// the queue is full; the task is dropped in both cases.
func (d *Dispatcher) Submit(name string, fn TaskFunc) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, dropping task", "task", name)
		return false
	}
	select {
	case d.tasks <- task{name: name, run: fn}:
		d.observeQueue()
		return true
	default:
		d.logger.Warn("dispatcher queue full, dropping task", "task", name)
		d.countFailure()
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.tasks {
		d.observeQueue()
		d.execute(t)
	}
}

func (d *Dispatcher) execute(t task) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("background task panicked", "task", t.name, "panic", r)
			d.countFailure()
		}
	}()

	start := time.Now()
	if err := t.run(ctx); err != nil {
		d.logger.Error("background task failed", "task", t.name, "error", err)
		d.countFailure()
		return
	}
	d.logger.Debug("background task completed", "task", t.name, "duration", time.Since(start))
}

func (d *Dispatcher) countFailure() {
	if d.metrics != nil {
		d.metrics.FanoutFailures.Inc()
	}
}

func (d *Dispatcher) observeQueue() {
	if d.metrics != nil {
		d.metrics.DispatcherQueueLength.Set(float64(len(d.tasks)))
	}
}

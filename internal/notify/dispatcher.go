// Package notify runs notification jobs in the background: an in-process
// worker pool with retries, the event handler that turns domain events into
// stored notifications, and the mailer that emails them.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/duthaho/trello-clone-sub000/internal/metrics"
)

var (
	ErrQueueFull = errors.New("notify: queue full")
	ErrClosed    = errors.New("notify: dispatcher closed")
)

// Job is one unit of background work.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// RetryPolicy bounds how often a failing job is retried.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:      maxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
	}
}

// Retry runs op until it succeeds, the retries are used up or ctx ends.
func Retry(ctx context.Context, p RetryPolicy, op func() error, onRetry func(err error, wait time.Duration)) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.MaxElapsedTime = 0

	// backoff treats WithMaxRetries(b, 0) as unlimited.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if p.MaxRetries > 0 {
		b = backoff.WithMaxRetries(bo, uint64(p.MaxRetries))
	}
	if onRetry == nil {
		onRetry = func(error, time.Duration) {}
	}
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), onRetry)
}

// Dispatcher is a bounded queue drained by a fixed set of workers.
type Dispatcher struct {
	log    *zap.SugaredLogger
	policy RetryPolicy
	queue  chan Job
	wg     sync.WaitGroup

	workers int
	mu      sync.RWMutex
	closed  bool
	cancel  context.CancelFunc
}

func NewDispatcher(log *zap.SugaredLogger, workers, queueSize int, policy RetryPolicy) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		log:     log.Named("notify.dispatcher"),
		policy:  policy,
		queue:   make(chan Job, queueSize),
		workers: workers,
	}
}

// Start launches the workers. Jobs run under a context derived from ctx that
// is cancelled when Close gives up waiting.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}
}

// Enqueue never blocks: a full queue yields ErrQueueFull.
func (d *Dispatcher) Enqueue(job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for the queue to drain. When ctx ends
// first, running jobs are cancelled and ctx.Err() is returned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if d.cancel != nil {
			d.cancel()
		}
		return nil
	case <-ctx.Done():
		if d.cancel != nil {
			d.cancel()
		}
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	defer d.wg.Done()
	for job := range d.queue {
		if ctx.Err() != nil {
			d.log.Warnw("dropping job after shutdown", "job", job.Name, "worker", id)
			continue
		}
		start := time.Now()
		err := Retry(ctx, d.policy, func() error { return job.Run(ctx) }, func(err error, wait time.Duration) {
			d.log.Warnw("job failed, retrying", "job", job.Name, "worker", id, "error", err, "wait", wait)
		})
		if err != nil {
			metrics.ObserveJob("failed")
			d.log.Errorw("job failed", "job", job.Name, "worker", id, "error", err)
			continue
		}
		metrics.ObserveJob("ok")
		d.log.Debugw("job done", "job", job.Name, "worker", id, "duration_ms", time.Since(start).Milliseconds())
	}
}
